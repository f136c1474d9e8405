package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cyra-kanban/internal/activity/domain"
	"cyra-kanban/internal/activity/usecase"
	"cyra-kanban/pkg/errutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type mockActivityUsecase struct {
	usecase.ActivityUsecase

	SetNoteReadFn func(noteID string, read bool) (*domain.Note, error)
	RecentLogsFn  func(since time.Time, limit int) ([]*domain.LogEntry, error)
	AddNoteFn     func(req usecase.NoteRequest) (*domain.Note, error)
}

func (m *mockActivityUsecase) SetNoteRead(_ context.Context, _ string, noteID string, read bool) (*domain.Note, error) {
	return m.SetNoteReadFn(noteID, read)
}

func (m *mockActivityUsecase) RecentLogs(_ context.Context, _ string, since time.Time, limit int) ([]*domain.LogEntry, error) {
	return m.RecentLogsFn(since, limit)
}

func (m *mockActivityUsecase) AddNote(_ context.Context, _ string, req usecase.NoteRequest) (*domain.Note, error) {
	return m.AddNoteFn(req)
}

func newRouter(uc usecase.ActivityUsecase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api", func(c *gin.Context) { c.Set("userID", "u1"); c.Next() })
	NewActivityHandler(uc).RegisterRoutes(api)
	return r
}

func do(r http.Handler, method, url, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestMarkNoteRead(t *testing.T) {
	var gotRead bool
	uc := &mockActivityUsecase{SetNoteReadFn: func(noteID string, read bool) (*domain.Note, error) {
		if noteID == "missing" {
			return nil, errutil.NewNotFound("Note not found")
		}
		gotRead = read
		return &domain.Note{ID: noteID, Read: read}, nil
	}}
	r := newRouter(uc)

	w := do(r, http.MethodPatch, "/api/notes/n1/read", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, gotRead)

	w = do(r, http.MethodPatch, "/api/notes/n1/read", `{"read":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, gotRead)

	w = do(r, http.MethodPatch, "/api/notes/missing/read", `{"read":true}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetLogsParsesQuery(t *testing.T) {
	var gotSince time.Time
	var gotLimit int
	uc := &mockActivityUsecase{RecentLogsFn: func(since time.Time, limit int) ([]*domain.LogEntry, error) {
		gotSince, gotLimit = since, limit
		return []*domain.LogEntry{{ID: "l1", Action: "add_task"}}, nil
	}}
	r := newRouter(uc)

	w := do(r, http.MethodGet, "/api/logs?limit=20&since=1740830400000", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 20, gotLimit)
	require.True(t, gotSince.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))

	var body struct {
		Logs []domain.LogEntry `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Logs, 1)

	w = do(r, http.MethodGet, "/api/logs?since=yesterday", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateNote(t *testing.T) {
	uc := &mockActivityUsecase{AddNoteFn: func(req usecase.NoteRequest) (*domain.Note, error) {
		if req.Content == "" {
			return nil, errutil.NewBadRequest("Content is required")
		}
		return &domain.Note{ID: "n1", Content: req.Content, From: "victor"}, nil
	}}
	r := newRouter(uc)

	w := do(r, http.MethodPost, "/api/notes", `{"content":"hello"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodPost, "/api/notes", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
