package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	authdomain "cyra-kanban/internal/auth/domain"
	authusecase "cyra-kanban/internal/auth/usecase"
	"cyra-kanban/internal/automation/usecase"
	taskdomain "cyra-kanban/internal/task/domain"
	taskusecase "cyra-kanban/internal/task/usecase"
	"cyra-kanban/pkg/errutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apiKey = "s3cret-key"

type mockAutomationUsecase struct {
	ExecuteFn    func(ctx context.Context, ownerID string, cmd usecase.Command) (usecase.Result, error)
	CreateTaskFn func(ctx context.Context, ownerID string, req usecase.FlatTaskRequest) (*taskdomain.Task, error)
	calls        int
}

func (m *mockAutomationUsecase) Execute(ctx context.Context, ownerID string, cmd usecase.Command) (usecase.Result, error) {
	m.calls++
	return m.ExecuteFn(ctx, ownerID, cmd)
}

func (m *mockAutomationUsecase) CreateTask(ctx context.Context, ownerID string, req usecase.FlatTaskRequest) (*taskdomain.Task, error) {
	m.calls++
	return m.CreateTaskFn(ctx, ownerID, req)
}

type mockTaskUsecase struct {
	taskusecase.TaskUsecase

	ListSubtasksFn func(ownerID, taskID string) ([]*taskdomain.Subtask, error)
}

func (m *mockTaskUsecase) ListSubtasks(_ context.Context, ownerID, taskID string) ([]*taskdomain.Subtask, error) {
	return m.ListSubtasksFn(ownerID, taskID)
}

type mockAuthUsecase struct {
	authusecase.AuthUsecase

	ValidateTokenFn func(token string) (*authdomain.User, error)
}

func (m *mockAuthUsecase) ValidateToken(token string) (*authdomain.User, error) {
	return m.ValidateTokenFn(token)
}

type staticOwner struct {
	id  string
	err error
}

func (s staticOwner) ResolveOwner(context.Context) (string, error) { return s.id, s.err }

func newRouter(uc usecase.AutomationUsecase, tasks taskusecase.TaskUsecase, owners usecase.OwnerResolver, key string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := &mockAuthUsecase{ValidateTokenFn: func(token string) (*authdomain.User, error) {
		if token == "session-token" {
			return &authdomain.User{ID: "human-1"}, nil
		}
		return nil, errors.New("invalid token")
	}}
	NewAutomationHandler(uc, tasks).RegisterRoutes(r.Group("/api"), Guards{
		Actions:  BearerKeyMiddleware(key, owners),
		Tasks:    BearerKeyMiddleware(key, owners),
		Children: KeyOrSession(key, owners, auth),
	})
	return r
}

func send(r http.Handler, method, url, token, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestInvalidKeyWritesNothing(t *testing.T) {
	uc := &mockAutomationUsecase{}
	r := newRouter(uc, nil, staticOwner{id: "owner-1"}, apiKey)

	for _, token := range []string{"", "wrong", apiKey + "x", "session-token"} {
		w := send(r, http.MethodPost, "/api/cyra", token, `{"action":"add_task","title":"x"}`)
		require.Equal(t, http.StatusUnauthorized, w.Code, token)
		require.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())

		w = send(r, http.MethodPost, "/api/cyra/tasks", token, `{"title":"x"}`)
		require.Equal(t, http.StatusUnauthorized, w.Code, token)
	}
	require.Zero(t, uc.calls)
}

func TestUnconfiguredKeyRejectsEverything(t *testing.T) {
	uc := &mockAutomationUsecase{}
	r := newRouter(uc, nil, staticOwner{id: "owner-1"}, "")

	w := send(r, http.MethodGet, "/api/cyra", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = send(r, http.MethodPost, "/api/cyra", "anything", `{"action":"get_tasks"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Zero(t, uc.calls)
}

func TestExecuteRunsAsAutomationOwner(t *testing.T) {
	uc := &mockAutomationUsecase{ExecuteFn: func(ctx context.Context, ownerID string, cmd usecase.Command) (usecase.Result, error) {
		assert.Equal(t, "owner-1", ownerID)
		assert.Equal(t, taskdomain.ActorAutomation, taskdomain.ActorFrom(ctx))
		if cmd.Action == "launch_rocket" {
			return nil, errutil.NewBadRequest("Unknown action: launch_rocket")
		}
		return usecase.Result{"tasks": []string{}}, nil
	}}
	r := newRouter(uc, nil, staticOwner{id: "owner-1"}, apiKey)

	w := send(r, http.MethodPost, "/api/cyra", apiKey, `{"action":"get_tasks"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"success":true,"tasks":[]}`, w.Body.String())

	w = send(r, http.MethodPost, "/api/cyra", apiKey, `{"action":"launch_rocket"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodPost, "/api/cyra", apiKey, `not json`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthListsActions(t *testing.T) {
	r := newRouter(&mockAutomationUsecase{}, nil, staticOwner{id: "owner-1"}, apiKey)

	w := send(r, http.MethodGet, "/api/cyra", apiKey, "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status  string   `json:"status"`
		Actions []string `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "ok", body.Status)
	require.Contains(t, body.Actions, "add_task")
	require.Contains(t, body.Actions, "toggle_subtask")
}

func TestUnknownOwnerIsNotFound(t *testing.T) {
	uc := &mockAutomationUsecase{}
	r := newRouter(uc, nil, staticOwner{err: errutil.NewNotFound("User not found")}, apiKey)

	w := send(r, http.MethodPost, "/api/cyra", apiKey, `{"action":"get_tasks"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.JSONEq(t, `{"error":"User not found"}`, w.Body.String())
	require.Zero(t, uc.calls)
}

func TestFlatCreateReturnsCreated(t *testing.T) {
	uc := &mockAutomationUsecase{CreateTaskFn: func(_ context.Context, ownerID string, req usecase.FlatTaskRequest) (*taskdomain.Task, error) {
		assert.Equal(t, "Call client", req.Title)
		assert.Equal(t, "2025-03-01T14:00:00Z", req.EventDate)
		return &taskdomain.Task{ID: "t-1"}, nil
	}}
	r := newRouter(uc, nil, staticOwner{id: "owner-1"}, apiKey)

	w := send(r, http.MethodPost, "/api/cyra/tasks", apiKey, `{"title":"Call client","event_date":"2025-03-01T14:00:00Z"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.JSONEq(t, `{"ok":true,"id":"t-1"}`, w.Body.String())
}

func TestChildrenAcceptKeyOrSession(t *testing.T) {
	var owners []string
	tasks := &mockTaskUsecase{ListSubtasksFn: func(ownerID, taskID string) ([]*taskdomain.Subtask, error) {
		owners = append(owners, ownerID)
		return []*taskdomain.Subtask{{ID: "s1", TaskID: taskID}}, nil
	}}
	r := newRouter(&mockAutomationUsecase{}, tasks, staticOwner{id: "owner-1"}, apiKey)

	w := send(r, http.MethodGet, "/api/cyra/subtasks?taskId=t1", apiKey, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = send(r, http.MethodGet, "/api/cyra/subtasks?taskId=t1", "session-token", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"owner-1", "human-1"}, owners)

	w = send(r, http.MethodGet, "/api/cyra/subtasks?taskId=t1", "nope", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = send(r, http.MethodGet, "/api/cyra/subtasks", apiKey, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}
