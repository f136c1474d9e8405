package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"cyra-kanban/pkg/config"

	"github.com/stretchr/testify/require"
)

func newTestRouter() http.Handler {
	h := NewHandler(Deps{Config: &config.Config{AppEnv: "test", CyraAPIKey: "k"}})
	return h.Router()
}

func TestHealthIsPublic(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRoutesRequireCredentials(t *testing.T) {
	r := newTestRouter()
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/tasks"},
		{http.MethodGet, "/api/events"},
		{http.MethodGet, "/api/settings"},
		{http.MethodGet, "/api/notes"},
		{http.MethodGet, "/api/clients"},
		{http.MethodPost, "/api/cyra"},
		{http.MethodPost, "/api/cyra/tasks"},
		{http.MethodGet, "/api/cyra/subtasks?taskId=t1"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		require.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "https://board.example.com")
	w := httptest.NewRecorder()
	newTestRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "https://board.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
