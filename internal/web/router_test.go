package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/cms-service/internal/core/repository"
	logicv1 "github.com/duynhne/cms-service/internal/logic/v1"
)

func newTestRouter(t *testing.T, shuttingDown *atomic.Bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := repository.NewMemoryStore()
	auth := logicv1.NewAuthService(logicv1.NewCredentialStore(store.Users(), 0), store.Sessions())
	return NewRouter(auth, RouterConfig{ServiceName: "test", ShuttingDown: shuttingDown})
}

func send(r http.Handler, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "session_id" {
			return c
		}
	}
	t.Fatal("no session_id cookie set")
	return nil
}

func TestRouter_LoginLogoutScenario(t *testing.T) {
	r := newTestRouter(t, nil)

	w := send(r, http.MethodPost, "/api/auth/register", gin.H{
		"name":     "Test User",
		"email":    "test@example.com",
		"password": "TestPass123!",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var registered struct {
		Success bool `json:"success"`
		User    struct {
			Role string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registered))
	assert.True(t, registered.Success)
	assert.Equal(t, "viewer", registered.User.Role)
	assert.Empty(t, w.Result().Cookies(), "registration does not log in")

	w = send(r, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "test@example.com",
		"password": "TestPass123!",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var loggedIn struct {
		Success   bool   `json:"success"`
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loggedIn))
	require.NotEmpty(t, loggedIn.SessionID)

	setCookie := w.Header().Get("Set-Cookie")
	assert.Contains(t, setCookie, "Max-Age=86400")
	assert.Contains(t, setCookie, "HttpOnly")
	assert.Contains(t, setCookie, "SameSite=Strict")
	assert.Contains(t, setCookie, "Path=/")

	cookie := sessionCookie(t, w)
	assert.Equal(t, loggedIn.SessionID, cookie.Value)

	w = send(r, http.MethodGet, "/dashboard", nil, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test@example.com")

	w = send(r, http.MethodGet, "/auth/login", nil, cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = send(r, http.MethodPost, "/api/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")

	w = send(r, http.MethodGet, "/dashboard", nil, cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login", w.Header().Get("Location"))

	w = send(r, http.MethodPost, "/api/auth/logout", nil, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_AnonymousPages(t *testing.T) {
	r := newTestRouter(t, nil)

	w := send(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login", w.Header().Get("Location"))

	for _, path := range []string{"/auth/login", "/auth/register"} {
		w = send(r, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	var shuttingDown atomic.Bool
	r := newTestRouter(t, &shuttingDown)

	assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "/ready", nil).Code)
	assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "/metrics", nil).Code)

	shuttingDown.Store(true)
	assert.Equal(t, http.StatusServiceUnavailable, send(r, http.MethodGet, "/ready", nil).Code)
}

func TestRouter_OperationalLookalikesAreGated(t *testing.T) {
	r := newTestRouter(t, nil)

	for _, path := range []string{"/healthcheck-admin", "/readyz", "/metrics-dashboard"} {
		w := send(r, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/auth/login", w.Header().Get("Location"), path)
	}
}
