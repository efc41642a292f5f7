package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fincoach/fincoach/internal/config"
	"github.com/fincoach/fincoach/internal/profile"
	"github.com/fincoach/fincoach/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessions(t *testing.T) *session.Manager {
	t.Helper()
	return session.NewManager(&config.Config{
		Env: config.EnvDevelopment,
		Session: config.SessionConfig{
			SecretKey:  "test-secret",
			CookieName: "fincoach_session",
			TTL:        time.Hour,
		},
	})
}

func authCookie(t *testing.T, sessions *session.Manager, p *profile.Profile) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, sessions.Save(rec, &session.Session{Profile: p}))
	return rec.Result().Cookies()[0]
}

func TestRequireProfileRedirectsAnonymous(t *testing.T) {
	sessions := newSessions(t)
	called := false
	gate := RequireProfile(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/dashboard", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))

	// The redirect carries the flash notice in a fresh session cookie.
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	flashes := sessions.Get(req).PopFlashes()
	require.Len(t, flashes, 1)
	assert.Equal(t, "Please log in to access this page.", flashes[0].Message)
	assert.Equal(t, "info", flashes[0].Category)
}

func TestRequireProfileNoticeOverridesMessage(t *testing.T) {
	sessions := newSessions(t)
	gate := RequireProfileNotice(sessions, "Please log in to access your dashboard.")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/dashboard", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	flashes := sessions.Get(req).PopFlashes()
	require.Len(t, flashes, 1)
	assert.Equal(t, "Please log in to access your dashboard.", flashes[0].Message)
}

func TestRequireProfilePassesAuthenticated(t *testing.T) {
	sessions := newSessions(t)
	cookie := authCookie(t, sessions, &profile.Profile{Name: "Ann", Email: "ann@x.com"})

	var got *profile.Profile
	gate := RequireProfile(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ProfileFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/dashboard", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "ann@x.com", got.Email)
	assert.Empty(t, rec.Result().Cookies(), "success path does not rewrite the session")
}

func TestRequireRole(t *testing.T) {
	sessions := newSessions(t)
	gate := RequireRole(sessions, "admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("role present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.AddCookie(authCookie(t, sessions, &profile.Profile{Name: "Ann", Roles: []string{"admin"}}))
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("role missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.AddCookie(authCookie(t, sessions, &profile.Profile{Name: "Bo"}))
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
	})

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
	})
}

func TestProfileFromContextWithoutGate(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, ProfileFromContext(req.Context()))
}
