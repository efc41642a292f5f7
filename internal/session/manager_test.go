package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fincoach/fincoach/internal/config"
	"github.com/fincoach/fincoach/internal/profile"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(ttl time.Duration) *config.Config {
	return &config.Config{
		Env: config.EnvDevelopment,
		Session: config.SessionConfig{
			SecretKey:  "test-secret",
			CookieName: "fincoach_session",
			TTL:        ttl,
		},
	}
}

func saveAndReload(t *testing.T, m *Manager, sess *Session) *Session {
	t.Helper()

	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(rec, sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	return m.Get(req)
}

func TestRoundTrip(t *testing.T) {
	m := NewManager(testConfig(time.Hour))

	original := &Session{
		Token: &TokenRecord{
			AccessToken: "at-123",
			TokenType:   "Bearer",
			IDToken:     "id-456",
			Expiry:      time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		},
		Profile: &profile.Profile{
			Name:    "Ann",
			Email:   "ann@x.com",
			Picture: "https://x.com/p.png",
		},
	}

	got := saveAndReload(t, m, original)

	require.NotNil(t, got.Profile)
	if diff := cmp.Diff(original.Profile, got.Profile); diff != "" {
		t.Errorf("profile did not round-trip (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(original.Token, got.Token); diff != "" {
		t.Errorf("token did not round-trip (-want +got):\n%s", diff)
	}
	assert.True(t, got.Authenticated())
}

func TestCookieAttributes(t *testing.T) {
	m := NewManager(testConfig(time.Hour))

	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(rec, &Session{State: "s"}))

	cookie := rec.Result().Cookies()[0]
	assert.Equal(t, "fincoach_session", cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, 3600, cookie.MaxAge)
	assert.False(t, cookie.Secure, "development cookies are not Secure")
}

func TestSecureCookieInProduction(t *testing.T) {
	cfg := testConfig(time.Hour)
	cfg.Env = config.EnvProduction
	m := NewManager(cfg)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(rec, &Session{State: "s"}))
	assert.True(t, rec.Result().Cookies()[0].Secure)
}

func TestTamperedCookieReadsAsEmpty(t *testing.T) {
	m := NewManager(testConfig(time.Hour))

	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(rec, &Session{Profile: &profile.Profile{Name: "Ann"}}))
	cookie := rec.Result().Cookies()[0]

	cookie.Value = cookie.Value[:len(cookie.Value)-4] + "AAAA"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	got := m.Get(req)
	assert.False(t, got.Authenticated())
	assert.Nil(t, got.Profile)
}

func TestWrongKeyReadsAsEmpty(t *testing.T) {
	m := NewManager(testConfig(time.Hour))

	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(rec, &Session{Profile: &profile.Profile{Name: "Ann"}}))
	cookie := rec.Result().Cookies()[0]

	other := testConfig(time.Hour)
	other.Session.SecretKey = "different-secret"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	assert.False(t, NewManager(other).Get(req).Authenticated())
}

func TestExpiredSessionReadsAsEmpty(t *testing.T) {
	m := NewManager(testConfig(time.Millisecond))

	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(rec, &Session{Profile: &profile.Profile{Name: "Ann"}}))
	cookie := rec.Result().Cookies()[0]

	time.Sleep(10 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	assert.False(t, m.Get(req).Authenticated())
}

func TestMissingCookieReadsAsEmpty(t *testing.T) {
	m := NewManager(testConfig(time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	got := m.Get(req)
	assert.False(t, got.Authenticated())
	assert.Empty(t, got.Keys())
}

func TestClearSetsDeletionCookie(t *testing.T) {
	m := NewManager(testConfig(time.Hour))

	rec := httptest.NewRecorder()
	m.Clear(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}
