package session

import (
	"crypto/sha256"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fincoach/fincoach/internal/config"
	"github.com/fincoach/fincoach/internal/logger"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwe"
	"go.uber.org/zap"
)

// Manager encrypts sessions into a single HttpOnly cookie. The JSON payload
// is wrapped as a compact JWE with a direct symmetric key derived from the
// configured secret, so the client can neither read nor forge it.
type Manager struct {
	key        []byte
	cookieName string
	ttl        time.Duration
	secure     bool
}

func NewManager(cfg *config.Config) *Manager {
	// The configured secret can be any string; hashing it yields the fixed
	// 32-byte key A256GCM needs.
	key := sha256.Sum256([]byte(cfg.Session.SecretKey))

	return &Manager{
		key:        key[:],
		cookieName: cfg.Session.CookieName,
		ttl:        cfg.Session.TTL,
		secure:     cfg.IsProduction(),
	}
}

// Get decodes the session cookie. Any failure - missing cookie, bad
// ciphertext, stale payload - yields a fresh empty session; a broken cookie
// is indistinguishable from no cookie at all.
func (m *Manager) Get(r *http.Request) *Session {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return &Session{}
	}

	payload, err := jwe.Decrypt([]byte(cookie.Value), jwe.WithKey(jwa.DIRECT, m.key))
	if err != nil {
		logger.Debug("Discarding undecryptable session cookie", zap.Error(err))
		return &Session{}
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		logger.Debug("Discarding malformed session payload", zap.Error(err))
		return &Session{}
	}

	// The cookie MaxAge already bounds the lifetime browser-side; this is
	// the server-side check for replayed old cookies.
	if !sess.IssuedAt.IsZero() && time.Since(sess.IssuedAt) > m.ttl {
		logger.Debug("Discarding expired session", zap.Time("issued_at", sess.IssuedAt))
		return &Session{}
	}

	return &sess
}

// Save writes the session as a full overwrite of the cookie. Concurrent
// requests from the same browser may race, but each write is complete, so
// the worst case is a wasted provider round trip, never a torn session.
func (m *Manager) Save(w http.ResponseWriter, sess *Session) error {
	sess.IssuedAt = time.Now().UTC()

	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	encrypted, err := jwe.Encrypt(payload,
		jwe.WithKey(jwa.DIRECT, m.key),
		jwe.WithContentEncryption(jwa.A256GCM),
	)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    string(encrypted),
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear always sets a deletion cookie, even when no session cookie came in,
// which keeps logout idempotent from the browser's point of view.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
