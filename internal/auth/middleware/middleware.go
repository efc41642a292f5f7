package middleware

import (
	"context"
	"net/http"

	"github.com/fincoach/fincoach/internal/logger"
	"github.com/fincoach/fincoach/internal/profile"
	"github.com/fincoach/fincoach/internal/session"
	"go.uber.org/zap"
)

// profileContextKey is the key type for the context
type profileContextKey string

const (
	// ProfileContextKey is used to store the authenticated profile in the request context
	ProfileContextKey profileContextKey = "profile"
)

// RequireProfile gates a handler on an authenticated session. Presence of a
// profile in the session is the sole authentication signal; when it is
// missing the user gets a notice and a redirect to login instead of an
// error. The success path touches neither session nor response.
func RequireProfile(sessions *session.Manager) func(http.Handler) http.Handler {
	return RequireProfileNotice(sessions, "Please log in to access this page.")
}

// RequireProfileNotice is RequireProfile with a route-specific notice.
func RequireProfileNotice(sessions *session.Manager, notice string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := sessions.Get(r)
			if !sess.Authenticated() {
				logger.Debug("Unauthorized access attempt",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				sess.AddFlash(notice, "info")
				if err := sessions.Save(w, sess); err != nil {
					logger.Error("Failed to save session", zap.Error(err))
				}
				http.Redirect(w, r, "/auth/login", http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), ProfileContextKey, sess.Profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a handler on an authenticated session that carries the
// given role claim. Unauthenticated users go to login, authenticated users
// without the role go home.
func RequireRole(sessions *session.Manager, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		gate := RequireProfile(sessions)
		return gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := ProfileFromContext(r.Context())
			if p == nil || !p.HasRole(role) {
				logger.Warn("Insufficient permissions",
					zap.String("path", r.URL.Path),
					zap.String("required_role", role),
				)
				sess := sessions.Get(r)
				sess.AddFlash("You don't have permission to access this page.", "error")
				if err := sessions.Save(w, sess); err != nil {
					logger.Error("Failed to save session", zap.Error(err))
				}
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// ProfileFromContext returns the profile stashed by RequireProfile, or nil.
func ProfileFromContext(ctx context.Context) *profile.Profile {
	p, _ := ctx.Value(ProfileContextKey).(*profile.Profile)
	return p
}
