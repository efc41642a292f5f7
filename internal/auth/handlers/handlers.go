// Package handlers implements the authentication routes: login, callback,
// dashboard, logout and the optional debug endpoint.
package handlers

import (
	"errors"
	"net/http"

	"github.com/fincoach/fincoach/internal/auth/middleware"
	"github.com/fincoach/fincoach/internal/auth/providers"
	"github.com/fincoach/fincoach/internal/config"
	"github.com/fincoach/fincoach/internal/logger"
	"github.com/fincoach/fincoach/internal/profile"
	"github.com/fincoach/fincoach/internal/session"
	"github.com/fincoach/fincoach/internal/utils"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Handler handles the authentication HTTP requests
type Handler struct {
	cfg      *config.Config
	sessions *session.Manager
	provider providers.Provider
}

// NewHandler creates a new Handler instance
func NewHandler(cfg *config.Config, sessions *session.Manager, provider providers.Provider) *Handler {
	return &Handler{
		cfg:      cfg,
		sessions: sessions,
		provider: provider,
	}
}

// HandleLogin starts the authorization-code flow: mint state and nonce,
// park them in the session, and send the browser to the provider.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method_not_allowed", "Only GET is supported", http.StatusMethodNotAllowed)
		return
	}

	logger.Debug("Login route called")

	sess := h.sessions.Get(r)
	sess.State = ksuid.New().String()
	sess.Nonce = ksuid.New().String()

	if err := h.sessions.Save(w, sess); err != nil {
		logger.Error("Failed to persist login state", zap.Error(err))
		h.flashAndRedirect(w, r, sess, "Login service temporarily unavailable. Please try again.", "error", "/")
		return
	}

	http.Redirect(w, r, h.provider.AuthCodeURL(sess.State, sess.Nonce), http.StatusFound)
}

// HandleCallback finishes the flow: exchange the code, verify the identity,
// normalize the profile and write the authenticated session. Every failure
// class maps to the same user-facing outcome - a generic notice and a
// redirect back to login - but is logged with its specific cause. Nothing
// is retried; the user simply re-initiates.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method_not_allowed", "Only GET is supported", http.StatusMethodNotAllowed)
		return
	}

	logger.Debug("Callback route called")

	sess := h.sessions.Get(r)
	query := r.URL.Query()

	if provErr := query.Get("error"); provErr != "" {
		logger.Error("Provider returned an error",
			zap.String("error", provErr),
			zap.String("description", query.Get("error_description")),
		)
		h.failLogin(w, r, sess)
		return
	}

	state := query.Get("state")
	if state == "" || sess.State == "" || state != sess.State {
		logger.Error("State mismatch on callback", zap.Bool("session_state_present", sess.State != ""))
		h.failLogin(w, r, sess)
		return
	}

	code := query.Get("code")
	if code == "" {
		logger.Error("No authorization code on callback")
		h.failLogin(w, r, sess)
		return
	}

	token, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, providers.ErrNoToken):
			logger.Error("No token received from provider")
		default:
			logger.Error("Provider connection error during exchange", zap.Error(err))
		}
		h.failLogin(w, r, sess)
		return
	}

	claims, err := h.provider.Userinfo(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, providers.ErrMissingUserinfo):
			logger.Error("No userinfo in token")
		default:
			logger.Error("Malformed token from provider", zap.Error(err))
		}
		h.failLogin(w, r, sess)
		return
	}

	// The nonce in the verified ID token must match the one minted at
	// login, tying this token to the flow that requested it.
	if sess.Nonce == "" || claims.Nonce != sess.Nonce {
		logger.Error("Nonce mismatch on ID token", zap.Bool("session_nonce_present", sess.Nonce != ""))
		h.failLogin(w, r, sess)
		return
	}

	validated, err := profile.Validate(*claims)
	if err != nil {
		// Lenient degrade: keep the login, drop the offending fields.
		logger.Warn("Profile validation warning", zap.Error(err))
		validated = profile.Sanitize(*claims)
		logger.Info("Using cleaned profile data despite validation warnings")
	}

	// Full overwrite: the new session holds exactly the token and profile,
	// which also discards the consumed state and nonce.
	authenticated := &session.Session{
		Token: &session.TokenRecord{
			AccessToken: token.AccessToken,
			TokenType:   token.TokenType,
			IDToken:     rawIDToken(token),
			Expiry:      token.Expiry,
		},
		Profile: &validated,
	}
	if err := h.sessions.Save(w, authenticated); err != nil {
		logger.Error("Failed to write authenticated session", zap.Error(err))
		h.failLogin(w, r, sess)
		return
	}

	logger.Info("User authenticated successfully", zap.String("user", validated.Identifier()))
	http.Redirect(w, r, "/auth/dashboard", http.StatusFound)
}

// HandleDashboard renders the display-safe profile subset. It sits behind
// RequireProfile, so the profile is always present here.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method_not_allowed", "Only GET is supported", http.StatusMethodNotAllowed)
		return
	}

	p := middleware.ProfileFromContext(r.Context())
	if p == nil {
		// Only reachable when the route is mounted without its gate.
		http.Redirect(w, r, "/auth/login", http.StatusFound)
		return
	}

	logger.Debug("Loading dashboard", zap.String("user", p.Email))

	utils.WriteJSON(w, map[string]interface{}{
		"userinfo": map[string]string{
			"name":    p.Name,
			"email":   p.Email,
			"picture": p.Picture,
		},
	})
}

// HandleLogout clears the session and hands the browser to the provider's
// logout endpoint so the upstream session ends too. Safe to call while
// already anonymous.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method_not_allowed", "Only GET is supported", http.StatusMethodNotAllowed)
		return
	}

	sess := h.sessions.Get(r)
	user := "unknown"
	if sess.Profile != nil {
		user = sess.Profile.Identifier()
	}
	logger.Info("User logging out", zap.String("user", user))

	h.sessions.Clear(w)
	http.Redirect(w, r, h.provider.LogoutURL(h.cfg.BaseURL), http.StatusFound)
}

// HandleDebug dumps session key names and the stored profile. Read-only,
// and only mounted when explicitly enabled in the config.
func (h *Handler) HandleDebug(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.WriteError(w, "method_not_allowed", "Only GET is supported", http.StatusMethodNotAllowed)
		return
	}

	sess := h.sessions.Get(r)
	if sess.Profile == nil {
		utils.WriteJSON(w, map[string]interface{}{
			"error":        "No profile in session",
			"session_keys": sess.Keys(),
		})
		return
	}

	userKeys := []string{}
	if sess.Token != nil {
		userKeys = []string{"access_token", "token_type", "id_token", "expiry"}
	}

	utils.WriteJSON(w, map[string]interface{}{
		"profile":      sess.Profile,
		"user_keys":    userKeys,
		"session_keys": sess.Keys(),
	})
}

// HandleHome reports authentication state and drains queued flash notices.
func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	sess := h.sessions.Get(r)
	flashes := sess.PopFlashes()
	if len(flashes) > 0 {
		if err := h.sessions.Save(w, sess); err != nil {
			logger.Error("Failed to save session", zap.Error(err))
		}
	}
	if flashes == nil {
		flashes = []session.Flash{}
	}

	resp := map[string]interface{}{
		"authenticated": sess.Authenticated(),
		"flashes":       flashes,
	}
	if sess.Profile != nil {
		resp["username"] = sess.Profile.Name
	}
	utils.WriteJSON(w, resp)
}

// failLogin records the generic notice and sends the user back to login.
// The session's token and profile are left exactly as they were; only the
// pending state and nonce are dropped.
func (h *Handler) failLogin(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.State = ""
	sess.Nonce = ""
	h.flashAndRedirect(w, r, sess, "Authentication failed. Please try again.", "error", "/auth/login")
}

func (h *Handler) flashAndRedirect(w http.ResponseWriter, r *http.Request, sess *session.Session, message, category, target string) {
	sess.AddFlash(message, category)
	if err := h.sessions.Save(w, sess); err != nil {
		logger.Error("Failed to save session", zap.Error(err))
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func rawIDToken(token *oauth2.Token) string {
	raw, _ := token.Extra("id_token").(string)
	return raw
}
