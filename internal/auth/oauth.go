package auth

import (
	"fmt"
	"net/http"

	"github.com/fincoach/fincoach/internal/auth/handlers"
	"github.com/fincoach/fincoach/internal/auth/middleware"
	"github.com/fincoach/fincoach/internal/auth/providers"
	"github.com/fincoach/fincoach/internal/config"
	"github.com/fincoach/fincoach/internal/session"
	"go.uber.org/fx"
)

// ErrInvalidProvider indicates an unsupported identity provider was configured
var ErrInvalidProvider = fmt.Errorf("unsupported identity provider")

// Service represents the authentication service
type Service struct {
	config   *config.Config
	provider providers.Provider
	sessions *session.Manager
	handler  *handlers.Handler
}

// NewService creates a new authentication service
func NewService(cfg *config.Config, sessions *session.Manager, provider providers.Provider) (*Service, error) {
	return &Service{
		config:   cfg,
		provider: provider,
		sessions: sessions,
		handler:  handlers.NewHandler(cfg, sessions, provider),
	}, nil
}

// NewProvider selects the identity provider named in the config.
func NewProvider(cfg *config.Config) (providers.Provider, error) {
	switch cfg.Auth.Provider {
	case "auth0", "":
		return providers.NewAuth0Provider(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidProvider, cfg.Auth.Provider)
	}
}

// RegisterRoutes registers all authentication-related routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handler.HandleHome)
	mux.HandleFunc("/auth/login", s.handler.HandleLogin)
	mux.HandleFunc("/auth/callback", s.handler.HandleCallback)
	mux.HandleFunc("/auth/logout", s.handler.HandleLogout)
	dashboardGate := middleware.RequireProfileNotice(s.sessions, "Please log in to access your dashboard.")
	mux.Handle("/auth/dashboard", dashboardGate(http.HandlerFunc(s.handler.HandleDashboard)))

	if s.config.Auth.EnableDebugRoute {
		mux.HandleFunc("/auth/debug", s.handler.HandleDebug)
	}
}

// RequireRole returns the middleware gating routes on a role claim, for
// role-restricted routes mounted outside this service.
func (s *Service) RequireRole(role string) func(http.Handler) http.Handler {
	return middleware.RequireRole(s.sessions, role)
}

// Module provides the authentication dependencies
var Module = fx.Module("auth",
	fx.Provide(
		session.NewManager,
		NewProvider,
		NewService,
	),
)
