package providers

import (
	"context"
	"fmt"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/fincoach/fincoach/internal/config"
	"github.com/fincoach/fincoach/internal/logger"
	"github.com/fincoach/fincoach/internal/profile"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type Auth0Provider struct {
	domain       string
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
}

// NewAuth0Provider discovers the tenant's endpoints from its issuer URL and
// prepares the code-flow client. Auth0 issuers carry a trailing slash.
func NewAuth0Provider(cfg *config.Config) (*Auth0Provider, error) {
	issuer := fmt.Sprintf("https://%s/", cfg.Auth.Domain)

	provider, err := oidc.NewProvider(context.Background(), issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider for %s: %w", issuer, err)
	}

	oauth2Cfg := &oauth2.Config{
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		RedirectURL:  cfg.CallbackURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       cfg.Auth.Scopes,
	}

	return &Auth0Provider{
		domain:       cfg.Auth.Domain,
		oauth2Config: oauth2Cfg,
		verifier:     provider.Verifier(&oidc.Config{ClientID: cfg.Auth.ClientID}),
	}, nil
}

func (p *Auth0Provider) AuthCodeURL(state, nonce string) string {
	return p.oauth2Config.AuthCodeURL(state, oidc.Nonce(nonce))
}

func (p *Auth0Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	if token == nil || token.AccessToken == "" {
		return nil, ErrNoToken
	}
	return token, nil
}

func (p *Auth0Provider) Userinfo(ctx context.Context, token *oauth2.Token) (*profile.Claims, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, ErrMissingUserinfo
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	var claims profile.Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.Sub == "" {
		return nil, ErrMissingUserinfo
	}
	claims.Nonce = idToken.Nonce

	logger.Debug("Extracted userinfo from ID token", zap.String("sub", claims.Sub))
	return &claims, nil
}

// LogoutURL builds the tenant logout endpoint. Auth0 validates returnTo
// against its allow list, so the value must match the configured base URL
// exactly; url.Values handles the percent encoding.
func (p *Auth0Provider) LogoutURL(returnTo string) string {
	query := url.Values{
		"returnTo":  {returnTo},
		"client_id": {p.oauth2Config.ClientID},
	}
	return fmt.Sprintf("https://%s/v2/logout?%s", p.domain, query.Encode())
}
