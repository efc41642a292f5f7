package providers

import (
	"context"
	"errors"

	"github.com/fincoach/fincoach/internal/profile"
	"golang.org/x/oauth2"
)

// Callback failure classes. They all surface to the user as the same
// generic notice but are logged with their distinct cause.
var (
	// ErrNoToken indicates the provider returned an empty token response.
	ErrNoToken = errors.New("provider returned no token")
	// ErrMissingUserinfo indicates the token carried no usable identity claims.
	ErrMissingUserinfo = errors.New("no userinfo in token")
	// ErrExchange indicates the code-for-token exchange itself failed,
	// typically a connectivity problem reaching the provider.
	ErrExchange = errors.New("code exchange failed")
	// ErrMalformedToken indicates the token response had an unexpected shape
	// or its ID token failed verification.
	ErrMalformedToken = errors.New("malformed token response")
)

// Provider defines the interface that all identity providers must implement
type Provider interface {
	// AuthCodeURL returns the provider authorization URL carrying the
	// configured redirect URI plus the given state and nonce
	AuthCodeURL(state, nonce string) string

	// Exchange trades an authorization code for tokens
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// Userinfo verifies the token's identity material and returns the raw
	// claims, carrying the token's nonce for the caller to compare
	Userinfo(ctx context.Context, token *oauth2.Token) (*profile.Claims, error)

	// LogoutURL returns the provider-side logout URL that ends the upstream
	// session and returns the browser to returnTo
	LogoutURL(returnTo string) string
}
