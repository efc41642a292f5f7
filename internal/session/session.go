// Package session keeps per-browser state in an encrypted cookie. The
// payload is a small typed record rather than a generic key-value map, so
// handlers get compile-time guarantees about what a session can hold.
package session

import (
	"time"

	"github.com/fincoach/fincoach/internal/profile"
)

// Flash is a one-shot user-facing notice, consumed on the next read.
type Flash struct {
	Message  string `json:"message"`
	Category string `json:"category"`
}

// TokenRecord is the opaque token material returned by the identity
// provider. It is written once per login and discarded wholesale on logout.
type TokenRecord struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	IDToken     string    `json:"id_token"`
	Expiry      time.Time `json:"expiry"`
}

// Session is the full cookie payload. A present Profile is the sole signal
// of "authenticated"; State and Nonce exist only between the login redirect
// and the provider callback.
type Session struct {
	Token    *TokenRecord     `json:"user,omitempty"`
	Profile  *profile.Profile `json:"profile,omitempty"`
	State    string           `json:"state,omitempty"`
	Nonce    string           `json:"nonce,omitempty"`
	Flashes  []Flash          `json:"flashes,omitempty"`
	IssuedAt time.Time        `json:"issued_at"`
}

// Authenticated reports whether a profile is present. Freshness is handled
// by the cookie lifetime, not here.
func (s *Session) Authenticated() bool {
	return s.Profile != nil
}

// AddFlash queues a notice for the next page that renders flashes.
func (s *Session) AddFlash(message, category string) {
	s.Flashes = append(s.Flashes, Flash{Message: message, Category: category})
}

// PopFlashes returns the queued notices and empties the queue.
func (s *Session) PopFlashes() []Flash {
	flashes := s.Flashes
	s.Flashes = nil
	return flashes
}

// Keys lists which session fields are populated, for the debug endpoint.
func (s *Session) Keys() []string {
	keys := []string{}
	if s.Token != nil {
		keys = append(keys, "user")
	}
	if s.Profile != nil {
		keys = append(keys, "profile")
	}
	if s.State != "" {
		keys = append(keys, "state")
	}
	if s.Nonce != "" {
		keys = append(keys, "nonce")
	}
	if len(s.Flashes) > 0 {
		keys = append(keys, "flashes")
	}
	return keys
}
