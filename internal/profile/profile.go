// Package profile normalizes identity-provider claims into the display-safe
// record the rest of the app works with.
package profile

import (
	"github.com/fincoach/fincoach/internal/logger"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// PlaceholderName is stored when the provider sends no usable name.
const PlaceholderName = "Unknown User"

// Claims is the raw subset of ID-token claims this app reads. Nonce is
// protocol material: the callback compares it to the value minted at login
// before the claims are trusted.
type Claims struct {
	Sub     string   `json:"sub"`
	Name    string   `json:"name"`
	Email   string   `json:"email"`
	Picture string   `json:"picture"`
	Roles   []string `json:"roles"`
	Nonce   string   `json:"nonce"`
}

// Profile is the normalized record kept in the session. Email and Picture
// are optional; an empty string means the provider did not supply a usable
// value.
type Profile struct {
	Name    string   `json:"name" validate:"required,min=1,max=100"`
	Email   string   `json:"email" validate:"omitempty,email"`
	Picture string   `json:"picture" validate:"omitempty,url"`
	Roles   []string `json:"roles,omitempty"`
}

var validate = validator.New()

// Validate maps raw claims to a Profile, enforcing the field rules: name
// 1-100 chars (placeholder applied when absent), email optional but well
// formed when present, picture optional but a URL when present.
func Validate(claims Claims) (Profile, error) {
	p := fromClaims(claims)

	logger.Debug("Validating profile data",
		zap.String("name", p.Name),
		zap.String("email", p.Email),
		zap.String("picture", p.Picture),
	)

	if err := validate.Struct(&p); err != nil {
		logger.Warn("Profile validation failed", zap.Error(err))
		return Profile{}, err
	}
	return p, nil
}

// Sanitize is the lenient fallback used when Validate rejects the claims:
// authentication must not fail over a cosmetic field. Each field is checked
// on its own and dropped when invalid; the name falls back to the
// placeholder.
func Sanitize(claims Claims) Profile {
	p := fromClaims(claims)

	if err := validate.Var(p.Name, "required,min=1,max=100"); err != nil {
		p.Name = PlaceholderName
	}
	if p.Email != "" {
		if err := validate.Var(p.Email, "email"); err != nil {
			logger.Debug("Dropping invalid email from profile", zap.String("email", p.Email))
			p.Email = ""
		}
	}
	if p.Picture != "" {
		if err := validate.Var(p.Picture, "url"); err != nil {
			logger.Debug("Dropping invalid picture URL from profile", zap.String("picture", p.Picture))
			p.Picture = ""
		}
	}
	return p
}

// HasRole reports whether the profile carries the given role claim.
func (p Profile) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Identifier returns the best available identity for log lines: email,
// then name, then a fixed fallback.
func (p Profile) Identifier() string {
	if p.Email != "" {
		return p.Email
	}
	if p.Name != "" {
		return p.Name
	}
	return "Unknown"
}

func fromClaims(claims Claims) Profile {
	name := claims.Name
	if name == "" {
		name = PlaceholderName
	}
	return Profile{
		Name:    name,
		Email:   claims.Email,
		Picture: claims.Picture,
		Roles:   claims.Roles,
	}
}
