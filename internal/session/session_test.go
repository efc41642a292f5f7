package session

import (
	"testing"

	"github.com/fincoach/fincoach/internal/profile"
	"github.com/stretchr/testify/assert"
)

func TestFlashes(t *testing.T) {
	sess := &Session{}
	sess.AddFlash("Please log in to access this page.", "info")
	sess.AddFlash("Authentication failed. Please try again.", "error")

	flashes := sess.PopFlashes()
	assert.Len(t, flashes, 2)
	assert.Equal(t, "info", flashes[0].Category)
	assert.Empty(t, sess.PopFlashes(), "flashes are consumed on read")
}

func TestKeys(t *testing.T) {
	sess := &Session{}
	assert.Empty(t, sess.Keys())

	sess.State = "s"
	sess.Nonce = "n"
	assert.ElementsMatch(t, []string{"state", "nonce"}, sess.Keys())

	sess = &Session{
		Token:   &TokenRecord{AccessToken: "at"},
		Profile: &profile.Profile{Name: "Ann"},
	}
	assert.ElementsMatch(t, []string{"user", "profile"}, sess.Keys())
}

func TestAuthenticated(t *testing.T) {
	assert.False(t, (&Session{}).Authenticated())
	assert.False(t, (&Session{Token: &TokenRecord{AccessToken: "at"}}).Authenticated(),
		"a token without a profile is not an authenticated session")
	assert.True(t, (&Session{Profile: &profile.Profile{Name: "Ann"}}).Authenticated())
}
