// Package auth owns the Spotify session: credential persistence, the interactive
// authorization flow and the session manager every API call goes through.
package auth

import (
	"context"

	"github.com/Ericcccccccccc/MusicAlarm/internal/auth/spotify"
)

// SecureStore is an opaque key/value store for credential material.
// Retrieve reports found=false for a missing key. Delete of a missing key succeeds.
type SecureStore interface {
	Save(ctx context.Context, key, value string) error
	Retrieve(ctx context.Context, key string) (value string, found bool, err error)
	Delete(ctx context.Context, key string) error
}

// UserAgent presents the authorize URL to the user and returns the callback URL
// the provider redirected to. Dismissal is reported as ErrUserCancelled.
type UserAgent interface {
	Present(ctx context.Context, authorizeURL, callbackScheme string) (callbackURL string, err error)
}

// TokenExchanger talks to the provider's token endpoint.
// *spotify.SpotifyAuth is the production implementation.
type TokenExchanger interface {
	RedirectURI() string
	GenerateAuthURL(state string, pkceCodes *spotify.PKCECodes) (string, error)
	ExchangeCodeForTokens(ctx context.Context, code, codeVerifier, redirectURI string) (*spotify.TokenSet, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*spotify.TokenSet, error)
}

// LoginOptions captures the knobs used to pick a user agent for interactive login.
type LoginOptions struct {
	// NoBrowser skips launching the system browser and the loopback callback server.
	NoBrowser bool

	// Prompt reads a line from the user. Required whenever the prompt user agent is used.
	Prompt func(prompt string) (string, error)
}
