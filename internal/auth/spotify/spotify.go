// Package spotify implements the OAuth2 authorization code flow with PKCE against
// the Spotify accounts service. It builds authorization URLs, redeems authorization
// codes, refreshes access tokens and runs the optional loopback callback server.
package spotify

import "time"

// PKCECodes holds the verifier and challenge for a single authorization attempt.
// The pair is never persisted.
type PKCECodes struct {
	// CodeVerifier is the high-entropy secret sent when redeeming the code.
	CodeVerifier string `json:"-"`
	// CodeChallenge is BASE64URL(SHA256(CodeVerifier)) sent on the authorize URL.
	CodeChallenge string `json:"code_challenge"`
}

// TokenSet is the credential bundle returned by the token endpoint.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	// ExpiresAt is computed when the token response is received.
	ExpiresAt time.Time
}

// tokenResponse mirrors the JSON body of a successful token endpoint call.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}
