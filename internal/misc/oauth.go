package misc

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// GenerateRandomState generates a cryptographically secure random state parameter
// for OAuth2 flows to prevent CSRF attacks.
func GenerateRandomState() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// OAuthCallback captures the parsed OAuth callback parameters.
type OAuthCallback struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// HasCode reports whether the callback carries an authorization code.
func (c *OAuthCallback) HasCode() bool { return c != nil && c.Code != "" }

// HasError reports whether the provider returned an error instead of a code.
func (c *OAuthCallback) HasError() bool { return c != nil && c.Error != "" }

// ParseOAuthCallback extracts the OAuth parameters from an already validated callback URL.
// Values in the query string win; the fragment is consulted for anything still missing,
// since some providers answer with response_mode=fragment.
func ParseOAuthCallback(u *url.URL) *OAuthCallback {
	cb := &OAuthCallback{}
	if u == nil {
		return cb
	}
	sources := []url.Values{u.Query()}
	if u.Fragment != "" {
		if frag, err := url.ParseQuery(u.Fragment); err == nil {
			sources = append(sources, frag)
		}
	}
	for _, values := range sources {
		fill(&cb.Code, values, "code")
		fill(&cb.State, values, "state")
		fill(&cb.Error, values, "error")
		fill(&cb.ErrorDescription, values, "error_description")
	}
	if cb.Error == "" && cb.ErrorDescription != "" {
		cb.Error = cb.ErrorDescription
		cb.ErrorDescription = ""
	}
	return cb
}

func fill(dst *string, values url.Values, key string) {
	if *dst != "" {
		return
	}
	*dst = strings.TrimSpace(values.Get(key))
}
