package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Ericcccccccccc/MusicAlarm/internal/config"
	"github.com/Ericcccccccccc/MusicAlarm/internal/util"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// SpotifyAuth handles the Spotify OAuth2 token endpoint.
// It is stateless apart from its HTTP client; callers persist the returned tokens.
type SpotifyAuth struct {
	httpClient *http.Client
	oauth      oauth2.Config
	now        func() time.Time
}

// NewSpotifyAuth creates a SpotifyAuth for the configured client registration.
// When httpClient is nil a proxy aware client with the configured timeout is used.
func NewSpotifyAuth(cfg *config.Config, httpClient *http.Client) *SpotifyAuth {
	if httpClient == nil {
		httpClient = util.NewHTTPClient(cfg)
	}
	sp := cfg.Spotify
	return &SpotifyAuth{
		httpClient: httpClient,
		oauth: oauth2.Config{
			ClientID:    sp.ClientID,
			RedirectURL: sp.RedirectURI,
			Scopes:      append([]string(nil), sp.Scopes...),
			Endpoint: oauth2.Endpoint{
				AuthURL:   sp.AuthorizeURL,
				TokenURL:  sp.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		now: time.Now,
	}
}

// RedirectURI returns the registered redirect URI.
func (o *SpotifyAuth) RedirectURI() string { return o.oauth.RedirectURL }

// GenerateAuthURL creates the authorization URL carrying the PKCE challenge.
func (o *SpotifyAuth) GenerateAuthURL(state string, pkceCodes *PKCECodes) (string, error) {
	if pkceCodes == nil {
		return "", fmt.Errorf("PKCE codes are required")
	}
	if state == "" {
		return "", fmt.Errorf("state is required")
	}
	return o.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", pkceCodes.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	), nil
}

// ExchangeCodeForTokens redeems an authorization code using the PKCE verifier.
func (o *SpotifyAuth) ExchangeCodeForTokens(ctx context.Context, code, codeVerifier, redirectURI string) (*TokenSet, error) {
	if code == "" {
		return nil, fmt.Errorf("authorization code is required")
	}
	if redirectURI == "" {
		redirectURI = o.oauth.RedirectURL
	}
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"code_verifier": {codeVerifier},
		"client_id":     {o.oauth.ClientID},
	}

	status, body, err := o.postForm(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("token exchange request failed: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, &TokenExchangeError{StatusCode: status, OAuth: parseOAuthError(status, body), Err: errors.New(truncate(body))}
	}
	tokens, err := o.parseTokenResponse(body)
	if err != nil {
		return nil, &TokenExchangeError{StatusCode: status, Err: err}
	}
	return tokens, nil
}

// RefreshTokens obtains a new access token. When the response omits refresh_token the
// input refreshToken is carried forward.
func (o *SpotifyAuth) RefreshTokens(ctx context.Context, refreshToken string) (*TokenSet, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh token is required")
	}
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {o.oauth.ClientID},
	}

	status, body, err := o.postForm(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("token refresh request failed: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, &TokenRefreshError{StatusCode: status, OAuth: parseOAuthError(status, body), Err: errors.New(truncate(body))}
	}
	tokens, err := o.parseTokenResponse(body)
	if err != nil {
		return nil, &TokenRefreshError{StatusCode: status, Err: err}
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}
	return tokens, nil
}

func (o *SpotifyAuth) postForm(ctx context.Context, data url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.oauth.Endpoint.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("token response body close error: %v", errClose)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read token response: %w", err)
	}
	log.WithFields(log.Fields{"provider": "spotify", "status": resp.StatusCode}).Debugf("token endpoint responded to %s grant", data.Get("grant_type"))
	return resp.StatusCode, body, nil
}

func (o *SpotifyAuth) parseTokenResponse(body []byte) (*TokenSet, error) {
	receivedAt := o.now()
	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	return &TokenSet{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		Scope:        tokenResp.Scope,
		ExpiresAt:    receivedAt.Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}, nil
}

func parseOAuthError(status int, body []byte) *OAuthError {
	var oauthErr OAuthError
	if err := json.Unmarshal(body, &oauthErr); err != nil || oauthErr.Code == "" {
		return nil
	}
	oauthErr.StatusCode = status
	return &oauthErr
}

func truncate(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
