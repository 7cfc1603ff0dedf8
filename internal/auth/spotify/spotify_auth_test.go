package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ericcccccccccc/MusicAlarm/internal/config"
)

func newTestAuth(t *testing.T, handler http.HandlerFunc) *SpotifyAuth {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Spotify.TokenURL = srv.URL + "/api/token"
	cfg.CredentialStore.Type = config.StoreTypeMemory
	cfg.ApplyDefaults()

	auth := NewSpotifyAuth(cfg, srv.Client())
	fixed := time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return fixed }
	return auth
}

func TestGenerateAuthURL(t *testing.T) {
	cfg := &config.Config{}
	cfg.CredentialStore.Type = config.StoreTypeMemory
	cfg.ApplyDefaults()
	auth := NewSpotifyAuth(cfg, http.DefaultClient)

	raw, err := auth.GenerateAuthURL("state-1", &PKCECodes{CodeVerifier: "v", CodeChallenge: "challenge"})
	if err != nil {
		t.Fatalf("GenerateAuthURL() error = %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if got := u.Scheme + "://" + u.Host + u.Path; got != config.DefaultAuthorizeURL {
		t.Fatalf("authorize endpoint = %q", got)
	}
	q := u.Query()
	want := map[string]string{
		"response_type":         "code",
		"client_id":             config.DefaultClientID,
		"redirect_uri":          config.DefaultRedirectURI,
		"state":                 "state-1",
		"code_challenge":        "challenge",
		"code_challenge_method": "S256",
		"scope":                 strings.Join(config.DefaultScopes, " "),
	}
	for k, v := range want {
		if got := q.Get(k); got != v {
			t.Fatalf("%s = %q, want %q", k, got, v)
		}
	}
	if q.Has("code_verifier") {
		t.Fatal("verifier must never appear on the authorize url")
	}

	if _, err = auth.GenerateAuthURL("s", nil); err == nil {
		t.Fatal("expected error without PKCE codes")
	}
}

func TestExchangeCodeForTokens(t *testing.T) {
	auth := newTestAuth(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("content type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		want := map[string]string{
			"grant_type":    "authorization_code",
			"code":          "auth-code",
			"redirect_uri":  "musicalarm://spotify-auth",
			"code_verifier": "verifier",
			"client_id":     config.DefaultClientID,
		}
		for k, v := range want {
			if got := r.PostForm.Get(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600,"refresh_token":"rt","scope":"streaming"}`))
	})

	tokens, err := auth.ExchangeCodeForTokens(context.Background(), "auth-code", "verifier", "musicalarm://spotify-auth")
	if err != nil {
		t.Fatalf("ExchangeCodeForTokens() error = %v", err)
	}
	if tokens.AccessToken != "at" || tokens.RefreshToken != "rt" || tokens.TokenType != "Bearer" {
		t.Fatalf("tokens = %+v", tokens)
	}
	wantExpiry := auth.now().Add(time.Hour)
	if !tokens.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("ExpiresAt = %v, want %v", tokens.ExpiresAt, wantExpiry)
	}
}

func TestExchangeCodeForTokens_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
	}{
		{"invalid grant", http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Invalid authorization code"}`, "invalid_grant"},
		{"server error without body", http.StatusBadGateway, `upstream`, ""},
		{"unparsable success body", http.StatusOK, `not json`, ""},
		{"success missing access token", http.StatusOK, `{"token_type":"Bearer"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := newTestAuth(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := auth.ExchangeCodeForTokens(context.Background(), "c", "v", "")
			var exErr *TokenExchangeError
			if !errors.As(err, &exErr) {
				t.Fatalf("error = %T %v, want *TokenExchangeError", err, err)
			}
			if exErr.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", exErr.StatusCode, tt.status)
			}
			if tt.wantCode != "" && (exErr.OAuth == nil || exErr.OAuth.Code != tt.wantCode) {
				t.Fatalf("oauth error = %+v, want code %q", exErr.OAuth, tt.wantCode)
			}
		})
	}
}

func TestRefreshTokens_CarriesRefreshTokenForward(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"omitted", `{"access_token":"new-at","token_type":"Bearer","expires_in":3600}`, "old-rt"},
		{"rotated", `{"access_token":"new-at","token_type":"Bearer","expires_in":3600,"refresh_token":"new-rt"}`, "new-rt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := newTestAuth(t, func(w http.ResponseWriter, r *http.Request) {
				_ = r.ParseForm()
				if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") != "old-rt" {
					t.Errorf("unexpected form %v", r.PostForm)
				}
				_, _ = w.Write([]byte(tt.body))
			})
			tokens, err := auth.RefreshTokens(context.Background(), "old-rt")
			if err != nil {
				t.Fatalf("RefreshTokens() error = %v", err)
			}
			if tokens.RefreshToken != tt.want {
				t.Fatalf("refresh token = %q, want %q", tokens.RefreshToken, tt.want)
			}
			if tokens.AccessToken != "new-at" {
				t.Fatalf("access token = %q", tokens.AccessToken)
			}
		})
	}
}

func TestRefreshTokens_Rejected(t *testing.T) {
	auth := newTestAuth(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Refresh token revoked"}`))
	})
	_, err := auth.RefreshTokens(context.Background(), "revoked")
	var refreshErr *TokenRefreshError
	if !errors.As(err, &refreshErr) {
		t.Fatalf("error = %v, want *TokenRefreshError", err)
	}
	if !IsOAuthError(err) {
		t.Fatal("expected wrapped OAuthError")
	}
}

func TestRefreshTokens_TransportErrorIsNotRejection(t *testing.T) {
	var calls atomic.Int32
	auth := newTestAuth(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	auth.oauth.Endpoint.TokenURL = "http://127.0.0.1:1/api/token"

	_, err := auth.RefreshTokens(context.Background(), "rt")
	if err == nil {
		t.Fatal("expected transport error")
	}
	var refreshErr *TokenRefreshError
	if errors.As(err, &refreshErr) {
		t.Fatal("transport failure must not be classified as provider rejection")
	}
	if calls.Load() != 0 {
		t.Fatalf("unexpected calls to test server: %d", calls.Load())
	}
}
