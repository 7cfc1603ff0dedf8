// Package executor performs authenticated Spotify Web API requests.
package executor

import (
	"bytes"
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
	"github.com/Ericcccccccccc/MusicAlarm/internal/logging"
	"github.com/Ericcccccccccc/MusicAlarm/internal/misc"
	"github.com/Ericcccccccccc/MusicAlarm/internal/util"
	log "github.com/sirupsen/logrus"
)

// TokenSource hands out bearer tokens. It is implemented by the auth session manager.
type TokenSource interface {
	GetValidAccessToken(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context, staleToken string) (string, error)
}

// sessionEnder is implemented by token sources that can drop their credentials.
type sessionEnder interface {
	Logout(ctx context.Context)
}

// Request describes one Web API call. Path is relative to the API base URL unless
// it is already absolute (paging "next" links are).
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    []byte
	Headers http.Header
}

// Response is a successful (2xx) Web API response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Payload    []byte
}

// SpotifyExecutor injects the bearer token, retries once after a forced refresh on
// 401 and classifies every failure as a *StatusError.
type SpotifyExecutor struct {
	cfg        *config.Config
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	now        func() time.Time
}

// NewSpotifyExecutor creates an executor. A nil httpClient gets a proxy aware default.
func NewSpotifyExecutor(cfg *config.Config, tokens TokenSource, httpClient *http.Client) *SpotifyExecutor {
	if httpClient == nil {
		httpClient = util.NewHTTPClient(cfg)
	}
	baseURL := config.DefaultAPIBaseURL
	if cfg != nil && cfg.Spotify.APIBaseURL != "" {
		baseURL = cfg.Spotify.APIBaseURL
	}
	return &SpotifyExecutor{
		cfg:        cfg,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
		now:        time.Now,
	}
}

// Identifier returns the provider name used in logs.
func (e *SpotifyExecutor) Identifier() string { return "spotify" }

// Execute sends req with a bearer token. A 401 triggers exactly one forced refresh
// and retry; a second 401 ends the session and is returned as KindUnauthorized.
func (e *SpotifyExecutor) Execute(ctx context.Context, req Request) (Response, error) {
	ctx = logging.EnsureRequestID(ctx)

	token, err := e.tokens.GetValidAccessToken(ctx)
	if err != nil {
		return Response{}, err
	}

	resp, err := e.do(ctx, req, token, 1)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Kind != KindUnauthorized {
		return resp, err
	}

	logging.WithContext(ctx).WithField("provider", e.Identifier()).Debug("access token rejected, forcing refresh")
	fresh, errRefresh := e.tokens.ForceRefresh(ctx, token)
	if errRefresh != nil {
		return Response{}, &StatusError{Kind: KindUnauthorized, Code: http.StatusUnauthorized, Message: statusErr.Message, Err: errRefresh}
	}

	resp, err = e.do(ctx, req, fresh, 2)
	if errors.As(err, &statusErr) && statusErr.Kind == KindUnauthorized {
		logging.WithContext(ctx).WithField("provider", e.Identifier()).Warn("access token rejected after refresh, ending session")
		if ender, ok := e.tokens.(sessionEnder); ok {
			ender.Logout(ctx)
		}
	}
	return resp, err
}

// ExecuteJSON runs Execute and decodes the payload into out. An empty payload
// leaves out untouched.
func (e *SpotifyExecutor) ExecuteJSON(ctx context.Context, req Request, out any) (Response, error) {
	resp, err := e.Execute(ctx, req)
	if err != nil {
		return resp, err
	}
	if out == nil || len(bytes.TrimSpace(resp.Payload)) == 0 {
		return resp, nil
	}
	if err = json.Unmarshal(resp.Payload, out); err != nil {
		return resp, &StatusError{Kind: KindInvalidResponse, Code: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return resp, nil
}

func (e *SpotifyExecutor) do(ctx context.Context, req Request, token string, attempt int) (Response, error) {
	endpoint, err := e.resolveURL(req)
	if err != nil {
		return Response{}, &StatusError{Kind: KindNetworkError, Err: err}
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return Response{}, &StatusError{Kind: KindNetworkError, Err: err}
	}
	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	misc.EnsureHeader(httpReq.Header, req.Headers, "Accept", "application/json")
	if len(req.Body) > 0 {
		misc.EnsureHeader(httpReq.Header, req.Headers, "Content-Type", "application/json")
	}

	entry := logging.WithContext(ctx).WithFields(log.Fields{
		"provider": e.Identifier(),
		"method":   method,
		"url":      endpoint,
		"attempt":  attempt,
	})
	if e.cfg != nil && e.cfg.RequestLog {
		entry.Debug("spotify api request")
	}

	httpResp, err := e.httpClient.Do(httpReq)
	if err != nil {
		entry.WithField("error", err).Debug("spotify api transport error")
		return Response{}, &StatusError{Kind: KindNetworkError, Err: err}
	}
	defer func() {
		if errClose := httpResp.Body.Close(); errClose != nil {
			log.Errorf("spotify executor: close response body error: %v", errClose)
		}
	}()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, &StatusError{Kind: KindNetworkError, Code: httpResp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	entry = entry.WithField("status", httpResp.StatusCode)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		statusErr := newStatusError(httpResp, data, e.now())
		entry.Debugf("request error: %s", statusErr.Message)
		return Response{}, statusErr
	}
	if e.cfg != nil && e.cfg.RequestLog {
		entry.Debug("spotify api response")
	}
	return Response{StatusCode: httpResp.StatusCode, Headers: httpResp.Header.Clone(), Payload: data}, nil
}

func (e *SpotifyExecutor) resolveURL(req Request) (string, error) {
	raw := req.Path
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = e.baseURL + "/" + strings.TrimLeft(raw, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid request url: %w", err)
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for key, values := range req.Query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
