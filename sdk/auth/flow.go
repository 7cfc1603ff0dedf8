package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/Ericcccccccccc/MusicAlarm/internal/misc"
	log "github.com/sirupsen/logrus"
)

// FlowState is the observable state of an AuthorizationFlow.
type FlowState int

const (
	FlowIdle FlowState = iota
	FlowAwaitingRedirect
	FlowSucceeded
	FlowCancelled
	FlowFailed
)

func (s FlowState) String() string {
	switch s {
	case FlowIdle:
		return "idle"
	case FlowAwaitingRedirect:
		return "awaiting_redirect"
	case FlowSucceeded:
		return "succeeded"
	case FlowCancelled:
		return "cancelled"
	case FlowFailed:
		return "failed"
	default:
		return fmt.Sprintf("FlowState(%d)", int(s))
	}
}

// AuthorizationResult is the code and state captured from a validated redirect.
type AuthorizationResult struct {
	Code  string
	State string
}

// AuthorizationFlow drives one redirect based consent handshake at a time.
type AuthorizationFlow struct {
	agent    UserAgent
	redirect *url.URL

	mu     sync.Mutex
	state  FlowState
	cancel context.CancelFunc
}

// NewAuthorizationFlow binds agent to the registered redirectURI.
func NewAuthorizationFlow(agent UserAgent, redirectURI string) (*AuthorizationFlow, error) {
	if agent == nil {
		return nil, fmt.Errorf("authorization flow: user agent is required")
	}
	redirect, err := url.Parse(strings.TrimSpace(redirectURI))
	if err != nil {
		return nil, fmt.Errorf("authorization flow: parse redirect uri: %w", err)
	}
	if redirect.Scheme == "" || redirect.Host == "" {
		return nil, fmt.Errorf("authorization flow: redirect uri %q needs a scheme and host", redirectURI)
	}
	return &AuthorizationFlow{agent: agent, redirect: redirect}, nil
}

// State returns the current flow state.
func (f *AuthorizationFlow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Start presents authorizeURL and suspends until the redirect arrives, the user
// dismisses the agent, Cancel is called, or ctx is done.
func (f *AuthorizationFlow) Start(ctx context.Context, authorizeURL string) (*AuthorizationResult, error) {
	f.mu.Lock()
	if f.state == FlowAwaitingRedirect {
		f.mu.Unlock()
		return nil, fmt.Errorf("authorization flow: a session is already in progress")
	}
	flowCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.state = FlowAwaitingRedirect
	f.mu.Unlock()
	defer cancel()

	callbackURL, err := f.agent.Present(flowCtx, authorizeURL, f.redirect.Scheme)
	if errors.Is(flowCtx.Err(), context.DeadlineExceeded) {
		f.finish(FlowFailed)
		return nil, fmt.Errorf("authorization flow: no redirect before deadline: %w", flowCtx.Err())
	}
	if err != nil {
		if errors.Is(err, ErrUserCancelled) || flowCtx.Err() != nil {
			f.finish(FlowCancelled)
			return nil, &AuthorizationError{Reason: ReasonUserCancelled}
		}
		f.finish(FlowFailed)
		return nil, fmt.Errorf("authorization flow: user agent failed: %w", err)
	}
	if flowCtx.Err() != nil {
		f.finish(FlowCancelled)
		return nil, &AuthorizationError{Reason: ReasonUserCancelled}
	}

	callback, err := f.validate(callbackURL)
	if err != nil {
		f.finish(FlowFailed)
		return nil, err
	}
	params := misc.ParseOAuthCallback(callback)
	if params.HasError() {
		f.finish(FlowFailed)
		detail := params.Error
		if params.ErrorDescription != "" {
			log.Debugf("authorization denied: %s", params.ErrorDescription)
		}
		return nil, &AuthorizationError{Reason: ReasonProviderDenied, Detail: detail}
	}
	if !params.HasCode() {
		f.finish(FlowFailed)
		return nil, &AuthorizationError{Reason: ReasonRedirectInvalid, Detail: "callback missing code"}
	}

	f.finish(FlowSucceeded)
	return &AuthorizationResult{Code: params.Code, State: params.State}, nil
}

// Cancel aborts an in-flight session. It is a no-op when nothing is pending.
func (f *AuthorizationFlow) Cancel() {
	f.mu.Lock()
	cancel := f.cancel
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (f *AuthorizationFlow) finish(state FlowState) {
	f.mu.Lock()
	f.state = state
	f.cancel = nil
	f.mu.Unlock()
}

// validate checks scheme, host and path against the registered redirect before
// any query parameter is trusted. Host comparison is exact; url.Parse already
// lowercases the scheme.
func (f *AuthorizationFlow) validate(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, &AuthorizationError{Reason: ReasonRedirectInvalid, Detail: "unparsable callback url"}
	}
	if u.Scheme != f.redirect.Scheme {
		return nil, &AuthorizationError{Reason: ReasonRedirectInvalid, Detail: "scheme mismatch"}
	}
	if u.User != nil || u.Host != f.redirect.Host {
		return nil, &AuthorizationError{Reason: ReasonRedirectInvalid, Detail: "host mismatch"}
	}
	if want := strings.TrimSuffix(f.redirect.Path, "/"); want != "" && strings.TrimSuffix(u.Path, "/") != want {
		return nil, &AuthorizationError{Reason: ReasonRedirectInvalid, Detail: "path mismatch"}
	}
	return u, nil
}
