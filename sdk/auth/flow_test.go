package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

// scriptedAgent returns a fixed callback or error.
type scriptedAgent struct {
	callback string
	err      error
	gotURL   string
	gotSch   string
}

func (a *scriptedAgent) Present(_ context.Context, authorizeURL, scheme string) (string, error) {
	a.gotURL = authorizeURL
	a.gotSch = scheme
	return a.callback, a.err
}

// blockingAgent waits until its context is cancelled.
type blockingAgent struct{ started chan struct{} }

func (a *blockingAgent) Present(ctx context.Context, _, _ string) (string, error) {
	close(a.started)
	<-ctx.Done()
	return "", ctx.Err()
}

func TestAuthorizationFlowOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		redirect   string
		callback   string
		agentErr   error
		wantCode   string
		wantReason FailureReason
		wantState  FlowState
	}{
		{
			name:      "valid custom scheme",
			redirect:  "musicalarm://spotify-auth",
			callback:  "musicalarm://spotify-auth?code=abc&state=s1",
			wantCode:  "abc",
			wantState: FlowSucceeded,
		},
		{
			name:      "valid loopback",
			redirect:  "http://127.0.0.1:8888/callback",
			callback:  "http://127.0.0.1:8888/callback?code=abc&state=s1",
			wantCode:  "abc",
			wantState: FlowSucceeded,
		},
		{
			name:       "host mismatch with valid looking code",
			redirect:   "musicalarm://spotify-auth",
			callback:   "musicalarm://evil-host?code=abc&state=s1",
			wantReason: ReasonRedirectInvalid,
			wantState:  FlowFailed,
		},
		{
			name:       "host differs only in case",
			redirect:   "musicalarm://spotify-auth",
			callback:   "musicalarm://Spotify-Auth?code=abc&state=s1",
			wantReason: ReasonRedirectInvalid,
			wantState:  FlowFailed,
		},
		{
			name:       "scheme mismatch",
			redirect:   "musicalarm://spotify-auth",
			callback:   "https://spotify-auth?code=abc",
			wantReason: ReasonRedirectInvalid,
			wantState:  FlowFailed,
		},
		{
			name:       "userinfo smuggling",
			redirect:   "musicalarm://spotify-auth",
			callback:   "musicalarm://attacker@spotify-auth?code=abc",
			wantReason: ReasonRedirectInvalid,
			wantState:  FlowFailed,
		},
		{
			name:       "port mismatch",
			redirect:   "http://127.0.0.1:8888/callback",
			callback:   "http://127.0.0.1:9999/callback?code=abc",
			wantReason: ReasonRedirectInvalid,
			wantState:  FlowFailed,
		},
		{
			name:       "path mismatch",
			redirect:   "http://127.0.0.1:8888/callback",
			callback:   "http://127.0.0.1:8888/other?code=abc",
			wantReason: ReasonRedirectInvalid,
			wantState:  FlowFailed,
		},
		{
			name:       "provider denied",
			redirect:   "musicalarm://spotify-auth",
			callback:   "musicalarm://spotify-auth?error=access_denied&state=s1",
			wantReason: ReasonProviderDenied,
			wantState:  FlowFailed,
		},
		{
			name:       "no code no error",
			redirect:   "musicalarm://spotify-auth",
			callback:   "musicalarm://spotify-auth?state=s1",
			wantReason: ReasonRedirectInvalid,
			wantState:  FlowFailed,
		},
		{
			name:       "user dismissed",
			redirect:   "musicalarm://spotify-auth",
			agentErr:   ErrUserCancelled,
			wantReason: ReasonUserCancelled,
			wantState:  FlowCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := &scriptedAgent{callback: tt.callback, err: tt.agentErr}
			flow, err := NewAuthorizationFlow(agent, tt.redirect)
			if err != nil {
				t.Fatalf("NewAuthorizationFlow() error = %v", err)
			}
			result, err := flow.Start(context.Background(), "https://accounts.spotify.com/authorize?x=1")
			if got := flow.State(); got != tt.wantState {
				t.Fatalf("state = %v, want %v", got, tt.wantState)
			}
			if tt.wantCode != "" {
				if err != nil {
					t.Fatalf("Start() error = %v", err)
				}
				if result.Code != tt.wantCode || result.State != "s1" {
					t.Fatalf("result = %+v", result)
				}
				return
			}
			var authzErr *AuthorizationError
			if !errors.As(err, &authzErr) {
				t.Fatalf("Start() error = %v, want *AuthorizationError", err)
			}
			if authzErr.Reason != tt.wantReason {
				t.Fatalf("reason = %s, want %s", authzErr.Reason, tt.wantReason)
			}
			if result != nil {
				t.Fatal("failure must not carry a result")
			}
		})
	}
}

func TestAuthorizationFlowPassesSchemeToAgent(t *testing.T) {
	agent := &scriptedAgent{callback: "musicalarm://spotify-auth?code=c"}
	flow, _ := NewAuthorizationFlow(agent, "musicalarm://spotify-auth")
	if _, err := flow.Start(context.Background(), "https://example.test/authorize"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if agent.gotSch != "musicalarm" || agent.gotURL != "https://example.test/authorize" {
		t.Fatalf("agent got url %q scheme %q", agent.gotURL, agent.gotSch)
	}
}

func TestAuthorizationFlowCancel(t *testing.T) {
	agent := &blockingAgent{started: make(chan struct{})}
	flow, _ := NewAuthorizationFlow(agent, "musicalarm://spotify-auth")

	errCh := make(chan error, 1)
	go func() {
		_, err := flow.Start(context.Background(), "https://example.test/authorize")
		errCh <- err
	}()

	<-agent.started
	if got := flow.State(); got != FlowAwaitingRedirect {
		t.Fatalf("state = %v, want awaiting_redirect", got)
	}
	flow.Cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrUserCancelled) {
			t.Fatalf("Start() error = %v, want cancellation", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("flow did not return after Cancel")
	}
	if got := flow.State(); got != FlowCancelled {
		t.Fatalf("state = %v, want cancelled", got)
	}
}

func TestAuthorizationFlowDeadlineIsFailure(t *testing.T) {
	agent := &blockingAgent{started: make(chan struct{})}
	flow, _ := NewAuthorizationFlow(agent, "musicalarm://spotify-auth")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := flow.Start(ctx, "https://example.test/authorize")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Start() error = %v, want deadline exceeded", err)
	}
	if errors.Is(err, ErrUserCancelled) {
		t.Fatal("deadline must not read as a user cancellation")
	}
	if got := flow.State(); got != FlowFailed {
		t.Fatalf("state = %v, want failed", got)
	}
}

func TestNewAuthorizationFlowRejectsBadRedirect(t *testing.T) {
	if _, err := NewAuthorizationFlow(&scriptedAgent{}, "not-a-redirect"); err == nil {
		t.Fatal("expected error for redirect without scheme and host")
	}
}
