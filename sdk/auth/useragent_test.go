package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestPromptUserAgent(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		err     error
		want    string
		wantErr error
	}{
		{"pasted url", "  musicalarm://spotify-auth?code=abc \n", nil, "musicalarm://spotify-auth?code=abc", nil},
		{"empty answer cancels", "\n", nil, "", ErrUserCancelled},
		{"eof cancels", "", io.EOF, "", ErrUserCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			var copied string
			agent := &PromptUserAgent{
				Prompt:          func(string) (string, error) { return tt.answer, tt.err },
				Out:             &out,
				CopyToClipboard: func(s string) error { copied = s; return nil },
			}
			got, err := agent.Present(context.Background(), "https://accounts.spotify.com/authorize?a=b", "musicalarm")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Present() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("Present() = %q, %v", got, err)
			}
			if copied != "https://accounts.spotify.com/authorize?a=b" {
				t.Fatalf("clipboard = %q", copied)
			}
			if !strings.Contains(out.String(), "authorize?a=b") {
				t.Fatalf("output missing url: %q", out.String())
			}
		})
	}
}

func TestPromptUserAgentHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	agent := &PromptUserAgent{
		Prompt:          func(string) (string, error) { <-block; return "", nil },
		Out:             io.Discard,
		CopyToClipboard: func(string) error { return nil },
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := agent.Present(ctx, "https://x", "musicalarm"); !errors.Is(err, ErrUserCancelled) {
		t.Fatalf("Present() error = %v, want ErrUserCancelled", err)
	}
}

func TestBrowserUserAgentCapturesLoopbackRedirect(t *testing.T) {
	agent := &BrowserUserAgent{Port: freePort(t), CallbackPath: "/callback", Out: io.Discard}
	agent.OpenURL = func(authorizeURL string) error {
		u, _ := url.Parse(authorizeURL)
		// Simulate the provider redirecting the browser.
		go func() {
			target := fmt.Sprintf("http://127.0.0.1:%d/callback?code=abc&state=%s", agent.Port, u.Query().Get("state"))
			if resp, err := http.Get(target); err == nil {
				_ = resp.Body.Close()
			}
		}()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := agent.Present(ctx, "https://accounts.spotify.test/authorize?state=s1", "http")
	if err != nil {
		t.Fatalf("Present() error = %v", err)
	}
	want := fmt.Sprintf("http://127.0.0.1:%d/callback?code=abc&state=s1", agent.Port)
	if got != want {
		t.Fatalf("Present() = %q, want %q", got, want)
	}
}

func TestNewBrowserUserAgent(t *testing.T) {
	agent, err := NewBrowserUserAgent("http://127.0.0.1:8888/callback")
	if err != nil {
		t.Fatalf("NewBrowserUserAgent() error = %v", err)
	}
	if agent.Port != 8888 || agent.CallbackPath != "/callback" {
		t.Fatalf("agent = %+v", agent)
	}
	if _, err = NewBrowserUserAgent("musicalarm://spotify-auth"); err == nil {
		t.Fatal("expected custom scheme to be rejected")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()
	return port
}

func TestNewUserAgentSelection(t *testing.T) {
	tests := []struct {
		name        string
		redirectURI string
		opts        *LoginOptions
		wantBrowser bool
	}{
		{"loopback uses browser", "http://127.0.0.1:8888/callback", nil, true},
		{"loopback headless prompts", "http://127.0.0.1:8888/callback", &LoginOptions{NoBrowser: true}, false},
		{"custom scheme prompts", "musicalarm://spotify-auth", &LoginOptions{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := NewUserAgent(tt.redirectURI, tt.opts)
			_, isBrowser := agent.(*BrowserUserAgent)
			if isBrowser != tt.wantBrowser {
				t.Fatalf("NewUserAgent() = %T, want browser=%v", agent, tt.wantBrowser)
			}
			if prompt, ok := agent.(*PromptUserAgent); ok && tt.opts != nil && tt.opts.NoBrowser && prompt.OpenBrowser {
				t.Fatal("headless prompt must not open a browser")
			}
		})
	}
}
