package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestOAuthServerCapturesCallbackURL(t *testing.T) {
	srv := NewOAuthServer(0, "callback")
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	target := fmt.Sprintf("http://127.0.0.1:%d/callback?code=abc&state=xyz", srv.Port())
	resp, err := http.Get(target)
	if err != nil {
		t.Fatalf("GET callback: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := srv.WaitForCallback(ctx)
	if err != nil {
		t.Fatalf("WaitForCallback() error = %v", err)
	}
	if got != target {
		t.Fatalf("callback = %q, want %q", got, target)
	}
}

func TestOAuthServerProviderErrorPage(t *testing.T) {
	srv := NewOAuthServer(0, "/callback")
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/callback?error=access_denied", srv.Port()))
	if err != nil {
		t.Fatalf("GET callback: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	got, err := srv.WaitForCallback(context.Background())
	if err != nil || !strings.Contains(got, "error=access_denied") {
		t.Fatalf("WaitForCallback() = %q, %v", got, err)
	}
}

func TestOAuthServerWaitHonoursContext(t *testing.T) {
	srv := NewOAuthServer(0, "/callback")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := srv.WaitForCallback(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("WaitForCallback() error = %v, want context.Canceled", err)
	}
}

func TestOAuthServerPortInUse(t *testing.T) {
	first := NewOAuthServer(0, "/callback")
	if err := first.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = first.Stop(context.Background()) })

	second := NewOAuthServer(first.Port(), "/callback")
	err := second.Start()
	if !errors.Is(err, ErrPortInUse) {
		t.Fatalf("Start() error = %v, want ErrPortInUse", err)
	}
}
