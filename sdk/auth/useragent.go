package auth

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Ericcccccccccc/MusicAlarm/internal/auth/spotify"
	"github.com/Ericcccccccccc/MusicAlarm/internal/browser"
	"github.com/atotto/clipboard"
	log "github.com/sirupsen/logrus"
)

// BrowserUserAgent opens the system browser and captures the redirect on a
// loopback callback server. It only serves http://127.0.0.1 style redirect URIs.
type BrowserUserAgent struct {
	Port         int
	CallbackPath string
	// Out receives the fallback instructions when the browser cannot be opened.
	Out io.Writer
	// OpenURL defaults to browser.OpenURL.
	OpenURL func(string) error
}

// NewBrowserUserAgent derives the callback port and path from redirectURI.
func NewBrowserUserAgent(redirectURI string) (*BrowserUserAgent, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("browser user agent: parse redirect uri: %w", err)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("browser user agent: redirect uri %q is not a loopback http address", redirectURI)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil || port <= 0 {
		return nil, fmt.Errorf("browser user agent: redirect uri %q needs an explicit port", redirectURI)
	}
	return &BrowserUserAgent{Port: port, CallbackPath: u.Path, Out: os.Stdout, OpenURL: browser.OpenURL}, nil
}

// Present starts the callback server, opens the browser and waits for the redirect.
func (a *BrowserUserAgent) Present(ctx context.Context, authorizeURL, callbackScheme string) (string, error) {
	if callbackScheme != "http" {
		return "", fmt.Errorf("browser user agent: unsupported callback scheme %q", callbackScheme)
	}
	server := spotify.NewOAuthServer(a.Port, a.CallbackPath)
	if err := server.Start(); err != nil {
		return "", err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if stopErr := server.Stop(stopCtx); stopErr != nil {
			log.Warnf("spotify oauth server stop error: %v", stopErr)
		}
	}()

	open := a.OpenURL
	if open == nil {
		open = browser.OpenURL
	}
	out := a.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintln(out, "Opening browser for Spotify authentication")
	if err := open(authorizeURL); err != nil {
		log.Warnf("Failed to open browser automatically: %v", err)
		fmt.Fprintf(out, "Visit the following URL to continue authentication:\n%s\n", authorizeURL)
	}
	fmt.Fprintln(out, "Waiting for Spotify authentication callback...")

	callbackURL, err := server.WaitForCallback(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ErrUserCancelled
		}
		return "", err
	}
	return callbackURL, nil
}

// PromptUserAgent prints the authorize URL and asks the user to paste the URL
// the browser was redirected to. Used for custom scheme redirects and headless logins.
type PromptUserAgent struct {
	Prompt func(prompt string) (string, error)
	Out    io.Writer
	// OpenBrowser also tries to launch the system browser.
	OpenBrowser bool
	// CopyToClipboard defaults to clipboard.WriteAll.
	CopyToClipboard func(string) error
	OpenURL         func(string) error
}

// Present blocks until the user answers. An empty answer is a dismissal.
func (a *PromptUserAgent) Present(ctx context.Context, authorizeURL, callbackScheme string) (string, error) {
	if a.Prompt == nil {
		return "", fmt.Errorf("prompt user agent: prompt function is required")
	}
	out := a.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "Visit the following URL to continue authentication:\n%s\n", authorizeURL)

	copyFn := a.CopyToClipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}
	if !clipboard.Unsupported || a.CopyToClipboard != nil {
		if err := copyFn(authorizeURL); err == nil {
			fmt.Fprintln(out, "(The URL has been copied to your clipboard.)")
		} else {
			log.Debugf("copy authorize url to clipboard failed: %v", err)
		}
	}
	if a.OpenBrowser {
		open := a.OpenURL
		if open == nil {
			open = browser.OpenURL
		}
		if err := open(authorizeURL); err != nil {
			log.Warnf("Failed to open browser automatically: %v", err)
		}
	}

	type answer struct {
		text string
		err  error
	}
	answers := make(chan answer, 1)
	go func() {
		text, err := a.Prompt(fmt.Sprintf("Paste the %s:// callback URL (or press Enter to cancel): ", callbackScheme))
		answers <- answer{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrUserCancelled
	case ans := <-answers:
		if ans.err != nil {
			if ans.err == io.EOF {
				return "", ErrUserCancelled
			}
			return "", fmt.Errorf("prompt user agent: read answer: %w", ans.err)
		}
		text := strings.TrimSpace(ans.text)
		if text == "" {
			return "", ErrUserCancelled
		}
		return text, nil
	}
}

// NewUserAgent picks the user agent for redirectURI. A loopback http redirect with
// an explicit port gets the browser and callback server unless NoBrowser is set;
// custom scheme redirects and headless logins fall back to the prompt.
func NewUserAgent(redirectURI string, opts *LoginOptions) UserAgent {
	if opts == nil {
		opts = &LoginOptions{}
	}
	if !opts.NoBrowser {
		if agent, err := NewBrowserUserAgent(redirectURI); err == nil {
			return agent
		}
	}
	return &PromptUserAgent{
		Prompt:      opts.Prompt,
		Out:         os.Stdout,
		OpenBrowser: !opts.NoBrowser && browser.IsAvailable(),
	}
}
