package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	spotifyauth "github.com/Ericcccccccccc/MusicAlarm/internal/auth/spotify"
	"github.com/Ericcccccccccc/MusicAlarm/internal/config"
	"github.com/Ericcccccccccc/MusicAlarm/internal/runtime/executor"
	"github.com/Ericcccccccccc/MusicAlarm/internal/spotify"
	"github.com/Ericcccccccccc/MusicAlarm/internal/store"
	"github.com/Ericcccccccccc/MusicAlarm/internal/util"
	sdkAuth "github.com/Ericcccccccccc/MusicAlarm/sdk/auth"
	log "github.com/sirupsen/logrus"
)

// LoginOptions contains options for the login process.
type LoginOptions struct {
	// NoBrowser indicates whether to skip opening the browser automatically.
	NoBrowser bool

	// Prompt allows the caller to provide interactive input when needed.
	Prompt func(prompt string) (string, error)
}

// Session bundles the auth manager, token store and API client built from one configuration.
type Session struct {
	Config *config.Config
	Auth   *sdkAuth.Manager
	Tokens *sdkAuth.TokenStore
	API    *spotify.Client
	Out    io.Writer

	closeStore func() error
}

// NewSession builds a session on the configured credential store. The user agent is
// chosen from the redirect URI and options.
func NewSession(ctx context.Context, cfg *config.Config, options *LoginOptions) (*Session, error) {
	if options == nil {
		options = &LoginOptions{}
	}
	promptFn := options.Prompt
	if promptFn == nil {
		promptFn = defaultPrompt()
	}

	secure, closer, err := store.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	agent := sdkAuth.NewUserAgent(cfg.Spotify.RedirectURI, &sdkAuth.LoginOptions{
		NoBrowser: options.NoBrowser,
		Prompt:    promptFn,
	})
	session, err := newSession(cfg, secure, agent, nil)
	if err != nil {
		_ = closer()
		return nil, err
	}
	session.closeStore = closer
	return session, nil
}

func newSession(cfg *config.Config, secure sdkAuth.SecureStore, agent sdkAuth.UserAgent, httpClient *http.Client) (*Session, error) {
	if httpClient == nil {
		httpClient = util.NewHTTPClient(cfg)
	}
	exchanger := spotifyauth.NewSpotifyAuth(cfg, httpClient)
	tokens := sdkAuth.NewTokenStore(secure, time.Duration(cfg.Spotify.RefreshThresholdSeconds)*time.Second)
	flow, err := sdkAuth.NewAuthorizationFlow(agent, exchanger.RedirectURI())
	if err != nil {
		return nil, err
	}
	manager := sdkAuth.NewManager(exchanger, tokens, flow)
	exec := executor.NewSpotifyExecutor(cfg, manager, httpClient)
	return &Session{
		Config: cfg,
		Auth:   manager,
		Tokens: tokens,
		API:    spotify.NewClient(exec),
		Out:    os.Stdout,
	}, nil
}

// Close releases the credential store.
func (s *Session) Close() {
	if s == nil || s.closeStore == nil {
		return
	}
	if err := s.closeStore(); err != nil {
		log.Warnf("failed to close credential store: %v", err)
	}
}

func defaultPrompt() func(string) (string, error) {
	reader := bufio.NewReader(os.Stdin)
	return func(prompt string) (string, error) {
		fmt.Print(prompt)
		value, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF && strings.TrimSpace(value) != "" {
				return strings.TrimSpace(value), nil
			}
			return "", err
		}
		return strings.TrimSpace(value), nil
	}
}
