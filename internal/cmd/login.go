package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	spotifyauth "github.com/Ericcccccccccc/MusicAlarm/internal/auth/spotify"
	"github.com/Ericcccccccccc/MusicAlarm/internal/config"
	sdkAuth "github.com/Ericcccccccccc/MusicAlarm/sdk/auth"
	log "github.com/sirupsen/logrus"
)

// DoLogin runs the interactive Spotify login. Ctrl-C cancels it.
func DoLogin(cfg *config.Config, options *LoginOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	session, err := NewSession(ctx, cfg, options)
	if err != nil {
		log.Errorf("failed to prepare Spotify session: %v", err)
		return err
	}
	defer session.Close()

	err = runLogin(ctx, session)
	var serverErr *spotifyauth.AuthenticationError
	if errors.As(err, &serverErr) && serverErr.Type == spotifyauth.ErrPortInUse.Type {
		log.Error(sdkAuth.GetUserFriendlyMessage(err))
		os.Exit(spotifyauth.ErrPortInUse.Code)
	}
	return err
}

func runLogin(ctx context.Context, s *Session) error {
	if _, err := s.Auth.Authenticate(ctx); err != nil {
		var failed *sdkAuth.AuthenticationFailedError
		if !errors.As(err, &failed) || !failed.Cancelled() {
			log.Debugf("spotify login failed: %v", err)
		}
		fmt.Fprintln(s.Out, sdkAuth.GetUserFriendlyMessage(err))
		return err
	}

	if user, err := s.API.GetCurrentUser(ctx); err == nil {
		name := user.DisplayName
		if name == "" {
			name = user.ID
		}
		fmt.Fprintf(s.Out, "Logged in to Spotify as %s.\n", name)
	} else {
		log.Debugf("fetch current user after login failed: %v", err)
	}
	fmt.Fprintln(s.Out, "Spotify authentication successful!")
	return nil
}

// DoLogout drops the stored Spotify credentials.
func DoLogout(cfg *config.Config) error {
	ctx := context.Background()
	session, err := NewSession(ctx, cfg, &LoginOptions{NoBrowser: true})
	if err != nil {
		log.Errorf("failed to prepare Spotify session: %v", err)
		return err
	}
	defer session.Close()
	runLogout(ctx, session)
	return nil
}

func runLogout(ctx context.Context, s *Session) {
	s.Auth.Logout(ctx)
	fmt.Fprintln(s.Out, "Logged out of Spotify.")
}

// DoStatus reports whether usable credentials are stored. No network call is made.
func DoStatus(cfg *config.Config) error {
	ctx := context.Background()
	session, err := NewSession(ctx, cfg, &LoginOptions{NoBrowser: true})
	if err != nil {
		log.Errorf("failed to prepare Spotify session: %v", err)
		return err
	}
	defer session.Close()
	runStatus(ctx, session)
	return nil
}

func runStatus(ctx context.Context, s *Session) bool {
	if !s.Auth.CheckStatus(ctx) {
		fmt.Fprintln(s.Out, "Not logged in to Spotify.")
		return false
	}
	ts, err := s.Tokens.Load(ctx)
	switch {
	case err != nil:
		fmt.Fprintln(s.Out, "Logged in to Spotify.")
	case s.Tokens.Valid(ts):
		fmt.Fprintf(s.Out, "Logged in to Spotify. Access token valid until %s.\n", ts.ExpiresAt.Local().Format("2006-01-02 15:04"))
	default:
		fmt.Fprintln(s.Out, "Logged in to Spotify. The access token will be refreshed on the next request.")
	}
	return true
}
