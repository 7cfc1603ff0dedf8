package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Ericcccccccccc/MusicAlarm/internal/config"
	"github.com/Ericcccccccccc/MusicAlarm/internal/spotify"
	log "github.com/sirupsen/logrus"
)

// QueryOptions selects the Web API query a command runs.
type QueryOptions struct {
	Search         string
	TrackID        string
	Playlists      bool
	PlaylistTracks string
	Me             bool
	NowPlaying     bool
	Limit          int
	Offset         int
}

// DoSpotifyQuery runs one read-only Spotify query and prints the result.
// It never starts an interactive login.
func DoSpotifyQuery(cfg *config.Config, opts QueryOptions) error {
	ctx := context.Background()
	session, err := NewSession(ctx, cfg, &LoginOptions{NoBrowser: true})
	if err != nil {
		log.Errorf("failed to prepare Spotify session: %v", err)
		return err
	}
	defer session.Close()

	if err = runSpotifyQuery(ctx, session, opts); err != nil {
		log.Debugf("spotify query failed: %v", err)
		fmt.Fprintln(session.Out, friendlyMessage(err))
	}
	return err
}

func runSpotifyQuery(ctx context.Context, s *Session, opts QueryOptions) error {
	switch {
	case opts.Search != "":
		tracks, err := s.API.SearchTracks(ctx, opts.Search, opts.Limit, opts.Offset)
		if err != nil {
			return err
		}
		printTracks(s, tracks)
	case opts.TrackID != "":
		track, err := s.API.GetTrack(ctx, opts.TrackID)
		if err != nil {
			return err
		}
		printTracks(s, []spotify.Track{*track})
	case opts.Playlists:
		playlists, err := s.API.GetUserPlaylists(ctx, opts.Limit, opts.Offset)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(s.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTRACKS\tOWNER")
		for _, p := range playlists {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", p.ID, p.Name, p.Tracks.Total, ownerName(p.Owner))
		}
		_ = w.Flush()
	case opts.PlaylistTracks != "":
		tracks, err := s.API.GetPlaylistTracks(ctx, opts.PlaylistTracks, opts.Limit, opts.Offset)
		if err != nil {
			return err
		}
		printTracks(s, tracks)
	case opts.Me:
		user, err := s.API.GetCurrentUser(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.Out, "%s (%s)", ownerName(*user), user.ID)
		if user.Product != "" {
			fmt.Fprintf(s.Out, " plan=%s", user.Product)
		}
		fmt.Fprintln(s.Out)
	case opts.NowPlaying:
		track, err := s.API.GetCurrentlyPlaying(ctx)
		if err != nil {
			return err
		}
		if track == nil {
			fmt.Fprintln(s.Out, "Nothing is playing right now.")
			return nil
		}
		printTracks(s, []spotify.Track{*track})
	default:
		return fmt.Errorf("no query selected")
	}
	return nil
}

func printTracks(s *Session, tracks []spotify.Track) {
	if len(tracks) == 0 {
		fmt.Fprintln(s.Out, "No tracks found.")
		return
	}
	w := tabwriter.NewWriter(s.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tARTIST\tLENGTH")
	for _, song := range spotify.ToSongs(tracks) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", song.ID, song.Title, song.Artist, formatDuration(song.DurationMs))
	}
	_ = w.Flush()
}

func ownerName(u spotify.User) string {
	if strings.TrimSpace(u.DisplayName) != "" {
		return u.DisplayName
	}
	return u.ID
}

func formatDuration(ms int) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
