package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Ericcccccccccc/MusicAlarm/internal/alarm"
	"github.com/Ericcccccccccc/MusicAlarm/internal/config"
	"github.com/Ericcccccccccc/MusicAlarm/internal/runtime/executor"
	"github.com/Ericcccccccccc/MusicAlarm/internal/util"
	sdkAuth "github.com/Ericcccccccccc/MusicAlarm/sdk/auth"
	log "github.com/sirupsen/logrus"
)

// AlarmOptions carries the -alarm-* flags.
type AlarmOptions struct {
	Add     string
	Days    string
	TrackID string
	Label   string
	List    bool
	Delete  string
}

// DoAlarm adds, lists or deletes alarms. Attaching a track looks it up on Spotify
// and therefore needs a stored session.
func DoAlarm(cfg *config.Config, opts AlarmOptions) error {
	ctx := context.Background()
	book, err := openAlarmStore(cfg)
	if err != nil {
		log.Errorf("failed to open alarm book: %v", err)
		return err
	}

	var session *Session
	if opts.Add != "" && opts.TrackID != "" {
		session, err = NewSession(ctx, cfg, &LoginOptions{NoBrowser: true})
		if err != nil {
			log.Errorf("failed to prepare Spotify session: %v", err)
			return err
		}
		defer session.Close()
	}

	a := &alarmCommand{book: book, session: session, now: time.Now, out: os.Stdout}
	if err = a.run(ctx, opts); err != nil {
		fmt.Fprintln(a.out, friendlyAlarmMessage(err))
	}
	return err
}

func openAlarmStore(cfg *config.Config) (*alarm.FileStore, error) {
	path := cfg.AlarmFile
	if strings.TrimSpace(path) == "" {
		authDir, err := util.ResolveAuthDir(cfg.AuthDir)
		if err != nil {
			return nil, err
		}
		path = filepath.Join(authDir, "alarms.json")
	}
	return alarm.NewFileStore(path), nil
}

type alarmCommand struct {
	book    *alarm.FileStore
	session *Session
	now     func() time.Time
	out     io.Writer
}

func (c *alarmCommand) run(ctx context.Context, opts AlarmOptions) error {
	switch {
	case opts.Add != "":
		return c.add(ctx, opts)
	case opts.Delete != "":
		if err := c.book.Delete(ctx, opts.Delete); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Deleted alarm %s.\n", opts.Delete)
		return nil
	default:
		return c.list(ctx)
	}
}

func (c *alarmCommand) add(ctx context.Context, opts AlarmOptions) error {
	days, err := alarm.ParseWeekdays(opts.Days)
	if err != nil {
		return err
	}
	a, err := alarm.New(opts.Add, days, opts.Label)
	if err != nil {
		return err
	}
	if opts.TrackID != "" {
		if c.session == nil {
			return fmt.Errorf("alarm: a Spotify session is required to attach a track")
		}
		track, errTrack := c.session.API.GetTrack(ctx, opts.TrackID)
		if errTrack != nil {
			return errTrack
		}
		a.SetSong(track.ToSong())
	}
	if err = c.book.Save(ctx, a); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Added alarm %s: %s\n", a.ID, a.Describe())
	if next, ok := a.NextTrigger(c.now()); ok {
		fmt.Fprintf(c.out, "Next ring: %s\n", next.Format("Mon 2006-01-02 15:04"))
	}
	return nil
}

func (c *alarmCommand) list(ctx context.Context) error {
	alarms, err := c.book.List(ctx)
	if err != nil {
		return err
	}
	if len(alarms) == 0 {
		fmt.Fprintln(c.out, "No alarms set.")
		return nil
	}
	now := c.now()
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tALARM\tTRACK\tNEXT")
	for _, a := range alarms {
		next := "-"
		if at, ok := a.NextTrigger(now); ok {
			next = at.Format("Mon 15:04")
		}
		track := a.TrackName
		if track == "" {
			track = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.Describe(), track, next)
	}
	return w.Flush()
}

func friendlyAlarmMessage(err error) string {
	var statusErr *executor.StatusError
	switch {
	case errors.Is(err, alarm.ErrNotFound):
		return "No alarm with that id."
	case errors.As(err, &statusErr), errors.Is(err, sdkAuth.ErrNotAuthenticated), errors.Is(err, sdkAuth.ErrTokenRefreshFailed):
		return friendlyMessage(err)
	default:
		return err.Error()
	}
}
