// Package main provides the entry point for the MusicAlarm command line tool.
// It logs in to Spotify, runs read-only Web API queries used to pick alarm tracks
// and manages the local alarm book.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Ericcccccccccc/MusicAlarm/internal/buildinfo"
	"github.com/Ericcccccccccc/MusicAlarm/internal/cmd"
	"github.com/Ericcccccccccc/MusicAlarm/internal/config"
	"github.com/Ericcccccccccc/MusicAlarm/internal/logging"
	"github.com/Ericcccccccccc/MusicAlarm/internal/util"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = "config.yaml"
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	var configPath string
	var login bool
	var logout bool
	var status bool
	var noBrowser bool
	var query cmd.QueryOptions
	var alarmOpts cmd.AlarmOptions
	var showVersion bool

	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configure File Path")
	flag.BoolVar(&login, "login", false, "Login to Spotify using OAuth (PKCE)")
	flag.BoolVar(&logout, "logout", false, "Remove stored Spotify credentials")
	flag.BoolVar(&status, "status", false, "Show whether Spotify credentials are stored")
	flag.BoolVar(&noBrowser, "no-browser", false, "Don't open browser automatically for OAuth")
	flag.StringVar(&query.Search, "search", "", "Search Spotify tracks")
	flag.StringVar(&query.TrackID, "track", "", "Show a Spotify track by id")
	flag.BoolVar(&query.Playlists, "playlists", false, "List your Spotify playlists")
	flag.StringVar(&query.PlaylistTracks, "playlist-tracks", "", "List the tracks of a playlist id")
	flag.BoolVar(&query.Me, "me", false, "Show the logged in Spotify user")
	flag.BoolVar(&query.NowPlaying, "now-playing", false, "Show the track playing right now")
	flag.IntVar(&query.Limit, "limit", 0, "Page size for list queries (max 50)")
	flag.IntVar(&query.Offset, "offset", 0, "Page offset for list queries")
	flag.StringVar(&alarmOpts.Add, "alarm-add", "", "Add an alarm at HH:MM")
	flag.StringVar(&alarmOpts.Days, "alarm-days", "", "Repeat days for -alarm-add: mon,tue,... or daily, weekdays, weekends")
	flag.StringVar(&alarmOpts.TrackID, "alarm-track", "", "Spotify track id to play for -alarm-add")
	flag.StringVar(&alarmOpts.Label, "alarm-label", "", "Label for -alarm-add")
	flag.BoolVar(&alarmOpts.List, "alarm-list", false, "List alarms and their next ring time")
	flag.StringVar(&alarmOpts.Delete, "alarm-delete", "", "Delete the alarm with this id")
	flag.BoolVar(&showVersion, "version", false, "Print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("MusicAlarm Version: %s, Commit: %s, BuiltAt: %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
		return
	}

	// Load environment variables from .env if present.
	if wd, errWd := os.Getwd(); errWd == nil {
		if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil && !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	cfg, err := config.LoadConfigOptional(configPath, true)
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		os.Exit(1)
	}
	if err = logging.ConfigureLogOutput(cfg); err != nil {
		log.Errorf("failed to configure log output: %v", err)
		os.Exit(1)
	}
	util.SetLogLevel(cfg)
	log.Debugf("MusicAlarm Version: %s, Commit: %s, BuiltAt: %s", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	options := &cmd.LoginOptions{NoBrowser: noBrowser}

	switch {
	case login:
		err = cmd.DoLogin(cfg, options)
	case logout:
		err = cmd.DoLogout(cfg)
	case status:
		err = cmd.DoStatus(cfg)
	case query.Search != "" || query.TrackID != "" || query.Playlists || query.PlaylistTracks != "" || query.Me || query.NowPlaying:
		err = cmd.DoSpotifyQuery(cfg, query)
	case alarmOpts.Add != "" || alarmOpts.List || alarmOpts.Delete != "":
		err = cmd.DoAlarm(cfg, alarmOpts)
	default:
		flag.Usage()
		return
	}
	if err != nil {
		os.Exit(1)
	}
}
