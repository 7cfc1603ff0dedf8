// Package alarm models wake-up alarms and computes when they fire next.
// Scheduling on the operating system is left to the caller.
package alarm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Ericcccccccccc/MusicAlarm/internal/spotify"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// Weekday is a repeat day in cron numbering (0 = Sunday).
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var weekdayNames = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

func (d Weekday) String() string {
	if d < Sunday || d > Saturday {
		return "Weekday(" + strconv.Itoa(int(d)) + ")"
	}
	return weekdayNames[d]
}

// ParseWeekdays accepts a comma separated list of day names (mon, tuesday, ...)
// or one of the shortcuts daily, weekdays and weekends. Empty input means a
// one-shot alarm.
func ParseWeekdays(raw string) ([]Weekday, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "", "once", "never":
		return nil, nil
	case "daily", "everyday":
		return []Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}, nil
	case "weekdays":
		return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}, nil
	case "weekends":
		return []Weekday{Sunday, Saturday}, nil
	}

	seen := make(map[Weekday]bool)
	var days []Weekday
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if len(part) < 3 {
			return nil, fmt.Errorf("alarm: unknown weekday %q", part)
		}
		found := false
		for i, name := range weekdayNames {
			if strings.HasPrefix(part, name) {
				if d := Weekday(i); !seen[d] {
					seen[d] = true
					days = append(days, d)
				}
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("alarm: unknown weekday %q", part)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days, nil
}

// ParseClock parses a 24h HH:MM string.
func ParseClock(raw string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, 0, fmt.Errorf("alarm: invalid time %q, want HH:MM", raw)
	}
	return t.Hour(), t.Minute(), nil
}

// Alarm is one configured wake-up time and the track to play.
type Alarm struct {
	ID            string    `json:"id"`
	Hour          int       `json:"hour" validate:"gte=0,lte=23"`
	Minute        int       `json:"minute" validate:"gte=0,lte=59"`
	RepeatDays    []Weekday `json:"repeat_days,omitempty" validate:"dive,gte=0,lte=6"`
	Enabled       bool      `json:"enabled"`
	Label         string    `json:"label" validate:"max=64"`
	TrackID       string    `json:"track_id,omitempty"`
	TrackURI      string    `json:"track_uri,omitempty"`
	TrackName     string    `json:"track_name,omitempty"`
	SnoozeEnabled bool      `json:"snooze_enabled"`
	Volume        float64   `json:"volume" validate:"gte=0,lte=1"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const (
	defaultLabel  = "Alarm"
	defaultVolume = 0.8
)

// New creates an enabled alarm with snooze on and the default volume.
func New(clock string, days []Weekday, label string) (*Alarm, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(label) == "" {
		label = defaultLabel
	}
	a := &Alarm{
		Hour:          hour,
		Minute:        minute,
		RepeatDays:    days,
		Enabled:       true,
		Label:         strings.TrimSpace(label),
		SnoozeEnabled: true,
		Volume:        defaultVolume,
	}
	if err = a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

var validate = validator.New()

func (a *Alarm) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("alarm: invalid alarm: %w", err)
	}
	return nil
}

// SetSong attaches a track to the alarm.
func (a *Alarm) SetSong(song spotify.Song) {
	a.TrackID = song.ID
	a.TrackURI = song.URI
	a.TrackName = song.Title
	if song.Artist != "" {
		a.TrackName = song.Title + " - " + song.Artist
	}
}

// Repeats reports whether the alarm fires on a weekly schedule.
func (a *Alarm) Repeats() bool { return len(a.RepeatDays) > 0 }

// CronSpec renders the alarm as a standard five field cron expression.
func (a *Alarm) CronSpec() string {
	dow := "*"
	if a.Repeats() {
		parts := make([]string, 0, len(a.RepeatDays))
		for _, d := range a.RepeatDays {
			parts = append(parts, strconv.Itoa(int(d)))
		}
		dow = strings.Join(parts, ",")
	}
	return fmt.Sprintf("%d %d * * %s", a.Minute, a.Hour, dow)
}

// NextTrigger returns the first firing strictly after from, in from's location.
// A one-shot alarm fires at the next occurrence of its clock time. Disabled
// alarms never fire.
func (a *Alarm) NextTrigger(from time.Time) (time.Time, bool) {
	if !a.Enabled {
		return time.Time{}, false
	}
	schedule, err := cron.ParseStandard(a.CronSpec())
	if err != nil {
		return time.Time{}, false
	}
	next := schedule.Next(from)
	return next, !next.IsZero()
}

// Describe returns a short human readable summary, e.g. "07:30 mon,fri Wake up".
func (a *Alarm) Describe() string {
	days := "once"
	if a.Repeats() {
		if len(a.RepeatDays) == 7 {
			days = "daily"
		} else {
			names := make([]string, 0, len(a.RepeatDays))
			for _, d := range a.RepeatDays {
				names = append(names, d.String())
			}
			days = strings.Join(names, ",")
		}
	}
	state := ""
	if !a.Enabled {
		state = " (disabled)"
	}
	return fmt.Sprintf("%02d:%02d %s %s%s", a.Hour, a.Minute, days, a.Label, state)
}
