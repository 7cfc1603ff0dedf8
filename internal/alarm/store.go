package alarm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrNotFound is returned when an alarm id is unknown.
var ErrNotFound = errors.New("alarm not found")

// FileStore keeps all alarms in one JSON file. Writes replace the whole file;
// the last writer wins.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

func (s *FileStore) Path() string { return s.path }

// List returns every alarm ordered by clock time.
func (s *FileStore) List(_ context.Context) ([]*Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	book, err := s.load()
	if err != nil {
		return nil, err
	}
	alarms := make([]*Alarm, 0, len(book))
	for _, a := range book {
		alarms = append(alarms, a)
	}
	sort.Slice(alarms, func(i, j int) bool {
		if alarms[i].Hour != alarms[j].Hour {
			return alarms[i].Hour < alarms[j].Hour
		}
		if alarms[i].Minute != alarms[j].Minute {
			return alarms[i].Minute < alarms[j].Minute
		}
		return alarms[i].ID < alarms[j].ID
	})
	return alarms, nil
}

func (s *FileStore) Get(_ context.Context, id string) (*Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	book, err := s.load()
	if err != nil {
		return nil, err
	}
	a, ok := book[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a, nil
}

// Save inserts or replaces a. A missing id is assigned.
func (s *FileStore) Save(_ context.Context, a *Alarm) error {
	if a == nil {
		return fmt.Errorf("alarm store: alarm is nil")
	}
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	book, err := s.load()
	if err != nil {
		return err
	}
	now := s.now().UTC()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if existing, ok := book[a.ID]; ok && !existing.CreatedAt.IsZero() {
		a.CreatedAt = existing.CreatedAt
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	book[a.ID] = a
	return s.write(book)
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	book, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := book[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(book, id)
	return s.write(book)
}

func (s *FileStore) load() (map[string]*Alarm, error) {
	book := make(map[string]*Alarm)
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return book, nil
		}
		return nil, fmt.Errorf("alarm store: read failed: %w", err)
	}
	if len(data) == 0 {
		return book, nil
	}
	var alarms []*Alarm
	if err = json.Unmarshal(data, &alarms); err != nil {
		return nil, fmt.Errorf("alarm store: decode %s: %w", s.path, err)
	}
	for _, a := range alarms {
		if a == nil || a.ID == "" {
			log.Warnf("alarm store: skipping alarm without id in %s", s.path)
			continue
		}
		book[a.ID] = a
	}
	return book, nil
}

func (s *FileStore) write(book map[string]*Alarm) error {
	alarms := make([]*Alarm, 0, len(book))
	for _, a := range book {
		alarms = append(alarms, a)
	}
	sort.Slice(alarms, func(i, j int) bool { return alarms[i].ID < alarms[j].ID })
	data, err := json.MarshalIndent(alarms, "", "  ")
	if err != nil {
		return fmt.Errorf("alarm store: encode failed: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("alarm store: create dir failed: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".alarms-*.json")
	if err != nil {
		return fmt.Errorf("alarm store: create temp failed: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("alarm store: write failed: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("alarm store: close failed: %w", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("alarm store: rename failed: %w", err)
	}
	return nil
}
