package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// validKey keeps store keys free of gjson path syntax.
var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

const secretsPath = "secrets"

// FileSecureStore persists credential values in a single 0600 JSON document:
//
//	{"version":1,"secrets":{"spotify_access_token":"..."}}
//
// Values are written as given; wrap the store with a sealing layer to encrypt them.
type FileSecureStore struct {
	mu   sync.Mutex
	path string
}

// NewFileSecureStore creates a store backed by the JSON document at path.
func NewFileSecureStore(path string) *FileSecureStore {
	return &FileSecureStore{path: filepath.Clean(path)}
}

// Path returns the backing document path.
func (s *FileSecureStore) Path() string { return s.path }

func (s *FileSecureStore) Save(_ context.Context, key, value string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("auth filestore: invalid key %q", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	if doc, err = sjson.SetBytes(doc, "version", 1); err != nil {
		return fmt.Errorf("auth filestore: set version failed: %w", err)
	}
	if doc, err = sjson.SetBytes(doc, secretsPath+"."+key, value); err != nil {
		return fmt.Errorf("auth filestore: set %s failed: %w", key, err)
	}
	return s.write(doc)
}

func (s *FileSecureStore) Retrieve(_ context.Context, key string) (string, bool, error) {
	if !validKey.MatchString(key) {
		return "", false, fmt.Errorf("auth filestore: invalid key %q", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return "", false, err
	}
	result := gjson.GetBytes(doc, secretsPath+"."+key)
	if !result.Exists() {
		return "", false, nil
	}
	return result.String(), true, nil
}

func (s *FileSecureStore) Delete(_ context.Context, key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("auth filestore: invalid key %q", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	if !gjson.GetBytes(doc, secretsPath+"."+key).Exists() {
		return nil
	}
	if doc, err = sjson.DeleteBytes(doc, secretsPath+"."+key); err != nil {
		return fmt.Errorf("auth filestore: delete %s failed: %w", key, err)
	}
	return s.write(doc)
}

func (s *FileSecureStore) read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []byte(`{}`), nil
		}
		return nil, fmt.Errorf("auth filestore: read failed: %w", err)
	}
	if len(data) == 0 {
		return []byte(`{}`), nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("auth filestore: %s is not valid JSON", s.path)
	}
	return data, nil
}

// write replaces the document atomically through a temp file in the same directory.
func (s *FileSecureStore) write(doc []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("auth filestore: create dir failed: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".secrets-*.json")
	if err != nil {
		return fmt.Errorf("auth filestore: create temp failed: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err = tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("auth filestore: chmod failed: %w", err)
	}
	if _, err = tmp.Write(doc); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("auth filestore: write failed: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("auth filestore: close failed: %w", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("auth filestore: rename failed: %w", err)
	}
	return nil
}
