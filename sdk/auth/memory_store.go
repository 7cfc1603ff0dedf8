package auth

import (
	"context"
	"sync"
)

// MemorySecureStore keeps credentials in process memory. Nothing survives a restart.
type MemorySecureStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemorySecureStore returns an empty in-memory store.
func NewMemorySecureStore() *MemorySecureStore {
	return &MemorySecureStore{values: make(map[string]string)}
}

func (s *MemorySecureStore) Save(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}

func (s *MemorySecureStore) Retrieve(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	v, ok := s.values[key]
	s.mu.RUnlock()
	return v, ok, nil
}

func (s *MemorySecureStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored keys.
func (s *MemorySecureStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
