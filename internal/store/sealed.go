// Package store provides the SecureStore backends used for Spotify credentials:
// Redis, PostgreSQL and S3 compatible object storage, plus the sealing layer that
// encrypts values before they reach any backend.
package store

import (
	"context"
	"fmt"

	"github.com/Ericcccccccccc/MusicAlarm/internal/crypto"
	sdkauth "github.com/Ericcccccccccc/MusicAlarm/sdk/auth"
)

// SealedStore encrypts every value with AES-GCM before delegating to the backend.
// The key name is bound to its ciphertext.
type SealedStore struct {
	backend sdkauth.SecureStore
	enc     *crypto.Encryptor
}

// NewSealedStore wraps backend with an encryptor derived from passphrase.
func NewSealedStore(backend sdkauth.SecureStore, passphrase string) (*SealedStore, error) {
	enc, err := crypto.NewEncryptor(passphrase)
	if err != nil {
		return nil, fmt.Errorf("sealed store: %w", err)
	}
	return &SealedStore{backend: backend, enc: enc}, nil
}

func (s *SealedStore) Save(ctx context.Context, key, value string) error {
	sealed, err := s.enc.Encrypt(key, value)
	if err != nil {
		return fmt.Errorf("sealed store: encrypt %s: %w", key, err)
	}
	return s.backend.Save(ctx, key, sealed)
}

func (s *SealedStore) Retrieve(ctx context.Context, key string) (string, bool, error) {
	sealed, found, err := s.backend.Retrieve(ctx, key)
	if err != nil || !found {
		return "", found, err
	}
	value, err := s.enc.Decrypt(key, sealed)
	if err != nil {
		return "", false, fmt.Errorf("sealed store: decrypt %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SealedStore) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}
