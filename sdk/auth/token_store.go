package auth

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Ericcccccccccc/MusicAlarm/internal/auth/spotify"
	"github.com/Ericcccccccccc/MusicAlarm/internal/misc"
	log "github.com/sirupsen/logrus"
)

// Keys under which the token triple is persisted.
const (
	KeyAccessToken     = "spotify_access_token"
	KeyRefreshToken    = "spotify_refresh_token"
	KeyTokenExpiration = "spotify_token_expiration"
)

// DefaultRefreshThreshold is the lead time before expiry at which a token stops being valid.
const DefaultRefreshThreshold = 5 * time.Minute

var tokenKeys = []string{KeyAccessToken, KeyRefreshToken, KeyTokenExpiration}

// TokenStore applies the expiry policy on top of a SecureStore.
type TokenStore struct {
	store     SecureStore
	threshold time.Duration
	now       func() time.Time
}

// NewTokenStore wraps store. A non-positive threshold selects DefaultRefreshThreshold.
func NewTokenStore(store SecureStore, threshold time.Duration) *TokenStore {
	if threshold <= 0 {
		threshold = DefaultRefreshThreshold
	}
	return &TokenStore{store: store, threshold: threshold, now: time.Now}
}

// Load reads the stored triple. A missing or unparsable expiry yields a zero ExpiresAt.
func (s *TokenStore) Load(ctx context.Context) (spotify.TokenSet, error) {
	var ts spotify.TokenSet
	access, _, err := s.store.Retrieve(ctx, KeyAccessToken)
	if err != nil {
		return ts, err
	}
	refresh, _, err := s.store.Retrieve(ctx, KeyRefreshToken)
	if err != nil {
		return ts, err
	}
	expiry, found, err := s.store.Retrieve(ctx, KeyTokenExpiration)
	if err != nil {
		return ts, err
	}
	ts.AccessToken = access
	ts.RefreshToken = refresh
	if found {
		ts.ExpiresAt = parseExpiry(expiry)
	}
	return ts, nil
}

// Valid applies the threshold rule to an already loaded TokenSet.
func (s *TokenStore) Valid(ts spotify.TokenSet) bool {
	if ts.AccessToken == "" || ts.ExpiresAt.IsZero() {
		return false
	}
	return s.now().Add(s.threshold).Before(ts.ExpiresAt)
}

// IsAccessTokenValid reports whether a non-empty access token outlives now+threshold.
func (s *TokenStore) IsAccessTokenValid(ctx context.Context) bool {
	ts, err := s.Load(ctx)
	if err != nil {
		log.WithError(err).Warn("token store: load failed")
		return false
	}
	return s.Valid(ts)
}

// HasUsableRefreshToken reports whether a non-empty refresh token is stored.
func (s *TokenStore) HasUsableRefreshToken(ctx context.Context) bool {
	refresh, _, err := s.store.Retrieve(ctx, KeyRefreshToken)
	if err != nil {
		log.WithError(err).Warn("token store: load refresh token failed")
		return false
	}
	return refresh != ""
}

// Save writes all three keys. When any write fails the result is a
// *PartialPersistenceError and the stored state is indeterminate.
func (s *TokenStore) Save(ctx context.Context, ts spotify.TokenSet) error {
	misc.LogSavingCredentials("token-store", tokenKeys...)
	values := map[string]string{
		KeyAccessToken:     ts.AccessToken,
		KeyRefreshToken:    ts.RefreshToken,
		KeyTokenExpiration: formatExpiry(ts.ExpiresAt),
	}
	var written, failed []string
	var errs []error
	for _, key := range tokenKeys {
		if err := s.store.Save(ctx, key, values[key]); err != nil {
			failed = append(failed, key)
			errs = append(errs, err)
			continue
		}
		written = append(written, key)
	}
	if len(failed) > 0 {
		return &PartialPersistenceError{Written: written, Failed: failed, Err: errors.Join(errs...)}
	}
	return nil
}

// Clear deletes all three keys. Missing keys are not an error.
func (s *TokenStore) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range tokenKeys {
		if err := s.store.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseExpiry accepts RFC3339 timestamps and legacy float unix seconds.
func parseExpiry(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) || secs <= 0 {
		return time.Time{}
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}
