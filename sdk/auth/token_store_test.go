package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ericcccccccccc/MusicAlarm/internal/auth/spotify"
)

// failingStore fails writes for the listed keys.
type failingStore struct {
	*MemorySecureStore
	failSave map[string]bool
}

func (s *failingStore) Save(ctx context.Context, key, value string) error {
	if s.failSave[key] {
		return errors.New("keychain unavailable")
	}
	return s.MemorySecureStore.Save(ctx, key, value)
}

func newClockedStore(store SecureStore, now time.Time) *TokenStore {
	ts := NewTokenStore(store, 5*time.Minute)
	ts.now = func() time.Time { return now }
	return ts
}

func TestIsAccessTokenValid_Threshold(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 6, 30, 0, 0, time.UTC)
	tests := []struct {
		name      string
		expiresIn time.Duration
		want      bool
	}{
		{"well before threshold", time.Hour, true},
		{"just outside threshold", 5*time.Minute + time.Second, true},
		{"exactly at threshold", 5 * time.Minute, false},
		{"inside threshold", 4 * time.Minute, false},
		{"expired", -time.Minute, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := NewMemorySecureStore()
			store := newClockedStore(mem, now)
			if err := store.Save(ctx, spotify.TokenSet{AccessToken: "at", RefreshToken: "rt", ExpiresAt: now.Add(tt.expiresIn)}); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if got := store.IsAccessTokenValid(ctx); got != tt.want {
				t.Fatalf("IsAccessTokenValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsAccessTokenValid_SweepClock(t *testing.T) {
	ctx := context.Background()
	expiry := time.Date(2025, 5, 1, 7, 0, 0, 0, time.UTC)
	mem := NewMemorySecureStore()
	seed := NewTokenStore(mem, 5*time.Minute)
	if err := seed.Save(ctx, spotify.TokenSet{AccessToken: "at", ExpiresAt: expiry}); err != nil {
		t.Fatal(err)
	}
	for offset := -20 * time.Minute; offset <= 5*time.Minute; offset += 7 * time.Second {
		now := expiry.Add(offset)
		store := newClockedStore(mem, now)
		want := now.Before(expiry.Add(-5 * time.Minute))
		if got := store.IsAccessTokenValid(ctx); got != want {
			t.Fatalf("at %v: IsAccessTokenValid() = %v, want %v", offset, got, want)
		}
	}
}

func TestTokenStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore(NewMemorySecureStore(), 0)
	want := spotify.TokenSet{AccessToken: "at", RefreshToken: "rt", ExpiresAt: time.Date(2025, 5, 1, 7, 0, 0, 123456789, time.FixedZone("CET", 3600))}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken || !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("Load() = %+v, want %+v", got, want)
	}
}

func TestTokenStoreExpiryEncodings(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"legacy unix seconds", "1746082800.5", time.Unix(1746082800, 500000000)},
		{"garbage", "tomorrow", time.Time{}},
		{"empty", "", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := NewMemorySecureStore()
			_ = mem.Save(ctx, KeyAccessToken, "at")
			_ = mem.Save(ctx, KeyTokenExpiration, tt.raw)
			store := NewTokenStore(mem, 0)
			got, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !got.ExpiresAt.Equal(tt.want) {
				t.Fatalf("ExpiresAt = %v, want %v", got.ExpiresAt, tt.want)
			}
			if tt.want.IsZero() && store.IsAccessTokenValid(ctx) {
				t.Fatal("token without a parsable expiry must be treated as expired")
			}
		})
	}
}

func TestTokenStoreMissingExpiryIsExpired(t *testing.T) {
	ctx := context.Background()
	mem := NewMemorySecureStore()
	_ = mem.Save(ctx, KeyAccessToken, "at")
	if NewTokenStore(mem, 0).IsAccessTokenValid(ctx) {
		t.Fatal("expected missing expiry to be invalid")
	}
}

func TestTokenStorePartialPersistence(t *testing.T) {
	ctx := context.Background()
	store := NewTokenStore(&failingStore{MemorySecureStore: NewMemorySecureStore(), failSave: map[string]bool{KeyTokenExpiration: true}}, 0)

	err := store.Save(ctx, spotify.TokenSet{AccessToken: "at", RefreshToken: "rt", ExpiresAt: time.Now().Add(time.Hour)})
	var partial *PartialPersistenceError
	if !errors.As(err, &partial) {
		t.Fatalf("Save() error = %v, want *PartialPersistenceError", err)
	}
	if len(partial.Written) != 2 || len(partial.Failed) != 1 || partial.Failed[0] != KeyTokenExpiration {
		t.Fatalf("partial = %+v", partial)
	}
}

func TestTokenStoreClearIdempotent(t *testing.T) {
	ctx := context.Background()
	mem := NewMemorySecureStore()
	store := NewTokenStore(mem, 0)
	_ = store.Save(ctx, spotify.TokenSet{AccessToken: "at", RefreshToken: "rt", ExpiresAt: time.Now().Add(time.Hour)})

	for i := 0; i < 2; i++ {
		if err := store.Clear(ctx); err != nil {
			t.Fatalf("Clear() #%d error = %v", i+1, err)
		}
	}
	if mem.Len() != 0 {
		t.Fatalf("store still holds %d keys", mem.Len())
	}
	if store.HasUsableRefreshToken(ctx) || store.IsAccessTokenValid(ctx) {
		t.Fatal("expected empty store to be unauthenticated")
	}
}
