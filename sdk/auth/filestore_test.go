package auth

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/tidwall/gjson"
)

func TestFileSecureStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "secrets.json")
	store := NewFileSecureStore(path)

	if _, found, err := store.Retrieve(ctx, "spotify_access_token"); err != nil || found {
		t.Fatalf("Retrieve() on empty store = found %v, err %v", found, err)
	}
	if err := store.Save(ctx, "spotify_access_token", "at"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, "spotify_refresh_token", "rt"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, found, err := store.Retrieve(ctx, "spotify_access_token")
	if err != nil || !found || got != "at" {
		t.Fatalf("Retrieve() = %q, %v, %v", got, found, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	if v := gjson.GetBytes(raw, "secrets.spotify_refresh_token").String(); v != "rt" {
		t.Fatalf("document refresh token = %q", v)
	}
	if runtime.GOOS != "windows" {
		info, _ := os.Stat(path)
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Fatalf("permissions = %o, want 600", perm)
		}
	}

	if err = store.Delete(ctx, "spotify_access_token"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err = store.Delete(ctx, "spotify_access_token"); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if _, found, _ = store.Retrieve(ctx, "spotify_access_token"); found {
		t.Fatal("expected key to be gone")
	}
	if _, found, _ = store.Retrieve(ctx, "spotify_refresh_token"); !found {
		t.Fatal("unrelated key was removed")
	}
}

func TestFileSecureStoreRejectsPathKeys(t *testing.T) {
	store := NewFileSecureStore(filepath.Join(t.TempDir(), "secrets.json"))
	if err := store.Save(context.Background(), "a.b", "v"); err == nil {
		t.Fatal("expected invalid key error")
	}
}

func TestFileSecureStoreCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewFileSecureStore(path).Retrieve(context.Background(), "k"); err == nil {
		t.Fatal("expected error for corrupt document")
	}
}
