package crypto

import (
	"errors"
	"testing"
)

func TestEncryptDecrypt(t *testing.T) {
	enc, err := NewEncryptor("correct horse battery staple")
	if err != nil {
		t.Fatalf("NewEncryptor() error = %v", err)
	}

	sealed, err := enc.Encrypt("spotify_access_token", "BQD-token")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if sealed == "BQD-token" {
		t.Fatal("ciphertext equals plaintext")
	}
	again, _ := enc.Encrypt("spotify_access_token", "BQD-token")
	if again == sealed {
		t.Fatal("expected a fresh nonce per call")
	}

	opened, err := enc.Decrypt("spotify_access_token", sealed)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if opened != "BQD-token" {
		t.Fatalf("Decrypt() = %q", opened)
	}
}

func TestDecryptRejectsWrongLabelAndKey(t *testing.T) {
	enc, _ := NewEncryptor("key-one")
	sealed, _ := enc.Encrypt("spotify_access_token", "value")

	if _, err := enc.Decrypt("spotify_refresh_token", sealed); err == nil {
		t.Fatal("expected label mismatch to fail")
	}

	other, _ := NewEncryptor("key-two")
	if _, err := other.Decrypt("spotify_access_token", sealed); err == nil {
		t.Fatal("expected key mismatch to fail")
	}

	if _, err := enc.Decrypt("x", "AAAA"); !errors.Is(err, ErrCiphertextTooShort) {
		t.Fatalf("Decrypt() error = %v, want ErrCiphertextTooShort", err)
	}
}

func TestEmptyValues(t *testing.T) {
	if _, err := NewEncryptor(""); err == nil {
		t.Fatal("expected error for empty passphrase")
	}
	enc, _ := NewEncryptor("k")
	if got, _ := enc.Encrypt("a", ""); got != "" {
		t.Fatalf("Encrypt(\"\") = %q", got)
	}
	if got, _ := enc.Decrypt("a", ""); got != "" {
		t.Fatalf("Decrypt(\"\") = %q", got)
	}
}
