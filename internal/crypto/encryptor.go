// Package crypto provides AES-256-GCM sealing of credential values stored at rest.
//
// Keys are derived from a passphrase with PBKDF2-SHA256. Each Encrypt call uses a
// fresh random nonce, prepended to the ciphertext and base64 encoded.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyIterations = 10000
	keyLength     = 32
)

var keySalt = []byte("musicalarm-secure-store")

// ErrCiphertextTooShort is returned when the decoded payload cannot hold a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Encryptor seals and opens values with a key derived from a passphrase.
// It is safe for concurrent use.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor derives an AES-256 key from passphrase.
func NewEncryptor(passphrase string) (*Encryptor, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("encryption key cannot be empty")
	}
	derivedKey := pbkdf2.Key([]byte(passphrase), keySalt, keyIterations, keyLength, sha256.New)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Encryptor{aead: gcm}, nil
}

// Encrypt seals plaintext. label is bound as additional data, so a value copied
// under a different key fails to open. Empty plaintext encrypts to an empty string.
func (e *Encryptor) Encrypt(label, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to create nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), []byte(label))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt with the same label.
func (e *Encryptor) Decrypt(label, ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return "", ErrCiphertextTooShort
	}
	plaintext, err := e.aead.Open(nil, data[:nonceSize], data[nonceSize:], []byte(label))
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}
