package spotify

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// verifierBytes yields an 86 character verifier, inside the 43..128 range of RFC 7636.
const verifierBytes = 64

// GeneratePKCECodes generates a new pair of PKCE (Proof Key for Code Exchange) codes.
// It creates a cryptographically random code verifier and its corresponding
// SHA256 code challenge, as specified in RFC 7636.
func GeneratePKCECodes() (*PKCECodes, error) {
	codeVerifier, err := GenerateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	return &PKCECodes{
		CodeVerifier:  codeVerifier,
		CodeChallenge: DeriveCodeChallenge(codeVerifier),
	}, nil
}

// GenerateCodeVerifier returns a random URL-safe base64 string without padding.
func GenerateCodeVerifier() (string, error) {
	bytes := make([]byte, verifierBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// DeriveCodeChallenge computes the S256 challenge for codeVerifier.
// The URL alphabet already maps '+' to '-' and '/' to '_', and raw encoding omits '='.
func DeriveCodeChallenge(codeVerifier string) string {
	hash := sha256.Sum256([]byte(codeVerifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
