// Package auth implements the OAuth authorization-code + PKCE login flow used
// by `plugin-upload init` to obtain a long-lived bearer API key.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// GenerateCodeVerifier returns a fresh high-entropy PKCE code verifier:
// 32 random bytes, base64url without padding (43 chars).
func GenerateCodeVerifier() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateCodeChallenge derives the S256 challenge for a verifier:
// base64url(SHA-256(verifier)), no padding. Deterministic.
func GenerateCodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
