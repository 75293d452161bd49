// Package tokenhash generates refresh tokens and derives their storage
// digests. Tokens are high-entropy random strings, so the digest is a plain
// unsalted SHA-256: it only has to be one-way, not slow.
package tokenhash

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Refresh tokens are 64 random bytes hex encoded: 128 characters
const tokenBytesLen = 64

// New generates a plaintext refresh token from a cryptographically secure
// random source. The plaintext is handed to the client exactly once, only
// the digest is ever stored.
func New() (string, error) {
	b := make([]byte, tokenBytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("error while generating refresh token. Err: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Hash returns the hex-encoded SHA-256 digest of the plaintext token
func Hash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
