// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// DefaultTokenBytes is the entropy of activation and reset keys (256 bits).
const DefaultTokenBytes = 32

// GenerateSecureToken returns n bytes from the system CSPRNG encoded as
// unpadded base64url, safe to embed in a query string.
func GenerateSecureToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the hex SHA-256 of a token. It is used to fingerprint
// keys in logs without exposing them.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// RandomTokens generates activation and reset keys.
type RandomTokens struct {
	// Bytes of entropy per token; zero means DefaultTokenBytes.
	Bytes int
}

// Generate returns a fresh URL-safe token.
func (g RandomTokens) Generate() (string, error) {
	n := g.Bytes
	if n <= 0 {
		n = DefaultTokenBytes
	}
	return GenerateSecureToken(n)
}
