// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// # Hashing Parameters

const (
	// MaxPasswordBytes bounds the work a single Hash or Verify call can be forced to do.
	MaxPasswordBytes = 4096

	saltLength = 16
	keyLength  = 32
)

// ErrPasswordTooLarge is returned by [Hasher.Hash] for inputs over [MaxPasswordBytes].
var ErrPasswordTooLarge = errors.New("sec: password exceeds maximum length")

// HashParams are the argon2id cost parameters.
type HashParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultHashParams are the production defaults (64 MiB, 3 passes, 2 lanes).
var DefaultHashParams = HashParams{Memory: 64 * 1024, Iterations: 3, Parallelism: 2}

// Hasher derives and checks one-way password secrets with argon2id.
//
// Secrets are encoded in the PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>
//
// The parameters travel with the secret, so raising the cost only affects new
// hashes. Secrets produced by bcrypt (prefix $2a$, $2b$ or $2y$) are still
// accepted by Verify.
type Hasher struct {
	params HashParams
}

// NewHasher creates a Hasher with the given cost parameters.
func NewHasher(params HashParams) *Hasher {
	return &Hasher{params: params}
}

// Hash returns a salted argon2id secret for plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLarge
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("sec: failed to read salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, keyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory, h.params.Iterations, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches secret. Malformed secrets never match.
func (h *Hasher) Verify(plaintext, secret string) bool {
	if len(plaintext) > MaxPasswordBytes {
		return false
	}

	if isBcrypt(secret) {
		return bcrypt.CompareHashAndPassword([]byte(secret), []byte(plaintext)) == nil
	}

	params, salt, key, err := decodeArgon2id(secret)
	if err != nil {
		return false
	}

	derived := argon2.IDKey([]byte(plaintext), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(derived, key) == 1
}

func isBcrypt(secret string) bool {
	return strings.HasPrefix(secret, "$2a$") ||
		strings.HasPrefix(secret, "$2b$") ||
		strings.HasPrefix(secret, "$2y$")
}

func decodeArgon2id(secret string) (HashParams, []byte, []byte, error) {
	var params HashParams

	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(secret, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params, nil, nil, errors.New("sec: not an argon2id secret")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return params, nil, nil, errors.New("sec: unsupported argon2 version")
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return params, nil, nil, fmt.Errorf("sec: bad argon2 parameters: %w", err)
	}
	if params.Memory == 0 || params.Iterations == 0 || params.Parallelism == 0 {
		return params, nil, nil, errors.New("sec: zero argon2 parameter")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params, nil, nil, fmt.Errorf("sec: bad salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return params, nil, nil, errors.New("sec: bad key")
	}

	return params, salt, key, nil
}
