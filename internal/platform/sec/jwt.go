// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and session token management.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, random keys, JWT
// signing) from the account domain. Its types are injected into the lifecycle
// engine and the HTTP middleware through small interfaces declared by the
// consumers.
package sec

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrUnauthenticated is returned by [TokenIssuer.Verify] for every rejected token.
// Bad signatures, expired tokens and malformed input are not distinguished.
var ErrUnauthenticated = errors.New("sec: unauthenticated")

// AuthClaims represents the payload embedded inside a session token.
//
// The subject is the account login and "auth" lists its authorities, so the
// middleware can rebuild the caller's identity without a store lookup.
type AuthClaims struct {
	jwt.RegisteredClaims

	Authorities []string `json:"auth"`
}

// Login returns the subject of the token.
func (c *AuthClaims) Login() string { return c.Subject }

// IssuerOptions configures token lifetimes.
type IssuerOptions struct {
	Issuer             string
	Validity           time.Duration
	RememberMeValidity time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// TokenIssuer creates and verifies RS256 session tokens.
//
// The key pair is fixed at construction and only read afterwards, so a single
// issuer is safe for concurrent use.
type TokenIssuer struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	opts       IssuerOptions
}

// NewTokenIssuer creates an issuer from an in-memory key.
func NewTokenIssuer(privateKey *rsa.PrivateKey, opts IssuerOptions) (*TokenIssuer, error) {
	if privateKey == nil {
		return nil, errors.New("sec: signing key is required")
	}
	if opts.Validity <= 0 || opts.RememberMeValidity <= 0 {
		return nil, errors.New("sec: token validity must be positive")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &TokenIssuer{
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
		opts:       opts,
	}, nil
}

// NewTokenIssuerFromFiles reads the RSA key pair from PEM files.
func NewTokenIssuerFromFiles(privateKeyPath, publicKeyPath string, opts IssuerOptions) (*TokenIssuer, error) {
	privateKeyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read private key from %s: %w", privateKeyPath, err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse private key: %w", err)
	}

	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read public key from %s: %w", publicKeyPath, err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse public key: %w", err)
	}

	if !privateKey.PublicKey.Equal(publicKey) {
		return nil, errors.New("sec: public key does not match private key")
	}

	return NewTokenIssuer(privateKey, opts)
}

// CreateToken signs a token for login carrying its authorities. rememberMe
// selects the long validity.
func (issuer *TokenIssuer) CreateToken(login string, authorities []string, rememberMe bool) (string, error) {
	now := issuer.opts.Now()

	validity := issuer.opts.Validity
	if rememberMe {
		validity = issuer.opts.RememberMeValidity
	}

	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   login,
			Issuer:    issuer.opts.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		Authorities: NormalizeAuthorities(authorities),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(issuer.privateKey)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature, expiry and structure of tokenString.
// Every failure is reported as [ErrUnauthenticated].
func (issuer *TokenIssuer) Verify(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return issuer.publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(issuer.opts.Now),
	)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrUnauthenticated
	}

	return claims, nil
}
