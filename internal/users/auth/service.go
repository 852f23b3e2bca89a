// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth exchanges credentials for signed session tokens.

Architecture:

  - Service: Verifies a login/password pair through the account engine and
    signs a token carrying the account's authorities.
  - Handler: The /api/authenticate endpoints.

Tokens are stateless. Nothing is stored per session; revocation happens by
expiry only.
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dbotia/lab5/internal/users/account"
)

// # Contracts & Types

// Authenticator checks a login/password pair.
type Authenticator interface {
	Authenticate(ctx context.Context, login, password string) (*account.Account, error)
}

// TokenCreator signs session tokens.
type TokenCreator interface {
	CreateToken(login string, authorities []string, rememberMe bool) (string, error)
}

// Service implements the credential exchange.
type Service struct {
	accounts Authenticator
	tokens   TokenCreator
	logger   *slog.Logger
}

// NewService constructs a new [Service].
func NewService(accounts Authenticator, tokens TokenCreator, logger *slog.Logger) *Service {
	return &Service{accounts: accounts, tokens: tokens, logger: logger}
}

// LoginInput holds a credential exchange request.
type LoginInput struct {
	Login      string
	Password   string
	RememberMe bool
	IPAddress  string
}

// Session is what a successful login returns to the client.
type Session struct {
	IDToken string `json:"id_token"`
}

/*
Login verifies credentials and signs a token for the account.

Description: The token subject is the canonical login. With RememberMe the
token gets the long validity.

Returns:
  - *Session: The signed token
  - error: account.ErrAuthenticationFailed or internal faults
*/
func (service *Service) Login(ctx context.Context, input LoginInput) (*Session, error) {

	// Verify credentials; unknown login and wrong password look the same
	authenticated, err := service.accounts.Authenticate(ctx, input.Login, input.Password)
	if err != nil {
		if errors.Is(err, account.ErrAuthenticationFailed) {
			service.logger.WarnContext(ctx, "login_failed",
				slog.String("login", account.CanonicalLogin(input.Login)),
				slog.String("ip", input.IPAddress),
			)
		}
		return nil, err
	}

	// Sign the session token
	token, err := service.tokens.CreateToken(authenticated.Login, authenticated.Authorities, input.RememberMe)
	if err != nil {
		return nil, fmt.Errorf("auth_service_sign_failed: %w", err)
	}

	service.logger.InfoContext(ctx, "login_succeeded",
		slog.String("login", authenticated.Login),
		slog.Bool("remember_me", input.RememberMe),
	)

	return &Session{IDToken: token}, nil
}
