// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dbotia/lab5/internal/platform/apperr"
	"github.com/dbotia/lab5/internal/platform/sec"
	"github.com/dbotia/lab5/pkg/uuid"
)

// # Collaborators

// PasswordHasher derives and checks one-way password secrets.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, secret string) bool
}

// KeyGenerator produces unguessable activation and reset keys.
type KeyGenerator interface {
	Generate() (string, error)
}

// Mailer receives accounts whose lifecycle step requires an email. The account
// carries the key the message must reference. Delivery failures never undo
// the state change that triggered them.
type Mailer interface {
	SendActivationEmail(ctx context.Context, account *Account) error
	SendCreationEmail(ctx context.Context, account *Account) error
	SendPasswordResetMail(ctx context.Context, account *Account) error
}

// # Policy Defaults

const (
	DefaultPasswordMinLength = 4
	DefaultPasswordMaxLength = 100
	DefaultResetKeyValidity  = 24 * time.Hour

	// maxUpdateAttempts bounds the reload-and-retry loop on version conflicts.
	maxUpdateAttempts = 3
)

// # Service Layer

// Service is the account lifecycle engine.
//
// It holds no mutable state of its own beyond configuration; every transition
// is a single conditional write to the [Store], so one Service is shared by
// all requests.
type Service struct {
	store  Store
	hasher PasswordHasher
	keys   KeyGenerator
	mailer Mailer
	logger *slog.Logger

	now              func() time.Time
	resetKeyValidity time.Duration
	minPassword      int
	maxPassword      int

	decoyMu sync.Mutex
	decoy   string
}

// Option customizes a [Service].
type Option func(*Service)

// WithClock replaces time.Now, for tests that move time.
func WithClock(now func() time.Time) Option {
	return func(service *Service) { service.now = now }
}

// WithResetKeyValidity sets how long a reset key stays usable.
func WithResetKeyValidity(window time.Duration) Option {
	return func(service *Service) { service.resetKeyValidity = window }
}

// WithPasswordPolicy sets the accepted password length in characters.
func WithPasswordPolicy(minLength, maxLength int) Option {
	return func(service *Service) {
		service.minPassword = minLength
		service.maxPassword = maxLength
	}
}

// NewService constructs the engine with its collaborators.
func NewService(store Store, hasher PasswordHasher, keys KeyGenerator, mailer Mailer, logger *slog.Logger, opts ...Option) *Service {
	service := &Service{
		store:            store,
		hasher:           hasher,
		keys:             keys,
		mailer:           mailer,
		logger:           logger,
		now:              time.Now,
		resetKeyValidity: DefaultResetKeyValidity,
		minPassword:      DefaultPasswordMinLength,
		maxPassword:      DefaultPasswordMaxLength,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// # Registration & Activation

// RegisterInput carries the fields of a self-service registration.
type RegisterInput struct {
	Login     string
	Password  string
	Email     string
	FirstName string
	LastName  string
	LangKey   string
}

/*
Register creates a pending account and hands it to the mailer for activation.

Description: The password policy is checked first, then login uniqueness,
then email uniqueness. The pre-checks give the caller the right failure in
the common case; the store's uniqueness constraints decide races.

Returns:
  - *Account: The created account, including its activation key
  - error: ErrInvalidPassword, ErrLoginAlreadyUsed, ErrEmailAlreadyUsed or internal faults
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (*Account, error) {
	if !service.passwordAcceptable(input.Password) {
		return nil, ErrInvalidPassword
	}

	login := CanonicalLogin(input.Login)
	email := CanonicalEmail(input.Email)

	if err := service.ensureLoginFree(ctx, login, ""); err != nil {
		return nil, err
	}
	if err := service.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	hash, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("account_service_register_hash_failed: %w", err)
	}

	key, err := service.keys.Generate()
	if err != nil {
		return nil, fmt.Errorf("account_service_register_key_failed: %w", err)
	}

	now := service.now()
	account := &Account{
		ID:           uuid.New(),
		Login:        login,
		Email:        email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		LangKey:      langKeyOrDefault(input.LangKey),
		Authorities:  []string{sec.RoleUser},
		CreatedBy:    AnonymousPrincipal,
		CreatedAt:    now,
		UpdatedBy:    AnonymousPrincipal,
		UpdatedAt:    now,
	}
	account.setActivationKey(key)

	if err := service.store.Insert(ctx, account); err != nil {
		return nil, service.storeFailure(err, "register")
	}

	service.logger.InfoContext(ctx, "account_registered",
		slog.String("account_id", account.ID),
		slog.String("login", account.Login),
	)

	service.deliver(ctx, "activation", account, service.mailer.SendActivationEmail)

	return account, nil
}

/*
Activate turns the pending account holding key into an active one.

Returns:
  - *Account: The activated account
  - error: ErrActivationFailed (unknown or already used key) or internal faults
*/
func (service *Service) Activate(ctx context.Context, key string) (*Account, error) {
	if key == "" {
		return nil, ErrActivationFailed
	}

	account, err := service.mutate(ctx,
		func(ctx context.Context) (*Account, error) { return service.store.FindByActivationKey(ctx, key) },
		func(account *Account) error {
			account.markActivated()
			account.UpdatedBy = account.Login
			return nil
		},
	)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrActivationFailed
		}
		return nil, service.storeFailure(err, "activate")
	}

	service.logger.InfoContext(ctx, "account_activated", slog.String("login", account.Login))
	return account, nil
}

// # Authentication

/*
Authenticate checks a login and password pair.

Description: An unknown login and a wrong password produce the same error,
and both paths run one password verification so their timing matches.
Pending accounts may authenticate.

Returns:
  - *Account: The authenticated account
  - error: ErrAuthenticationFailed or internal faults
*/
func (service *Service) Authenticate(ctx context.Context, login, password string) (*Account, error) {
	account, err := service.store.FindByLogin(ctx, CanonicalLogin(login))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, service.rejectUnknown(ctx, password)
		}
		return nil, fmt.Errorf("account_service_authenticate_failed: %w", err)
	}

	if !service.hasher.Verify(password, account.PasswordHash) {
		return nil, ErrAuthenticationFailed
	}

	return account, nil
}

// rejectUnknown spends one verification on a decoy secret so an unknown login
// costs the same as a wrong password, then fails.
func (service *Service) rejectUnknown(ctx context.Context, password string) error {
	decoy, err := service.decoyHash()
	if err != nil {
		service.logger.ErrorContext(ctx, "decoy_hash_failed", slog.Any("error", err))
		return fmt.Errorf("account_service_decoy_hash_failed: %w", err)
	}

	service.hasher.Verify(password, decoy)
	return ErrAuthenticationFailed
}

// decoyHash returns a real secret to verify against when the login is
// unknown. A failed derivation is not cached; the next call tries again.
func (service *Service) decoyHash() (string, error) {
	service.decoyMu.Lock()
	defer service.decoyMu.Unlock()

	if service.decoy != "" {
		return service.decoy, nil
	}

	decoy, err := service.hasher.Hash("decoy-password-never-matches")
	if err != nil {
		return "", err
	}
	if decoy == "" {
		return "", errors.New("empty decoy secret")
	}

	service.decoy = decoy
	return decoy, nil
}

// # Credential Changes

/*
ChangePassword replaces the password of the account identified by login,
which must be the caller's own authenticated identity.

Returns:
  - error: ErrInvalidPassword, ErrAuthenticationFailed (current password mismatch) or internal faults
*/
func (service *Service) ChangePassword(ctx context.Context, login, currentPassword, newPassword string) error {
	if !service.passwordAcceptable(newPassword) {
		return ErrInvalidPassword
	}
	login = CanonicalLogin(login)

	// The current password is checked before any new secret is derived.
	verified, err := service.store.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return service.rejectUnknown(ctx, currentPassword)
		}
		return service.storeFailure(err, "change_password")
	}
	if !service.hasher.Verify(currentPassword, verified.PasswordHash) {
		return ErrAuthenticationFailed
	}

	hash, err := service.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("account_service_change_password_hash_failed: %w", err)
	}

	_, err = service.mutate(ctx,
		func(ctx context.Context) (*Account, error) {
			return service.store.FindByLogin(ctx, login)
		},
		func(account *Account) error {
			// Re-check only if the secret moved since it was verified.
			if account.PasswordHash != verified.PasswordHash && !service.hasher.Verify(currentPassword, account.PasswordHash) {
				return ErrAuthenticationFailed
			}
			account.PasswordHash = hash
			account.UpdatedBy = account.Login
			return nil
		},
	)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrAuthenticationFailed
		}
		return service.storeFailure(err, "change_password")
	}

	service.logger.InfoContext(ctx, "password_changed", slog.String("login", login))
	return nil
}

/*
RequestPasswordReset stores a fresh reset key on the account registered with
email and hands the account to the mailer.

Description: Any earlier reset key is overwritten. Concurrent requests are
last-write-wins.

Returns:
  - *Account: The account carrying the new reset key
  - error: ErrEmailNotFound or internal faults
*/
func (service *Service) RequestPasswordReset(ctx context.Context, email string) (*Account, error) {
	canonical := CanonicalEmail(email)
	if canonical == "" {
		return nil, ErrEmailNotFound
	}

	account, err := service.mutate(ctx,
		func(ctx context.Context) (*Account, error) { return service.store.FindByEmail(ctx, canonical) },
		func(account *Account) error {
			key, err := service.keys.Generate()
			if err != nil {
				return fmt.Errorf("account_service_reset_key_failed: %w", err)
			}
			account.setResetKey(key, service.now())
			account.UpdatedBy = AnonymousPrincipal
			return nil
		},
	)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrEmailNotFound
		}
		return nil, service.storeFailure(err, "request_password_reset")
	}

	service.logger.InfoContext(ctx, "password_reset_requested", slog.String("login", account.Login))

	service.deliver(ctx, "password_reset", account, service.mailer.SendPasswordResetMail)

	return account, nil
}

/*
CompletePasswordReset sets a new password on the account holding resetKey,
provided the key was issued no longer than the validity window ago. The key
is consumed.

Returns:
  - *Account: The updated account
  - error: ErrInvalidPassword, ErrResetFailed (unknown or expired key) or internal faults
*/
func (service *Service) CompletePasswordReset(ctx context.Context, newPassword, resetKey string) (*Account, error) {
	if !service.passwordAcceptable(newPassword) {
		return nil, ErrInvalidPassword
	}
	if resetKey == "" {
		return nil, ErrResetFailed
	}

	hash, err := service.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("account_service_reset_hash_failed: %w", err)
	}

	account, err := service.mutate(ctx,
		func(ctx context.Context) (*Account, error) { return service.store.FindByResetKey(ctx, resetKey) },
		func(account *Account) error {
			if !service.resetStillValid(account) {
				return ErrResetFailed
			}
			account.PasswordHash = hash
			account.clearReset()
			account.UpdatedBy = account.Login
			return nil
		},
	)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrResetFailed
		}
		return nil, service.storeFailure(err, "complete_password_reset")
	}

	service.logger.InfoContext(ctx, "password_reset_completed", slog.String("login", account.Login))
	return account, nil
}

func (service *Service) resetStillValid(account *Account) bool {
	if account.ResetDate == nil {
		return false
	}
	return service.now().Sub(*account.ResetDate) <= service.resetKeyValidity
}

// # Helpers

func (service *Service) passwordAcceptable(password string) bool {
	n := utf8.RuneCountInString(password)
	return password != "" && n >= service.minPassword && n <= service.maxPassword
}

// ensureLoginFree fails with ErrLoginAlreadyUsed when login belongs to an
// account other than exceptID.
func (service *Service) ensureLoginFree(ctx context.Context, login, exceptID string) error {
	existing, err := service.store.FindByLogin(ctx, login)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("account_service_login_lookup_failed: %w", err)
	case existing.ID != exceptID:
		return ErrLoginAlreadyUsed
	}
	return nil
}

// ensureEmailFree fails with ErrEmailAlreadyUsed when email belongs to an
// account other than exceptID.
func (service *Service) ensureEmailFree(ctx context.Context, email, exceptID string) error {
	existing, err := service.store.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("account_service_email_lookup_failed: %w", err)
	case existing.ID != exceptID:
		return ErrEmailAlreadyUsed
	}
	return nil
}

// mutate runs one read-modify-write cycle against the store. When the
// conditional update loses a race it reloads and reapplies, so a key that
// was consumed meanwhile makes load fail instead of being applied twice.
func (service *Service) mutate(
	ctx context.Context,
	load func(context.Context) (*Account, error),
	apply func(*Account) error,
) (*Account, error) {
	for attempt := 1; ; attempt++ {
		account, err := load(ctx)
		if err != nil {
			return nil, err
		}

		if err := apply(account); err != nil {
			return nil, err
		}
		account.UpdatedAt = service.now()

		err = service.store.Update(ctx, account)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, ErrStaleAccount) || attempt == maxUpdateAttempts {
			return nil, err
		}

		service.logger.DebugContext(ctx, "account_update_retried",
			slog.String("account_id", account.ID),
			slog.Int("attempt", attempt),
		)
	}
}

// storeFailure maps store outcomes to lifecycle failures and wraps the rest.
func (service *Service) storeFailure(err error, op string) error {
	switch {
	case errors.Is(err, ErrLoginTaken):
		return ErrLoginAlreadyUsed
	case errors.Is(err, ErrEmailTaken):
		return ErrEmailAlreadyUsed
	case errors.Is(err, ErrNotFound):
		return ErrAccountNotFound
	case apperr.IsAppError(err):
		return err
	}
	return fmt.Errorf("account_service_%s_failed: %w", op, err)
}

// deliver hands a copy of account to the mailer. Failures are logged only.
func (service *Service) deliver(ctx context.Context, kind string, account *Account, send func(context.Context, *Account) error) {
	if err := send(ctx, account.Clone()); err != nil {
		service.logger.WarnContext(ctx, "account_mail_failed",
			slog.String("kind", kind),
			slog.String("login", account.Login),
			slog.Any("error", err),
		)
	}
}

func langKeyOrDefault(langKey string) string {
	if langKey == "" {
		return DefaultLangKey
	}
	return langKey
}
