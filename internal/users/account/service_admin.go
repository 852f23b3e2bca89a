// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dbotia/lab5/internal/platform/sec"
	"github.com/dbotia/lab5/pkg/uuid"
)

// # Self-Service Profile

// ProfileInput carries the fields an owner may change on their own account.
type ProfileInput struct {
	FirstName string
	LastName  string
	Email     string
	LangKey   string
}

// GetAccount returns the account of login, or ErrAccountNotFound.
func (service *Service) GetAccount(ctx context.Context, login string) (*Account, error) {
	account, err := service.store.FindByLogin(ctx, CanonicalLogin(login))
	if err != nil {
		return nil, service.storeFailure(err, "get_account")
	}
	return account, nil
}

/*
UpdateAccount changes the profile of the caller's own account.

Returns:
  - *Account: The updated account
  - error: ErrEmailAlreadyUsed, ErrAccountNotFound or internal faults
*/
func (service *Service) UpdateAccount(ctx context.Context, login string, input ProfileInput) (*Account, error) {
	login = CanonicalLogin(login)
	email := CanonicalEmail(input.Email)

	account, err := service.mutate(ctx,
		func(ctx context.Context) (*Account, error) { return service.store.FindByLogin(ctx, login) },
		func(account *Account) error {
			if err := service.ensureEmailFree(ctx, email, account.ID); err != nil {
				return err
			}
			account.FirstName = input.FirstName
			account.LastName = input.LastName
			account.Email = email
			account.LangKey = langKeyOrDefault(input.LangKey)
			account.UpdatedBy = login
			return nil
		},
	)
	if err != nil {
		return nil, service.storeFailure(err, "update_account")
	}

	service.logger.InfoContext(ctx, "account_profile_updated", slog.String("login", login))
	return account, nil
}

// # Administration

// UserInput carries the fields an administrator sets on an account. ID is
// ignored on creation and required on update.
type UserInput struct {
	ID          string
	Login       string
	Email       string
	FirstName   string
	LastName    string
	LangKey     string
	Activated   bool
	Authorities []string
}

/*
CreateUser creates an active account on behalf of an administrator.

Description: The account gets an unusable random password and a reset key;
the creation mail invites the user to choose a password through the reset
flow. Authorities default to ROLE_USER.

Returns:
  - *Account: The created account
  - error: ErrLoginAlreadyUsed, ErrEmailAlreadyUsed, ErrUnknownAuthority or internal faults
*/
func (service *Service) CreateUser(ctx context.Context, actor string, input UserInput) (*Account, error) {
	authorities, err := checkAuthorities(input.Authorities)
	if err != nil {
		return nil, err
	}

	login := CanonicalLogin(input.Login)
	email := CanonicalEmail(input.Email)

	if err := service.ensureLoginFree(ctx, login, ""); err != nil {
		return nil, err
	}
	if err := service.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	placeholder, err := service.keys.Generate()
	if err != nil {
		return nil, fmt.Errorf("account_service_create_user_key_failed: %w", err)
	}
	hash, err := service.hasher.Hash(placeholder)
	if err != nil {
		return nil, fmt.Errorf("account_service_create_user_hash_failed: %w", err)
	}
	resetKey, err := service.keys.Generate()
	if err != nil {
		return nil, fmt.Errorf("account_service_create_user_key_failed: %w", err)
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
		Activated:    true,
		Authorities:  authorities,
		CreatedBy:    actor,
		CreatedAt:    now,
		UpdatedBy:    actor,
		UpdatedAt:    now,
	}
	account.setResetKey(resetKey, now)

	if err := service.store.Insert(ctx, account); err != nil {
		return nil, service.storeFailure(err, "create_user")
	}

	service.logger.InfoContext(ctx, "account_created_by_admin",
		slog.String("login", account.Login),
		slog.String("actor", actor),
	)

	service.deliver(ctx, "creation", account, service.mailer.SendCreationEmail)

	return account, nil
}

/*
UpdateUser applies an administrator's changes to an existing account.

Description: Deactivating an account puts it back in the pending state with
a fresh activation key; activating it discards the key.

Returns:
  - *Account: The updated account
  - error: ErrAccountNotFound, ErrLoginAlreadyUsed, ErrEmailAlreadyUsed, ErrUnknownAuthority or internal faults
*/
func (service *Service) UpdateUser(ctx context.Context, actor string, input UserInput) (*Account, error) {
	authorities, err := checkAuthorities(input.Authorities)
	if err != nil {
		return nil, err
	}

	login := CanonicalLogin(input.Login)
	email := CanonicalEmail(input.Email)

	account, err := service.mutate(ctx,
		func(ctx context.Context) (*Account, error) { return service.store.FindByID(ctx, input.ID) },
		func(account *Account) error {
			if err := service.ensureLoginFree(ctx, login, account.ID); err != nil {
				return err
			}
			if err := service.ensureEmailFree(ctx, email, account.ID); err != nil {
				return err
			}

			account.Login = login
			account.Email = email
			account.FirstName = input.FirstName
			account.LastName = input.LastName
			account.LangKey = langKeyOrDefault(input.LangKey)
			account.Authorities = authorities
			account.UpdatedBy = actor

			switch {
			case input.Activated && !account.Activated:
				account.markActivated()
			case !input.Activated && account.Activated:
				key, err := service.keys.Generate()
				if err != nil {
					return fmt.Errorf("account_service_update_user_key_failed: %w", err)
				}
				account.setActivationKey(key)
			}
			return nil
		},
	)
	if err != nil {
		return nil, service.storeFailure(err, "update_user")
	}

	service.logger.InfoContext(ctx, "account_updated_by_admin",
		slog.String("login", account.Login),
		slog.String("actor", actor),
	)
	return account, nil
}

// GetUser returns the account of login, or ErrAccountNotFound.
func (service *Service) GetUser(ctx context.Context, login string) (*Account, error) {
	return service.GetAccount(ctx, login)
}

// ListUsers returns one page of accounts in creation order and the total count.
func (service *Service) ListUsers(ctx context.Context, offset, limit int) ([]*Account, int, error) {
	total, err := service.store.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("account_service_list_users_failed: %w", err)
	}

	accounts, err := service.store.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("account_service_list_users_failed: %w", err)
	}
	return accounts, total, nil
}

// DeleteUser removes the account of login, or returns ErrAccountNotFound.
func (service *Service) DeleteUser(ctx context.Context, actor, login string) error {
	login = CanonicalLogin(login)
	if err := service.store.Delete(ctx, login); err != nil {
		return service.storeFailure(err, "delete_user")
	}

	service.logger.InfoContext(ctx, "account_deleted",
		slog.String("login", login),
		slog.String("actor", actor),
	)
	return nil
}

// Authorities lists every authority an account may hold.
func (service *Service) Authorities() []string {
	return slices.Clone(sec.KnownAuthorities)
}

// # Housekeeping

/*
RemoveUnactivated deletes pending accounts registered more than ttl ago.

Returns:
  - []string: Logins that were removed
  - error: Storage failures
*/
func (service *Service) RemoveUnactivated(ctx context.Context, ttl time.Duration) ([]string, error) {
	removed, err := service.store.DeleteUnactivatedBefore(ctx, service.now().Add(-ttl))
	if err != nil {
		return nil, fmt.Errorf("account_service_remove_unactivated_failed: %w", err)
	}

	for _, login := range removed {
		service.logger.InfoContext(ctx, "unactivated_account_removed", slog.String("login", login))
	}
	return removed, nil
}

// checkAuthorities normalizes the requested set and rejects unknown names.
func checkAuthorities(requested []string) ([]string, error) {
	authorities := sec.NormalizeAuthorities(requested)
	if len(authorities) == 0 {
		return []string{sec.RoleUser}, nil
	}
	for _, authority := range authorities {
		if !sec.IsKnownAuthority(authority) {
			return nil, ErrUnknownAuthority.WithCause(errors.New(authority))
		}
	}
	return authorities, nil
}
