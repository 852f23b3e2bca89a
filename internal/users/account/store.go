// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"time"
)

// # Repository Contracts

// Store is the persistence contract for accounts. It is the only owner of
// account state; every method is safe for concurrent use.
//
// Lookups return copies. Logins and emails passed to lookups must already be
// canonical (see [CanonicalLogin]).
type Store interface {
	/*
		FindByID retrieves an account by its surrogate id.

		Returns:
		  - *Account: Loaded account
		  - error: ErrNotFound or storage failures
	*/
	FindByID(ctx context.Context, id string) (*Account, error)

	/*
		FindByLogin retrieves an account by canonical login.

		Returns:
		  - *Account: Loaded account
		  - error: ErrNotFound or storage failures
	*/
	FindByLogin(ctx context.Context, login string) (*Account, error)

	/*
		FindByEmail retrieves an account by canonical email.

		Returns:
		  - *Account: Loaded account
		  - error: ErrNotFound or storage failures
	*/
	FindByEmail(ctx context.Context, email string) (*Account, error)

	/*
		FindByActivationKey retrieves the pending account holding exactly key.

		Returns:
		  - *Account: Loaded account
		  - error: ErrNotFound or storage failures
	*/
	FindByActivationKey(ctx context.Context, key string) (*Account, error)

	/*
		FindByResetKey retrieves the account holding exactly key.

		Returns:
		  - *Account: Loaded account
		  - error: ErrNotFound or storage failures
	*/
	FindByResetKey(ctx context.Context, key string) (*Account, error)

	/*
		Insert persists a new account. Uniqueness of login and email is checked
		atomically with the write.

		Returns:
		  - error: ErrLoginTaken, ErrEmailTaken or storage failures
	*/
	Insert(ctx context.Context, account *Account) error

	/*
		Update replaces the stored account if its version still equals
		account.Version, then increments account.Version.

		Returns:
		  - error: ErrStaleAccount, ErrLoginTaken, ErrEmailTaken or storage failures
	*/
	Update(ctx context.Context, account *Account) error

	/*
		Delete removes the account with the given canonical login.

		Returns:
		  - error: ErrNotFound or storage failures
	*/
	Delete(ctx context.Context, login string) error

	// List returns accounts ordered by id, which is creation order.
	List(ctx context.Context, offset, limit int) ([]*Account, error)

	// Count returns the number of stored accounts.
	Count(ctx context.Context) (int, error)

	/*
		DeleteUnactivatedBefore removes pending accounts created before cutoff
		in a single statement, so an account activated concurrently survives.

		Returns:
		  - []string: Logins that were removed
		  - error: Storage failures
	*/
	DeleteUnactivatedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}
