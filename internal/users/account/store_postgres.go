// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account (Postgres) implements the account store on PostgreSQL.

# Schema Table Mapping
  - users.account: identity, credential, activation and reset state.

Uniqueness is enforced by the uq_account_login and uq_account_email
constraints; violations surface as ErrLoginTaken / ErrEmailTaken.
*/
package account

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dbotia/lab5/internal/platform/database/schema"
	"github.com/dbotia/lab5/internal/platform/dberr"
	"github.com/dbotia/lab5/internal/platform/sec"
	"github.com/dbotia/lab5/pkg/uuid"
)

// # Repository Implementations

// PostgresStore implements [Store] using pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new Postgres implementation of the account store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var pgAccount = schema.UserAccount

func scanPostgresAccount(row pgx.Row) (*Account, error) {
	account := &Account{}
	err := row.Scan(
		&account.ID,
		&account.Login,
		&account.Email,
		&account.PasswordHash,
		&account.FirstName,
		&account.LastName,
		&account.LangKey,
		&account.Activated,
		&account.ActivationKey,
		&account.ResetKey,
		&account.ResetDate,
		&account.Authorities,
		&account.CreatedBy,
		&account.CreatedAt,
		&account.UpdatedBy,
		&account.UpdatedAt,
		&account.Version,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (repository *PostgresStore) findOne(ctx context.Context, column, value, op string) (*Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, pgAccount.SelectList(), pgAccount.Table, column)

	account, err := scanPostgresAccount(repository.pool.QueryRow(ctx, query, value))
	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres_account_repo_%s_failed: %w", op, err)
	}
	return account, nil
}

/*
FindByID retrieves an account from the users.account table.

Returns:
  - *Account: Hydrated account
  - error: ErrNotFound or database execution failure
*/
func (repository *PostgresStore) FindByID(ctx context.Context, id string) (*Account, error) {
	// A malformed id cannot match the UUID column; don't let it reach the cast.
	if !uuid.Valid(id) {
		return nil, ErrNotFound
	}
	return repository.findOne(ctx, pgAccount.ID, id, "find_by_id")
}

func (repository *PostgresStore) FindByLogin(ctx context.Context, login string) (*Account, error) {
	return repository.findOne(ctx, pgAccount.Login, login, "find_by_login")
}

func (repository *PostgresStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return repository.findOne(ctx, pgAccount.Email, email, "find_by_email")
}

func (repository *PostgresStore) FindByActivationKey(ctx context.Context, key string) (*Account, error) {
	return repository.findOne(ctx, pgAccount.ActivationKey, key, "find_by_activation_key")
}

func (repository *PostgresStore) FindByResetKey(ctx context.Context, key string) (*Account, error) {
	return repository.findOne(ctx, pgAccount.ResetKey, key, "find_by_reset_key")
}

/*
Insert persists a new account row with version 1.

Returns:
  - error: ErrLoginTaken, ErrEmailTaken or database execution failure
*/
func (repository *PostgresStore) Insert(ctx context.Context, account *Account) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1)`,
		pgAccount.Table, pgAccount.SelectList(),
	)

	_, err := repository.pool.Exec(ctx, query,
		account.ID,
		account.Login,
		account.Email,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.LangKey,
		account.Activated,
		account.ActivationKey,
		account.ResetKey,
		account.ResetDate,
		sec.NormalizeAuthorities(account.Authorities),
		account.CreatedBy,
		account.CreatedAt.UTC(),
		account.UpdatedBy,
		account.UpdatedAt.UTC(),
	)
	if err != nil {
		if mapped := uniquenessError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("postgres_account_repo_insert_failed: %w", err)
	}

	account.Version = 1
	return nil
}

/*
Update writes every mutable column in one conditional statement.

Description: The row is only touched when its version still equals
account.Version, so two concurrent read-modify-write cycles cannot both
succeed.

Returns:
  - error: ErrStaleAccount, ErrLoginTaken, ErrEmailTaken or database failure
*/
func (repository *PostgresStore) Update(ctx context.Context, account *Account) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $3, %s = $4, %s = $5, %s = $6, %s = $7, %s = $8, %s = $9,
		    %s = $10, %s = $11, %s = $12, %s = $13, %s = $14, %s = $15,
		    %s = %s + 1
		WHERE %s = $1 AND %s = $2`,
		pgAccount.Table,
		pgAccount.Login, pgAccount.Email, pgAccount.PasswordHash, pgAccount.FirstName,
		pgAccount.LastName, pgAccount.LangKey, pgAccount.Activated,
		pgAccount.ActivationKey, pgAccount.ResetKey, pgAccount.ResetDate,
		pgAccount.Authorities, pgAccount.UpdatedBy, pgAccount.UpdatedAt,
		pgAccount.Version, pgAccount.Version,
		pgAccount.ID, pgAccount.Version,
	)

	tag, err := repository.pool.Exec(ctx, query,
		account.ID,
		account.Version,
		account.Login,
		account.Email,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.LangKey,
		account.Activated,
		account.ActivationKey,
		account.ResetKey,
		account.ResetDate,
		sec.NormalizeAuthorities(account.Authorities),
		account.UpdatedBy,
		account.UpdatedAt.UTC(),
	)
	if err != nil {
		if mapped := uniquenessError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("postgres_account_repo_update_failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrStaleAccount
	}

	account.Version++
	return nil
}

func (repository *PostgresStore) Delete(ctx context.Context, login string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, pgAccount.Table, pgAccount.Login)

	tag, err := repository.pool.Exec(ctx, query, login)
	if err != nil {
		return fmt.Errorf("postgres_account_repo_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (repository *PostgresStore) List(ctx context.Context, offset, limit int) ([]*Account, error) {
	if offset < 0 || limit <= 0 {
		return []*Account{}, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s LIMIT $1 OFFSET $2`,
		pgAccount.SelectList(), pgAccount.Table, pgAccount.ID)

	rows, err := repository.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("postgres_account_repo_list_failed: %w", err)
	}
	defer rows.Close()

	accounts := []*Account{}
	for rows.Next() {
		account, err := scanPostgresAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres_account_repo_list_scan_failed: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_account_repo_list_failed: %w", err)
	}

	return accounts, nil
}

func (repository *PostgresStore) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, pgAccount.Table)

	var total int
	if err := repository.pool.QueryRow(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("postgres_account_repo_count_failed: %w", err)
	}
	return total, nil
}

func (repository *PostgresStore) DeleteUnactivatedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = FALSE AND %s < $1 RETURNING %s`,
		pgAccount.Table, pgAccount.Activated, pgAccount.CreatedAt, pgAccount.Login)

	rows, err := repository.pool.Query(ctx, query, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("postgres_account_repo_purge_failed: %w", err)
	}

	logins, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres_account_repo_purge_failed: %w", err)
	}
	return logins, nil
}

// uniquenessError maps a unique-constraint violation to the store sentinel,
// or returns nil for any other error.
func uniquenessError(err error) error {
	constraint, ok := dberr.UniqueViolation(err)
	if !ok {
		return nil
	}
	switch {
	case dberr.Mentions(constraint, pgAccount.Login):
		return ErrLoginTaken
	case dberr.Mentions(constraint, pgAccount.Email):
		return ErrEmailTaken
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
