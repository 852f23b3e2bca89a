// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/dbotia/lab5/internal/platform/database/schema"
	"github.com/dbotia/lab5/internal/platform/dberr"
	"github.com/dbotia/lab5/internal/platform/sec"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

var liteAccount = schema.UserAccount.InTable("account")

// SQLiteStore implements [Store] on an embedded SQLite database. Timestamps
// are stored as Unix milliseconds and authorities as a comma-separated list.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the database file at path and
// applies the embedded schema.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite_account_store: path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite_account_store_open_failed: %w", err)
	}

	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite_account_store_ping_failed: %w", err)
	}

	store := NewSQLiteStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore wraps an already opened database handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// EnsureSchema creates the account table and its indexes if missing.
func (repository *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := repository.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("sqlite_account_store_schema_failed: %w", err)
	}
	return nil
}

// Ping checks that the database file is reachable.
func (repository *SQLiteStore) Ping(ctx context.Context) error {
	return repository.db.PingContext(ctx)
}

// Close releases the database handle.
func (repository *SQLiteStore) Close() error {
	return repository.db.Close()
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func joinAuthorities(authorities []string) string {
	return strings.Join(sec.NormalizeAuthorities(authorities), ",")
}

func splitAuthorities(raw string) []string {
	return sec.NormalizeAuthorities(strings.Split(raw, ","))
}

func nullableMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteAccount(row rowScanner) (*Account, error) {
	var (
		account       Account
		activationKey sql.NullString
		resetKey      sql.NullString
		resetDate     sql.NullInt64
		authorities   string
		createdAt     int64
		updatedAt     int64
	)

	err := row.Scan(
		&account.ID,
		&account.Login,
		&account.Email,
		&account.PasswordHash,
		&account.FirstName,
		&account.LastName,
		&account.LangKey,
		&account.Activated,
		&activationKey,
		&resetKey,
		&resetDate,
		&authorities,
		&account.CreatedBy,
		&createdAt,
		&account.UpdatedBy,
		&updatedAt,
		&account.Version,
	)
	if err != nil {
		return nil, err
	}

	if activationKey.Valid {
		account.ActivationKey = &activationKey.String
	}
	if resetKey.Valid {
		account.ResetKey = &resetKey.String
	}
	if resetDate.Valid {
		date := fromMillis(resetDate.Int64)
		account.ResetDate = &date
	}
	account.Authorities = splitAuthorities(authorities)
	account.CreatedAt = fromMillis(createdAt)
	account.UpdatedAt = fromMillis(updatedAt)

	return &account, nil
}

func (repository *SQLiteStore) findOne(ctx context.Context, column, value, op string) (*Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`, liteAccount.SelectList(), liteAccount.Table, column)

	account, err := scanSQLiteAccount(repository.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if dberr.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sqlite_account_repo_%s_failed: %w", op, err)
	}
	return account, nil
}

func (repository *SQLiteStore) FindByID(ctx context.Context, id string) (*Account, error) {
	return repository.findOne(ctx, liteAccount.ID, id, "find_by_id")
}

func (repository *SQLiteStore) FindByLogin(ctx context.Context, login string) (*Account, error) {
	return repository.findOne(ctx, liteAccount.Login, login, "find_by_login")
}

func (repository *SQLiteStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return repository.findOne(ctx, liteAccount.Email, email, "find_by_email")
}

func (repository *SQLiteStore) FindByActivationKey(ctx context.Context, key string) (*Account, error) {
	return repository.findOne(ctx, liteAccount.ActivationKey, key, "find_by_activation_key")
}

func (repository *SQLiteStore) FindByResetKey(ctx context.Context, key string) (*Account, error) {
	return repository.findOne(ctx, liteAccount.ResetKey, key, "find_by_reset_key")
}

func (repository *SQLiteStore) Insert(ctx context.Context, account *Account) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		liteAccount.Table, liteAccount.SelectList())

	_, err := repository.db.ExecContext(ctx, query,
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
		nullableMillis(account.ResetDate),
		joinAuthorities(account.Authorities),
		account.CreatedBy,
		toMillis(account.CreatedAt),
		account.UpdatedBy,
		toMillis(account.UpdatedAt),
	)
	if err != nil {
		if mapped := uniquenessError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("sqlite_account_repo_insert_failed: %w", err)
	}

	account.Version = 1
	return nil
}

func (repository *SQLiteStore) Update(ctx context.Context, account *Account) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = ?, %s = ?, %s = ?, %s = ?, %s = ?, %s = ?, %s = ?,
		    %s = ?, %s = ?, %s = ?, %s = ?, %s = ?, %s = ?,
		    %s = %s + 1
		WHERE %s = ? AND %s = ?`,
		liteAccount.Table,
		liteAccount.Login, liteAccount.Email, liteAccount.PasswordHash, liteAccount.FirstName,
		liteAccount.LastName, liteAccount.LangKey, liteAccount.Activated,
		liteAccount.ActivationKey, liteAccount.ResetKey, liteAccount.ResetDate,
		liteAccount.Authorities, liteAccount.UpdatedBy, liteAccount.UpdatedAt,
		liteAccount.Version, liteAccount.Version,
		liteAccount.ID, liteAccount.Version,
	)

	result, err := repository.db.ExecContext(ctx, query,
		account.Login,
		account.Email,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.LangKey,
		account.Activated,
		account.ActivationKey,
		account.ResetKey,
		nullableMillis(account.ResetDate),
		joinAuthorities(account.Authorities),
		account.UpdatedBy,
		toMillis(account.UpdatedAt),
		account.ID,
		account.Version,
	)
	if err != nil {
		if mapped := uniquenessError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("sqlite_account_repo_update_failed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite_account_repo_update_failed: %w", err)
	}
	if affected == 0 {
		return ErrStaleAccount
	}

	account.Version++
	return nil
}

func (repository *SQLiteStore) Delete(ctx context.Context, login string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, liteAccount.Table, liteAccount.Login)

	result, err := repository.db.ExecContext(ctx, query, login)
	if err != nil {
		return fmt.Errorf("sqlite_account_repo_delete_failed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite_account_repo_delete_failed: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (repository *SQLiteStore) List(ctx context.Context, offset, limit int) ([]*Account, error) {
	if offset < 0 || limit <= 0 {
		return []*Account{}, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s LIMIT ? OFFSET ?`,
		liteAccount.SelectList(), liteAccount.Table, liteAccount.ID)

	rows, err := repository.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("sqlite_account_repo_list_failed: %w", err)
	}
	defer rows.Close()

	accounts := []*Account{}
	for rows.Next() {
		account, err := scanSQLiteAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite_account_repo_list_scan_failed: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite_account_repo_list_failed: %w", err)
	}
	return accounts, nil
}

func (repository *SQLiteStore) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, liteAccount.Table)

	var total int
	if err := repository.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("sqlite_account_repo_count_failed: %w", err)
	}
	return total, nil
}

func (repository *SQLiteStore) DeleteUnactivatedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = 0 AND %s < ? RETURNING %s`,
		liteAccount.Table, liteAccount.Activated, liteAccount.CreatedAt, liteAccount.Login)

	rows, err := repository.db.QueryContext(ctx, query, toMillis(cutoff))
	if err != nil {
		return nil, fmt.Errorf("sqlite_account_repo_purge_failed: %w", err)
	}
	defer rows.Close()

	var logins []string
	for rows.Next() {
		var login string
		if err := rows.Scan(&login); err != nil {
			return nil, fmt.Errorf("sqlite_account_repo_purge_scan_failed: %w", err)
		}
		logins = append(logins, login)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite_account_repo_purge_failed: %w", err)
	}
	return logins, nil
}

var _ Store = (*SQLiteStore)(nil)
