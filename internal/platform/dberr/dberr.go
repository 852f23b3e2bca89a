// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr classifies driver errors from the PostgreSQL and SQLite stores
// so repositories can map them to domain outcomes without importing each other's
// drivers.
package dberr

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// IsNotFound reports whether err signals an empty single-row result from
// either pgx or database/sql.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

// UniqueViolation reports whether err is a unique-constraint violation and, if
// so, returns a description of the violated constraint: the constraint name for
// PostgreSQL ("uq_account_login") or the "table.column" list for SQLite
// ("account.login").
func UniqueViolation(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return "", false
		}
		return pgErr.ConstraintName, true
	}

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return sqliteConstraintTarget(sqliteErr.Error()), true
		}
		return "", false
	}

	return "", false
}

// sqliteConstraintTarget extracts "account.login" from
// "constraint failed: UNIQUE constraint failed: account.login (2067)".
func sqliteConstraintTarget(message string) string {
	const marker = "constraint failed: "
	idx := strings.LastIndex(message, marker)
	if idx < 0 {
		return ""
	}
	target := message[idx+len(marker):]
	if paren := strings.Index(target, " ("); paren >= 0 {
		target = target[:paren]
	}
	return strings.TrimSpace(target)
}

// Mentions reports whether a constraint description refers to column.
// It matches both "uq_account_login" and "account.login".
func Mentions(constraint, column string) bool {
	constraint = strings.ToLower(constraint)
	return strings.HasSuffix(constraint, "_"+column) ||
		strings.HasSuffix(constraint, "."+column) ||
		strings.Contains(constraint, "."+column+",")
}
