// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account implements the account and credential lifecycle.

An account moves from registration (pending, with an activation key) to active,
and its password can be changed by the owner or reset through a one-time key
sent by mail. This package owns those rules; persistence, hashing, key
generation and mail delivery are collaborators passed in as interfaces.

# Architecture

  - Entities: [Account], the persisted identity and credential record.
  - Store: [Store] and its PostgreSQL, SQLite and in-memory implementations.
  - Engine: [Service], the lifecycle operations and the admin user management built on them.
  - Worker: [Reaper], which purges registrations never activated.
  - Delivery: [Handler], the /api account endpoints.
*/
package account

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// # Domain Entities

// Account is the identity and credential record of one user.
//
// # Invariants
//
//   - Pending accounts have Activated=false and a non-nil ActivationKey; active
//     accounts have Activated=true and a nil ActivationKey.
//   - ResetKey and ResetDate are both nil or both set.
//   - Login and Email are stored in canonical form (see [CanonicalLogin]).
type Account struct {
	ID            string     `json:"id"`
	Login         string     `json:"login"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	LangKey       string     `json:"langKey"`
	Activated     bool       `json:"activated"`
	ActivationKey *string    `json:"-"`
	ResetKey      *string    `json:"-"`
	ResetDate     *time.Time `json:"-"`
	Authorities   []string   `json:"authorities"`
	CreatedBy     string     `json:"createdBy"`
	CreatedAt     time.Time  `json:"createdDate"`
	UpdatedBy     string     `json:"lastModifiedBy"`
	UpdatedAt     time.Time  `json:"lastModifiedDate"`

	// Version increases on every successful update. Stores reject an update
	// whose Version no longer matches the stored row.
	Version int64 `json:"-"`
}

// Pending reports whether the account still awaits activation.
func (a *Account) Pending() bool {
	return !a.Activated
}

// Clone returns a deep copy so callers can mutate it without affecting the original.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Authorities = slices.Clone(a.Authorities)
	if a.ActivationKey != nil {
		key := *a.ActivationKey
		c.ActivationKey = &key
	}
	if a.ResetKey != nil {
		key := *a.ResetKey
		c.ResetKey = &key
	}
	if a.ResetDate != nil {
		date := *a.ResetDate
		c.ResetDate = &date
	}
	return &c
}

func (a *Account) setActivationKey(key string) {
	a.Activated = false
	a.ActivationKey = &key
}

func (a *Account) markActivated() {
	a.Activated = true
	a.ActivationKey = nil
}

func (a *Account) setResetKey(key string, at time.Time) {
	a.ResetKey = &key
	a.ResetDate = &at
}

func (a *Account) clearReset() {
	a.ResetKey = nil
	a.ResetDate = nil
}

// # Canonical Forms

// CanonicalLogin returns the form a login is stored and compared in:
// trimmed, NFC-normalized and lower-cased.
func CanonicalLogin(login string) string {
	// A Caser keeps state between calls, so each call builds its own.
	return cases.Lower(language.Und).String(norm.NFC.String(strings.TrimSpace(login)))
}

// CanonicalEmail returns the form an email address is stored and compared in.
func CanonicalEmail(email string) string {
	return CanonicalLogin(email)
}

// # Audit Principals

const (
	// SystemPrincipal stamps changes made without a caller (registration, reaper).
	SystemPrincipal = "system"

	// AnonymousPrincipal stamps changes made by an unauthenticated request.
	AnonymousPrincipal = "anonymousUser"
)

// # Field Identifiers

const (
	FieldLogin           = "login"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldFirstName       = "firstName"
	FieldLastName        = "lastName"
	FieldLangKey         = "langKey"
	FieldKey             = "key"
	FieldNewPassword     = "newPassword"
	FieldCurrentPassword = "currentPassword"
	FieldAuthorities     = "authorities"
	FieldID              = "id"
)

// # Field Limits

const (
	LoginMaxLength   = 50
	EmailMinLength   = 5
	EmailMaxLength   = 254
	NameMaxLength    = 50
	LangKeyMinLength = 2
	LangKeyMaxLength = 10

	// DefaultLangKey is used when a registration omits langKey.
	DefaultLangKey = "en"
)
