// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"errors"
	"net/http"

	"github.com/dbotia/lab5/internal/platform/apperr"
)

// # Store Outcomes

var (
	// ErrNotFound is returned by Store lookups that match no account.
	ErrNotFound = errors.New("account: not found")

	// ErrLoginTaken is returned by Insert/Update when the login is already used.
	ErrLoginTaken = errors.New("account: login already taken")

	// ErrEmailTaken is returned by Insert/Update when the email is already used.
	ErrEmailTaken = errors.New("account: email already taken")

	// ErrStaleAccount is returned by Update when the stored version moved on.
	ErrStaleAccount = errors.New("account: concurrent modification")
)

// # Lifecycle Failures
//
// These are the only failures the engine reports for expected business
// conditions. Anything else returned by [Service] is an internal fault.

var (
	ErrInvalidPassword = apperr.New("INVALID_PASSWORD", "Incorrect password", http.StatusBadRequest)

	ErrLoginAlreadyUsed = apperr.New("LOGIN_ALREADY_USED", "Login name already used!", http.StatusBadRequest)

	ErrEmailAlreadyUsed = apperr.New("EMAIL_ALREADY_USED", "Email is already in use!", http.StatusBadRequest)

	ErrEmailNotFound = apperr.New("EMAIL_NOT_FOUND", "Email address not registered", http.StatusBadRequest)

	// Unknown and already-consumed keys are reported identically.
	ErrActivationFailed = apperr.New("ACTIVATION_FAILED", "Your user account could not be activated", http.StatusInternalServerError)

	// Unknown login and wrong password are reported identically.
	ErrAuthenticationFailed = apperr.New("AUTHENTICATION_FAILED", "Bad credentials", http.StatusUnauthorized)

	// Unknown and expired reset keys are reported identically.
	ErrResetFailed = apperr.New("RESET_FAILED", "Your password could not be reset", http.StatusInternalServerError)

	ErrAccountNotFound = apperr.New("ACCOUNT_NOT_FOUND", "Account not found", http.StatusNotFound)

	ErrUnknownAuthority = apperr.New("UNKNOWN_AUTHORITY", "Unknown authority", http.StatusBadRequest)
)
