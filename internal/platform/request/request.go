// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dbotia/lab5/internal/platform/apperr"
	"github.com/dbotia/lab5/internal/platform/ctxutil"
	"github.com/dbotia/lab5/internal/platform/sec"
	"github.com/dbotia/lab5/internal/platform/validate"
)

// MaxBodyBytes caps every decoded request body.
const MaxBodyBytes = 1 << 20

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(io.LimitReader(request.Body, MaxBodyBytes)).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
ReadText returns the trimmed request body as a string.

Some endpoints take a bare value (an email address) instead of a JSON document.
*/
func ReadText(request *http.Request) (string, error) {
	body, err := io.ReadAll(io.LimitReader(request.Body, MaxBodyBytes))
	if err != nil {
		return "", apperr.BadRequest("Unreadable request body")
	}

	text := strings.TrimSpace(string(body))

	// Accept a JSON string literal as well as raw text.
	if len(text) >= 2 && text[0] == '"' {
		var unquoted string
		if json.Unmarshal([]byte(text), &unquoted) == nil {
			text = strings.TrimSpace(unquoted)
		}
	}

	return text, nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Claims extracts the verified session claims from the request context.

Returns nil if the request is not authenticated.
*/
func Claims(request *http.Request) *sec.AuthClaims {
	return ctxutil.GetCaller(request.Context())
}

/*
RequiredLogin returns the login of the authenticated caller.

Returns:
  - string: Account login (token subject)
  - error: apperr.Unauthorized if not authenticated
*/
func RequiredLogin(request *http.Request) (string, error) {

	// Get caller claims
	claims := ctxutil.GetCaller(request.Context())

	// If the caller is not authenticated, return an error
	if claims == nil || claims.Subject == "" {
		return "", apperr.Unauthorized("Authentication required")
	}

	return claims.Subject, nil
}
