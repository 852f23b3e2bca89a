// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package admin_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbotia/lab5/internal/platform/middleware"
	"github.com/dbotia/lab5/internal/platform/sec"
	"github.com/dbotia/lab5/internal/users/account"
	"github.com/dbotia/lab5/internal/users/admin"
)

type countingMailer struct {
	mu       sync.Mutex
	creation int
}

func (m *countingMailer) SendActivationEmail(context.Context, *account.Account) error { return nil }

func (m *countingMailer) SendCreationEmail(context.Context, *account.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creation++
	return nil
}

func (m *countingMailer) SendPasswordResetMail(context.Context, *account.Account) error { return nil }

type adminFixture struct {
	service *account.Service
	mailer  *countingMailer
	issuer  *sec.TokenIssuer
	router  http.Handler
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	issuer, err := sec.NewTokenIssuer(key, sec.IssuerOptions{
		Issuer: "test", Validity: time.Hour, RememberMeValidity: 2 * time.Hour,
	})
	require.NoError(t, err)

	mailer := &countingMailer{}
	service := account.NewService(
		account.NewMemoryStore(),
		sec.NewHasher(sec.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1}),
		sec.RandomTokens{},
		mailer,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	router := chi.NewRouter()
	router.Use(middleware.Authenticate(issuer))
	router.Mount("/users", admin.NewHandler(service).Routes())

	return &adminFixture{service: service, mailer: mailer, issuer: issuer, router: router}
}

func (f *adminFixture) do(t *testing.T, method, path, body, login string, authorities ...string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if login != "" {
		token, err := f.issuer.CreateToken(login, authorities, false)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *adminFixture) asAdmin(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, method, path, body, "admin", sec.RoleAdmin, sec.RoleUser)
}

type envelope struct {
	Data json.RawMessage `json:"data"`
	Code string          `json:"code"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var e envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	return e
}

/*
TestAdmin_RequiresAdminAuthority checks the gate for anonymous and plain users.
*/
func TestAdmin_RequiresAdminAuthority(t *testing.T) {
	f := newAdminFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/users", "", "").Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/users", "", "bob", sec.RoleUser).Code)
	assert.Equal(t, http.StatusOK, f.asAdmin(t, http.MethodGet, "/users", "").Code)
}

/*
TestAdmin_CreateAndUpdate covers creation, collisions and activation toggling.
*/
func TestAdmin_CreateAndUpdate(t *testing.T) {
	f := newAdminFixture(t)

	rec := f.asAdmin(t, http.MethodPost, "/users", `{"login":"Carol","email":"c@x.io","authorities":["ROLE_USER"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/api/users/carol", rec.Header().Get("Location"))
	assert.Equal(t, 1, f.mailer.creation)

	var created account.Account
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &created))
	assert.True(t, created.Activated)
	assert.Equal(t, "admin", created.CreatedBy)

	rec = f.asAdmin(t, http.MethodPost, "/users", `{"login":"carol","email":"c2@x.io"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "LOGIN_ALREADY_USED", decode(t, rec).Code)

	rec = f.asAdmin(t, http.MethodPost, "/users", `{"id":"x","login":"dave","email":"d@x.io"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, rec).Code)

	rec = f.asAdmin(t, http.MethodPost, "/users", `{"login":"dave","email":"d@x.io","authorities":["ROLE_ROOT"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNKNOWN_AUTHORITY", decode(t, rec).Code)

	body := fmt.Sprintf(`{"id":%q,"login":"carol","email":"carol@x.io","activated":false,"authorities":["ROLE_ADMIN"]}`, created.ID)
	rec = f.asAdmin(t, http.MethodPut, "/users", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated account.Account
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &updated))
	assert.False(t, updated.Activated)
	assert.Equal(t, "carol@x.io", updated.Email)
	assert.Equal(t, []string{sec.RoleAdmin}, updated.Authorities)

	rec = f.asAdmin(t, http.MethodPut, "/users", `{"login":"carol","email":"carol@x.io"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.asAdmin(t, http.MethodPut, "/users", `{"id":"0190a6a8-0000-7000-8000-000000000000","login":"zed","email":"z@x.io"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ACCOUNT_NOT_FOUND", decode(t, rec).Code)
}

/*
TestAdmin_ListGetDelete covers paging headers, lookup and deletion.
*/
func TestAdmin_ListGetDelete(t *testing.T) {
	f := newAdminFixture(t)

	for i := range 3 {
		_, err := f.service.Register(context.Background(), account.RegisterInput{
			Login:    fmt.Sprintf("user%d", i),
			Email:    fmt.Sprintf("user%d@x.io", i),
			Password: "pw1234",
		})
		require.NoError(t, err)
	}

	rec := f.asAdmin(t, http.MethodGet, "/users?page=1&size=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-Total-Count"))

	var page []account.Account
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &page))
	assert.Len(t, page, 1)

	rec = f.asAdmin(t, http.MethodGet, "/users?page=922337203685477580&size=20", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &page))
	assert.Len(t, page, 3)

	rec = f.asAdmin(t, http.MethodGet, "/users/authorities", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var authorities []string
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &authorities))
	assert.ElementsMatch(t, []string{sec.RoleAdmin, sec.RoleUser}, authorities)

	rec = f.asAdmin(t, http.MethodGet, "/users/USER1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"login":"user1"`)

	assert.Equal(t, http.StatusOK, f.asAdmin(t, http.MethodDelete, "/users/user1", "").Code)
	assert.Equal(t, http.StatusNotFound, f.asAdmin(t, http.MethodDelete, "/users/user1", "").Code)
	assert.Equal(t, http.StatusNotFound, f.asAdmin(t, http.MethodGet, "/users/user1", "").Code)

	assert.Equal(t, http.StatusBadRequest, f.asAdmin(t, http.MethodDelete, "/users/admin", "").Code)
}
