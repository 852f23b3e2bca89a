// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbotia/lab5/internal/platform/sec"
	"github.com/dbotia/lab5/internal/users/account"
)

// # Fixtures

type sentMail struct {
	kind    string
	account *account.Account
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (m *recordingMailer) record(kind string, a *account.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: kind, account: a})
	return m.fail
}

func (m *recordingMailer) SendActivationEmail(_ context.Context, a *account.Account) error {
	return m.record("activation", a)
}

func (m *recordingMailer) SendCreationEmail(_ context.Context, a *account.Account) error {
	return m.record("creation", a)
}

func (m *recordingMailer) SendPasswordResetMail(_ context.Context, a *account.Account) error {
	return m.record("reset", a)
}

func (m *recordingMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store   *account.MemoryStore
	mailer  *recordingMailer
	clock   *fakeClock
	service *account.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, account.NewMemoryStore())
}

func newFixtureWithStore(t *testing.T, store *account.MemoryStore, extra ...account.Option) *fixture {
	t.Helper()

	f := &fixture{
		store:  store,
		mailer: &recordingMailer{},
		clock:  &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	opts := append([]account.Option{account.WithClock(f.clock.Now)}, extra...)
	f.service = account.NewService(
		f.store,
		sec.NewHasher(sec.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1}),
		sec.RandomTokens{},
		f.mailer,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		opts...,
	)
	return f
}

func alice() account.RegisterInput {
	return account.RegisterInput{
		Login:     "alice",
		Password:  "pw1234",
		Email:     "a@x.io",
		FirstName: "Alice",
		LangKey:   "en",
	}
}

// register creates alice and returns her activation key.
func (f *fixture) register(t *testing.T, input account.RegisterInput) string {
	t.Helper()
	created, err := f.service.Register(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, created.ActivationKey)
	return *created.ActivationKey
}

// # Registration

/*
TestRegister_CreatesPendingAccount verifies the stored state and the activation
mail of a fresh registration.
*/
func TestRegister_CreatesPendingAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Register(ctx, alice())
	require.NoError(t, err)

	stored, err := f.store.FindByLogin(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, created.ID, stored.ID)
	assert.False(t, stored.Activated)
	require.NotNil(t, stored.ActivationKey)
	assert.NotEmpty(t, *stored.ActivationKey)
	assert.Nil(t, stored.ResetKey)
	assert.Nil(t, stored.ResetDate)
	assert.Equal(t, []string{sec.RoleUser}, stored.Authorities)
	assert.NotContains(t, stored.PasswordHash, "pw1234")
	assert.Equal(t, account.AnonymousPrincipal, stored.CreatedBy)
	assert.Equal(t, int64(1), stored.Version)

	mail := f.mailer.last(t)
	assert.Equal(t, "activation", mail.kind)
	assert.Equal(t, *stored.ActivationKey, *mail.account.ActivationKey)
}

/*
TestRegister_CanonicalizesIdentity checks trimming and case folding of login and email.
*/
func TestRegister_CanonicalizesIdentity(t *testing.T) {
	f := newFixture(t)

	input := alice()
	input.Login = "  Alice "
	input.Email = "A@X.IO"
	input.LangKey = ""

	created, err := f.service.Register(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, "alice", created.Login)
	assert.Equal(t, "a@x.io", created.Email)
	assert.Equal(t, account.DefaultLangKey, created.LangKey)
}

/*
TestRegister_PasswordPolicy exercises the length boundaries.
*/
func TestRegister_PasswordPolicy(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"empty", "", account.ErrInvalidPassword},
		{"too short", "abc", account.ErrInvalidPassword},
		{"minimum", "abcd", nil},
		{"maximum", strings.Repeat("p", 100), nil},
		{"too long", strings.Repeat("p", 101), account.ErrInvalidPassword},
		{"multibyte counted as characters", "ééé", account.ErrInvalidPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			input := alice()
			input.Password = tt.password

			_, err := f.service.Register(context.Background(), input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				total, _ := f.store.Count(context.Background())
				assert.Zero(t, total)
				assert.Zero(t, f.mailer.count())
				return
			}
			assert.NoError(t, err)
		})
	}
}

/*
TestRegister_Uniqueness checks that login is tested before email and that
comparisons ignore case.
*/
func TestRegister_Uniqueness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, alice())

	sameBoth := alice()
	_, err := f.service.Register(ctx, sameBoth)
	assert.ErrorIs(t, err, account.ErrLoginAlreadyUsed)

	upper := alice()
	upper.Login = "ALICE"
	upper.Email = "other@x.io"
	_, err = f.service.Register(ctx, upper)
	assert.ErrorIs(t, err, account.ErrLoginAlreadyUsed)

	bob := alice()
	bob.Login = "bob"
	bob.Email = "A@x.io"
	_, err = f.service.Register(ctx, bob)
	assert.ErrorIs(t, err, account.ErrEmailAlreadyUsed)

	total, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

/*
TestRegister_MailFailureKeepsAccount verifies a mail outage does not undo registration.
*/
func TestRegister_MailFailureKeepsAccount(t *testing.T) {
	f := newFixture(t)
	f.mailer.fail = errors.New("smtp down")

	_, err := f.service.Register(context.Background(), alice())
	require.NoError(t, err)

	_, err = f.store.FindByLogin(context.Background(), "alice")
	assert.NoError(t, err)
}

/*
TestRegister_ConcurrentSameLogin races eight registrations for one login.
*/
func TestRegister_ConcurrentSameLogin(t *testing.T) {
	f := newFixture(t)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := alice()
			input.Email = strings.Repeat("a", i+1) + "@race.io"
			_, errs[i] = f.service.Register(context.Background(), input)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, account.ErrLoginAlreadyUsed)
	}
	assert.Equal(t, 1, succeeded)

	total, err := f.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

// # Activation

/*
TestActivate_ConsumesKey verifies one-time use of the activation key.
*/
func TestActivate_ConsumesKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := f.register(t, alice())

	activated, err := f.service.Activate(ctx, key)
	require.NoError(t, err)
	assert.True(t, activated.Activated)
	assert.Nil(t, activated.ActivationKey)

	_, err = f.service.Activate(ctx, key)
	assert.ErrorIs(t, err, account.ErrActivationFailed)

	stored, err := f.store.FindByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, stored.Activated)
	assert.Nil(t, stored.ActivationKey)
}

/*
TestActivate_UnknownKey covers keys that never existed.
*/
func TestActivate_UnknownKey(t *testing.T) {
	f := newFixture(t)
	f.register(t, alice())

	for _, key := range []string{"", "nope", "zzz"} {
		_, err := f.service.Activate(context.Background(), key)
		assert.ErrorIs(t, err, account.ErrActivationFailed, "key %q", key)
	}
}

/*
TestActivate_Concurrent races two activations with the same key.
*/
func TestActivate_Concurrent(t *testing.T) {
	f := newFixture(t)
	key := f.register(t, alice())

	const n = 4
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Activate(context.Background(), key)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, account.ErrActivationFailed)
	}
	assert.Equal(t, 1, succeeded)
}

// # Authentication

/*
TestAuthenticate covers success, pending accounts and indistinguishable failures.
*/
func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, alice())

	got, err := f.service.Authenticate(ctx, "ALICE", "pw1234")
	require.NoError(t, err, "pending accounts may authenticate")
	assert.Equal(t, "alice", got.Login)

	_, wrongPassword := f.service.Authenticate(ctx, "alice", "wrong")
	_, unknownLogin := f.service.Authenticate(ctx, "mallory", "pw1234")

	assert.ErrorIs(t, wrongPassword, account.ErrAuthenticationFailed)
	assert.ErrorIs(t, unknownLogin, account.ErrAuthenticationFailed)
	assert.Equal(t, wrongPassword.Error(), unknownLogin.Error())
}

// # Password Change

/*
TestChangePassword verifies current-password checks and the resulting credential.
*/
func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, alice())

	err := f.service.ChangePassword(ctx, "alice", "wrong", "newpass")
	assert.ErrorIs(t, err, account.ErrAuthenticationFailed)

	err = f.service.ChangePassword(ctx, "alice", "pw1234", "abc")
	assert.ErrorIs(t, err, account.ErrInvalidPassword)

	require.NoError(t, f.service.ChangePassword(ctx, "alice", "pw1234", "newpass"))

	_, err = f.service.Authenticate(ctx, "alice", "pw1234")
	assert.ErrorIs(t, err, account.ErrAuthenticationFailed)
	_, err = f.service.Authenticate(ctx, "alice", "newpass")
	assert.NoError(t, err)
}

/*
TestChangePassword_UnknownLogin treats a vanished caller as an authentication failure.
*/
func TestChangePassword_UnknownLogin(t *testing.T) {
	f := newFixture(t)
	err := f.service.ChangePassword(context.Background(), "ghost", "pw1234", "newpass")
	assert.ErrorIs(t, err, account.ErrAuthenticationFailed)
}

// # Password Reset

/*
TestPasswordReset_Scenario walks register, activate, reset request and
completion, then replays the consumed key.
*/
func TestPasswordReset_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := f.register(t, alice())
	_, err := f.service.Activate(ctx, key)
	require.NoError(t, err)

	requested, err := f.service.RequestPasswordReset(ctx, "A@X.io")
	require.NoError(t, err)
	require.NotNil(t, requested.ResetKey)
	require.NotNil(t, requested.ResetDate)
	assert.Equal(t, f.clock.Now(), *requested.ResetDate)

	mail := f.mailer.last(t)
	assert.Equal(t, "reset", mail.kind)
	assert.Equal(t, *requested.ResetKey, *mail.account.ResetKey)

	f.clock.Advance(time.Hour)

	reset, err := f.service.CompletePasswordReset(ctx, "newpass", *requested.ResetKey)
	require.NoError(t, err)
	assert.Nil(t, reset.ResetKey)
	assert.Nil(t, reset.ResetDate)

	_, err = f.service.Authenticate(ctx, "alice", "newpass")
	assert.NoError(t, err)
	_, err = f.service.Authenticate(ctx, "alice", "pw1234")
	assert.ErrorIs(t, err, account.ErrAuthenticationFailed)

	_, err = f.service.CompletePasswordReset(ctx, "another", *requested.ResetKey)
	assert.ErrorIs(t, err, account.ErrResetFailed)
}

/*
TestPasswordReset_Window checks the validity boundary of reset keys.
*/
func TestPasswordReset_Window(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr error
	}{
		{"just issued", 0, nil},
		{"at the boundary", 24 * time.Hour, nil},
		{"expired", 24*time.Hour + time.Second, account.ErrResetFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.register(t, alice())

			requested, err := f.service.RequestPasswordReset(ctx, "a@x.io")
			require.NoError(t, err)

			f.clock.Advance(tt.elapsed)

			_, err = f.service.CompletePasswordReset(ctx, "newpass", *requested.ResetKey)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				_, authErr := f.service.Authenticate(ctx, "alice", "pw1234")
				assert.NoError(t, authErr, "expired reset must not change the password")
				return
			}
			assert.NoError(t, err)
		})
	}
}

/*
TestPasswordReset_CustomWindow verifies WithResetKeyValidity.
*/
func TestPasswordReset_CustomWindow(t *testing.T) {
	f := newFixtureWithStore(t, account.NewMemoryStore(), account.WithResetKeyValidity(time.Minute))
	ctx := context.Background()
	f.register(t, alice())

	requested, err := f.service.RequestPasswordReset(ctx, "a@x.io")
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	_, err = f.service.CompletePasswordReset(ctx, "newpass", *requested.ResetKey)
	assert.ErrorIs(t, err, account.ErrResetFailed)
}

/*
TestPasswordReset_NewRequestSupersedes verifies only the latest key works.
*/
func TestPasswordReset_NewRequestSupersedes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, alice())

	first, err := f.service.RequestPasswordReset(ctx, "a@x.io")
	require.NoError(t, err)
	second, err := f.service.RequestPasswordReset(ctx, "a@x.io")
	require.NoError(t, err)
	require.NotEqual(t, *first.ResetKey, *second.ResetKey)

	_, err = f.service.CompletePasswordReset(ctx, "newpass", *first.ResetKey)
	assert.ErrorIs(t, err, account.ErrResetFailed)

	_, err = f.service.CompletePasswordReset(ctx, "newpass", *second.ResetKey)
	assert.NoError(t, err)
}

/*
TestPasswordReset_Failures covers unknown emails, unknown keys and the
password policy on completion.
*/
func TestPasswordReset_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, alice())

	_, err := f.service.RequestPasswordReset(ctx, "nobody@x.io")
	assert.ErrorIs(t, err, account.ErrEmailNotFound)

	_, err = f.service.RequestPasswordReset(ctx, "   ")
	assert.ErrorIs(t, err, account.ErrEmailNotFound)

	_, err = f.service.CompletePasswordReset(ctx, "newpass", "bogus")
	assert.ErrorIs(t, err, account.ErrResetFailed)

	requested, err := f.service.RequestPasswordReset(ctx, "a@x.io")
	require.NoError(t, err)

	_, err = f.service.CompletePasswordReset(ctx, "abc", *requested.ResetKey)
	assert.ErrorIs(t, err, account.ErrInvalidPassword)

	_, err = f.service.CompletePasswordReset(ctx, "newpass", *requested.ResetKey)
	assert.NoError(t, err, "a policy failure must not consume the key")
}

// # Optimistic Concurrency

// flakyStore loses the first n updates as if another writer got there first.
type flakyStore struct {
	*account.MemoryStore
	mu    sync.Mutex
	stale int
	calls int
}

func (s *flakyStore) Update(ctx context.Context, a *account.Account) error {
	s.mu.Lock()
	s.calls++
	lose := s.stale > 0
	if lose {
		s.stale--
	}
	s.mu.Unlock()

	if lose {
		return account.ErrStaleAccount
	}
	return s.MemoryStore.Update(ctx, a)
}

/*
TestMutate_RetriesStaleUpdates verifies the engine reloads after a lost race
and gives up after a bounded number of attempts.
*/
func TestMutate_RetriesStaleUpdates(t *testing.T) {
	ctx := context.Background()
	hasher := sec.NewHasher(sec.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := &flakyStore{MemoryStore: account.NewMemoryStore()}
	service := account.NewService(store, hasher, sec.RandomTokens{}, &recordingMailer{}, logger)

	created, err := service.Register(ctx, alice())
	require.NoError(t, err)

	store.stale = 2
	_, err = service.Activate(ctx, *created.ActivationKey)
	require.NoError(t, err)
	assert.Equal(t, 3, store.calls)

	store.calls = 0
	store.stale = 10
	err = service.ChangePassword(ctx, "alice", "pw1234", "newpass")
	require.Error(t, err)
	assert.ErrorIs(t, err, account.ErrStaleAccount)
	assert.Equal(t, 3, store.calls)
}

// # Profile & Administration

/*
TestUpdateAccount verifies owner profile edits and email collisions.
*/
func TestUpdateAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, alice())

	bob := alice()
	bob.Login = "bob"
	bob.Email = "b@x.io"
	f.register(t, bob)

	_, err := f.service.UpdateAccount(ctx, "alice", account.ProfileInput{Email: "B@x.io"})
	assert.ErrorIs(t, err, account.ErrEmailAlreadyUsed)

	updated, err := f.service.UpdateAccount(ctx, "alice", account.ProfileInput{
		FirstName: "Alicia",
		LastName:  "Liddell",
		Email:     "alice@x.io",
		LangKey:   "es",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", updated.FirstName)
	assert.Equal(t, "alice@x.io", updated.Email)
	assert.Equal(t, "es", updated.LangKey)
	assert.Equal(t, "alice", updated.UpdatedBy)

	_, err = f.service.UpdateAccount(ctx, "ghost", account.ProfileInput{Email: "g@x.io"})
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
}

/*
TestCreateUser verifies admin-created accounts are active and carry a reset key.
*/
func TestCreateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.CreateUser(ctx, "admin", account.UserInput{
		Login:       "Carol",
		Email:       "c@x.io",
		Authorities: []string{sec.RoleAdmin, sec.RoleUser, sec.RoleAdmin},
	})
	require.NoError(t, err)

	assert.True(t, created.Activated)
	assert.Nil(t, created.ActivationKey)
	require.NotNil(t, created.ResetKey)
	assert.Equal(t, []string{sec.RoleAdmin, sec.RoleUser}, created.Authorities)
	assert.Equal(t, "admin", created.CreatedBy)
	assert.Equal(t, "creation", f.mailer.last(t).kind)

	// The invitation is completed through the reset flow.
	_, err = f.service.CompletePasswordReset(ctx, "chosen", *created.ResetKey)
	require.NoError(t, err)
	_, err = f.service.Authenticate(ctx, "carol", "chosen")
	assert.NoError(t, err)

	_, err = f.service.CreateUser(ctx, "admin", account.UserInput{Login: "carol", Email: "c2@x.io"})
	assert.ErrorIs(t, err, account.ErrLoginAlreadyUsed)

	_, err = f.service.CreateUser(ctx, "admin", account.UserInput{Login: "dave", Email: "d@x.io", Authorities: []string{"ROLE_ROOT"}})
	assert.ErrorIs(t, err, account.ErrUnknownAuthority)
}

/*
TestUpdateUser verifies activation toggling and identity collisions.
*/
func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := f.register(t, alice())
	activated, err := f.service.Activate(ctx, key)
	require.NoError(t, err)

	deactivated, err := f.service.UpdateUser(ctx, "admin", account.UserInput{
		ID:        activated.ID,
		Login:     "alice",
		Email:     "a@x.io",
		Activated: false,
	})
	require.NoError(t, err)
	assert.False(t, deactivated.Activated)
	require.NotNil(t, deactivated.ActivationKey)
	assert.NotEqual(t, key, *deactivated.ActivationKey)

	reactivated, err := f.service.UpdateUser(ctx, "admin", account.UserInput{
		ID:          activated.ID,
		Login:       "alice2",
		Email:       "a@x.io",
		Activated:   true,
		Authorities: []string{sec.RoleAdmin},
	})
	require.NoError(t, err)
	assert.True(t, reactivated.Activated)
	assert.Nil(t, reactivated.ActivationKey)
	assert.Equal(t, "alice2", reactivated.Login)
	assert.Equal(t, []string{sec.RoleAdmin}, reactivated.Authorities)

	bob := alice()
	bob.Login = "bob"
	bob.Email = "b@x.io"
	f.register(t, bob)

	_, err = f.service.UpdateUser(ctx, "admin", account.UserInput{ID: activated.ID, Login: "bob", Email: "a@x.io"})
	assert.ErrorIs(t, err, account.ErrLoginAlreadyUsed)

	_, err = f.service.UpdateUser(ctx, "admin", account.UserInput{ID: activated.ID, Login: "alice2", Email: "b@x.io"})
	assert.ErrorIs(t, err, account.ErrEmailAlreadyUsed)

	_, err = f.service.UpdateUser(ctx, "admin", account.UserInput{ID: "missing", Login: "x", Email: "x@x.io"})
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
}

/*
TestListAndDeleteUsers covers paging, totals and deletion.
*/
func TestListAndDeleteUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, login := range []string{"u1", "u2", "u3"} {
		input := alice()
		input.Login = login
		input.Email = login + "@x.io"
		f.register(t, input)
	}

	page, total, err := f.service.ListUsers(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 2)

	page, _, err = f.service.ListUsers(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	require.NoError(t, f.service.DeleteUser(ctx, "admin", "U2"))
	assert.ErrorIs(t, f.service.DeleteUser(ctx, "admin", "u2"), account.ErrAccountNotFound)

	_, err = f.service.GetUser(ctx, "u2")
	assert.ErrorIs(t, err, account.ErrAccountNotFound)

	assert.ElementsMatch(t, []string{sec.RoleAdmin, sec.RoleUser}, f.service.Authorities())
}

// # Housekeeping

/*
TestReaper_RemovesStaleRegistrations verifies only old pending accounts are purged.
*/
func TestReaper_RemovesStaleRegistrations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale := alice()
	f.register(t, stale)

	active := alice()
	active.Login = "bob"
	active.Email = "b@x.io"
	_, err := f.service.Activate(ctx, f.register(t, active))
	require.NoError(t, err)

	f.clock.Advance(73 * time.Hour)

	fresh := alice()
	fresh.Login = "carol"
	fresh.Email = "c@x.io"
	f.register(t, fresh)

	reaper := account.NewReaper(f.service, slog.New(slog.NewTextHandler(io.Discard, nil)), 72*time.Hour, time.Hour)
	assert.Equal(t, 1, reaper.Sweep(ctx))

	_, err = f.store.FindByLogin(ctx, "alice")
	assert.ErrorIs(t, err, account.ErrNotFound)
	_, err = f.store.FindByLogin(ctx, "bob")
	assert.NoError(t, err)
	_, err = f.store.FindByLogin(ctx, "carol")
	assert.NoError(t, err)

	assert.Zero(t, reaper.Sweep(ctx))
}

/*
TestReaper_RunStopsOnCancel verifies the loop exits with its context.
*/
func TestReaper_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	reaper := account.NewReaper(f.service, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Hour, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reaper.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop")
	}
}

// # Hashing Cost

// spyHasher wraps a real hasher, counting derivations and optionally failing
// the next few of them.
type spyHasher struct {
	inner *sec.Hasher

	mu       sync.Mutex
	hashes   int
	failNext int
	verified []string
}

func newSpyHasher() *spyHasher {
	return &spyHasher{inner: sec.NewHasher(sec.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1})}
}

func (h *spyHasher) Hash(plaintext string) (string, error) {
	h.mu.Lock()
	h.hashes++
	if h.failNext > 0 {
		h.failNext--
		h.mu.Unlock()
		return "", errors.New("entropy unavailable")
	}
	h.mu.Unlock()
	return h.inner.Hash(plaintext)
}

func (h *spyHasher) Verify(plaintext, secret string) bool {
	h.mu.Lock()
	h.verified = append(h.verified, secret)
	h.mu.Unlock()
	return h.inner.Verify(plaintext, secret)
}

func (h *spyHasher) hashCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hashes
}

func (h *spyHasher) lastVerified() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.verified) == 0 {
		return ""
	}
	return h.verified[len(h.verified)-1]
}

func newSpyService(t *testing.T, hasher *spyHasher) *account.Service {
	t.Helper()
	return account.NewService(
		account.NewMemoryStore(),
		hasher,
		sec.RandomTokens{},
		&recordingMailer{},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

/*
TestAuthenticate_DecoyRetriesAfterFailure verifies that a failed decoy
derivation surfaces as an internal fault and is retried, never cached empty.
*/
func TestAuthenticate_DecoyRetriesAfterFailure(t *testing.T) {
	ctx := context.Background()
	hasher := newSpyHasher()
	service := newSpyService(t, hasher)

	hasher.failNext = 1
	_, err := service.Authenticate(ctx, "ghost", "pw1234")
	require.Error(t, err)
	assert.NotErrorIs(t, err, account.ErrAuthenticationFailed)

	_, err = service.Authenticate(ctx, "ghost", "pw1234")
	assert.ErrorIs(t, err, account.ErrAuthenticationFailed)
	assert.True(t, strings.HasPrefix(hasher.lastVerified(), "$argon2id$"))

	before := hasher.hashCount()
	_, err = service.Authenticate(ctx, "ghost", "other")
	assert.ErrorIs(t, err, account.ErrAuthenticationFailed)
	assert.Equal(t, before, hasher.hashCount(), "decoy is derived once")
}

/*
TestChangePassword_NoDerivationOnWrongCurrent verifies that a wrong current
password is rejected before the new password is hashed.
*/
func TestChangePassword_NoDerivationOnWrongCurrent(t *testing.T) {
	ctx := context.Background()
	hasher := newSpyHasher()
	service := newSpyService(t, hasher)

	_, err := service.Register(ctx, alice())
	require.NoError(t, err)

	before := hasher.hashCount()
	for range 5 {
		err = service.ChangePassword(ctx, "alice", "wrong", "newpass")
		assert.ErrorIs(t, err, account.ErrAuthenticationFailed)
	}
	assert.Equal(t, before, hasher.hashCount())

	require.NoError(t, service.ChangePassword(ctx, "alice", "pw1234", "newpass"))
	assert.Equal(t, before+1, hasher.hashCount())
}
