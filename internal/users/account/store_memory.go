// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process [Store]. A single mutex makes every
// check-then-write atomic, which gives it the same uniqueness guarantees as the
// SQL stores. It backs STORE_DRIVER=memory and the engine tests.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account // by id
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*Account)}
}

func (store *MemoryStore) findBy(ctx context.Context, match func(*Account) bool) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store.mu.RLock()
	defer store.mu.RUnlock()

	for _, a := range store.accounts {
		if match(a) {
			return a.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (store *MemoryStore) FindByID(ctx context.Context, id string) (*Account, error) {
	return store.findBy(ctx, func(a *Account) bool { return a.ID == id })
}

func (store *MemoryStore) FindByLogin(ctx context.Context, login string) (*Account, error) {
	return store.findBy(ctx, func(a *Account) bool { return a.Login == login })
}

func (store *MemoryStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return store.findBy(ctx, func(a *Account) bool { return a.Email == email })
}

func (store *MemoryStore) FindByActivationKey(ctx context.Context, key string) (*Account, error) {
	return store.findBy(ctx, func(a *Account) bool {
		return a.ActivationKey != nil && *a.ActivationKey == key
	})
}

func (store *MemoryStore) FindByResetKey(ctx context.Context, key string) (*Account, error) {
	return store.findBy(ctx, func(a *Account) bool {
		return a.ResetKey != nil && *a.ResetKey == key
	})
}

// conflict reports a uniqueness violation against every account except skipID.
// Login is checked first.
func (store *MemoryStore) conflict(candidate *Account, skipID string) error {
	for _, a := range store.accounts {
		if a.ID != skipID && a.Login == candidate.Login {
			return ErrLoginTaken
		}
	}
	for _, a := range store.accounts {
		if a.ID != skipID && a.Email == candidate.Email {
			return ErrEmailTaken
		}
	}
	return nil
}

func (store *MemoryStore) Insert(ctx context.Context, account *Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if err := store.conflict(account, ""); err != nil {
		return err
	}

	account.Version = 1
	store.accounts[account.ID] = account.Clone()
	return nil
}

func (store *MemoryStore) Update(ctx context.Context, account *Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	current, ok := store.accounts[account.ID]
	if !ok || current.Version != account.Version {
		return ErrStaleAccount
	}
	if err := store.conflict(account, account.ID); err != nil {
		return err
	}

	account.Version++
	store.accounts[account.ID] = account.Clone()
	return nil
}

func (store *MemoryStore) Delete(ctx context.Context, login string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	for id, a := range store.accounts {
		if a.Login == login {
			delete(store.accounts, id)
			return nil
		}
	}
	return ErrNotFound
}

func (store *MemoryStore) List(ctx context.Context, offset, limit int) ([]*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store.mu.RLock()
	all := make([]*Account, 0, len(store.accounts))
	for _, a := range store.accounts {
		all = append(all, a.Clone())
	}
	store.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if offset < 0 || limit <= 0 || offset >= len(all) {
		return []*Account{}, nil
	}
	end := offset + min(limit, len(all)-offset)
	return all[offset:end], nil
}

func (store *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.accounts), nil
}

func (store *MemoryStore) DeleteUnactivatedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	var removed []string
	for id, a := range store.accounts {
		if !a.Activated && a.CreatedAt.Before(cutoff) {
			removed = append(removed, a.Login)
			delete(store.accounts, id)
		}
	}
	sort.Strings(removed)
	return removed, nil
}

var _ Store = (*MemoryStore)(nil)
