// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

// Package memory provides the volatile reference implementation of the
// auth repositories. A durable backend can be substituted without
// touching the service layer.
package memory

import (
	"context"
	"sync"

	"github.com/credgate/credgate/internal/auth"
)

// UserRepository implements auth.UserRepository with an in-memory map.
// The map is guarded by its own RWMutex so reads proceed concurrently;
// password hashing never happens while this lock is held.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]auth.User
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[string]auth.User),
	}
}

// Create stores a new user. Check and insert happen under one write
// lock, so concurrent creates racing on the same normalized username
// resolve with exactly one winner.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.Username]; exists {
		return auth.ErrDuplicateUser(user.Username)
	}
	r.users[user.Username] = *user
	return nil
}

// GetByUsername retrieves a user by normalized username. The returned
// record is a copy; callers cannot mutate stored state.
func (r *UserRepository) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[username]
	if !exists {
		return nil, auth.ErrNotFound
	}
	return &user, nil
}

// Exists reports whether a user with the normalized username exists.
func (r *UserRepository) Exists(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.users[username]
	return exists, nil
}

// Count returns the number of stored users. Useful for tests and
// diagnostics.
func (r *UserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
