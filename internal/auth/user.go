// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// User represents a registered account. The username is stored in
// normalized (lowercase) form and is unique across all records.
// Records are immutable once created.
type User struct {
	ID           ulid.ULID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Identity is the payload decoded from a verified bearer token.
type Identity struct {
	UserID   ulid.ULID
	Username string
}

// Profile is the safe projection of a User for external callers.
// It never carries the password hash.
type Profile struct {
	ID        ulid.ULID
	Username  string
	CreatedAt time.Time
}

// Normalize canonicalizes a username for storage and lookup.
// Normalization happens once, at the service boundary; repositories
// receive already-normalized keys.
func Normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NewUser creates a validated User with a fresh ID and normalized
// username.
func NewUser(username, passwordHash string) (*User, error) {
	normalized := Normalize(username)
	if normalized == "" {
		return nil, oops.Code(CodeInternal).Errorf("username cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeInternal).Errorf("password hash cannot be empty")
	}
	return &User{
		ID:           ulid.Make(),
		Username:     normalized,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}, nil
}

// Profile returns the safe projection of the user.
func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}

// UserRepository manages user persistence. Implementations must make
// Create an atomic check-and-insert: concurrent creates racing on the
// same normalized username resolve so exactly one wins and the rest
// fail with an AUTH_DUPLICATE_USER error.
type UserRepository interface {
	// Create stores a new user. The username must already be normalized.
	Create(ctx context.Context, user *User) error

	// GetByUsername retrieves a user by normalized username.
	// Returns ErrNotFound (possibly wrapped) if no such user exists.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// Exists reports whether a user with the normalized username exists.
	Exists(ctx context.Context, username string) (bool, error)
}
