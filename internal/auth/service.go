// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// dummyPassword is hashed once at service construction. When a login
// targets a username that does not exist, the service still verifies
// the supplied password against this digest so response time does not
// reveal whether the account exists.
const dummyPassword = "credgate-timing-equalizer"

// LoginResult carries the outcome of a successful login.
type LoginResult struct {
	Token string
	User  *User
}

// Service composes the validator, credential store, password hasher,
// token service, and rate limiter into the register/login/verify/
// profile operations. It is the only component the HTTP layer calls
// directly.
type Service struct {
	users     UserRepository
	hasher    PasswordHasher
	tokens    *TokenService
	limiter   *AttemptLimiter
	logger    *slog.Logger
	dummyHash string
}

// NewService creates a Service. All dependencies except the logger are
// required; a nil logger falls back to slog.Default().
func NewService(users UserRepository, hasher PasswordHasher, tokens *TokenService, limiter *AttemptLimiter, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code(CodeInternal).Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code(CodeInternal).Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code(CodeInternal).Errorf("token service is required")
	}
	if limiter == nil {
		return nil, oops.Code(CodeInternal).Errorf("attempt limiter is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Hash the dummy password with the configured cost so that failed
	// lookups and failed verifications take the same time.
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, oops.Code(CodeInternal).
			With("operation", "hash dummy password").
			Wrap(err)
	}

	return &Service{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		limiter:   limiter,
		logger:    logger,
		dummyHash: dummyHash,
	}, nil
}

// Limiter exposes the attempt limiter for middleware that surfaces
// quota headers. The limiter's Check never counts as an attempt.
func (s *Service) Limiter() *AttemptLimiter {
	return s.limiter
}

// Register creates a new user. Validation runs first and fails fast
// without touching the rate limiter; the limiter then gates whether
// credential work proceeds at all. identifier is the client address
// (or equivalent) used as the rate-limit key.
func (s *Service) Register(ctx context.Context, username, password, identifier string) (*User, error) {
	if violations := Validate(username, password); len(violations) > 0 {
		Registrations.WithLabelValues(StatusInvalid).Inc()
		return nil, ErrValidationFailed(violations)
	}

	if res := s.limiter.Check(identifier, EndpointRegister); !res.Allowed {
		Registrations.WithLabelValues(StatusRateLimited).Inc()
		RateLimitRejections.WithLabelValues(EndpointRegister).Inc()
		return nil, ErrRateLimited(res.RetryAfter())
	}

	normalized := Normalize(username)

	taken, err := s.users.Exists(ctx, normalized)
	if err != nil {
		return nil, ErrInternal("check username", err)
	}
	if taken {
		s.limiter.RecordFailure(identifier, EndpointRegister)
		Registrations.WithLabelValues(StatusDuplicate).Inc()
		return nil, ErrDuplicateUser(normalized)
	}

	// Hashing is CPU-bound; it runs with no shared lock held.
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, ErrInternal("hash password", err)
	}

	user, err := NewUser(normalized, hash)
	if err != nil {
		return nil, ErrInternal("build user", err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent register may have won the race since the
		// existence check; the store's atomic create is authoritative.
		if HasCode(err, CodeDuplicateUser) {
			s.limiter.RecordFailure(identifier, EndpointRegister)
			Registrations.WithLabelValues(StatusDuplicate).Inc()
			return nil, err
		}
		return nil, ErrInternal("create user", err)
	}

	s.limiter.RecordSuccess(identifier, EndpointRegister)
	Registrations.WithLabelValues(StatusSuccess).Inc()
	s.logger.Info("user registered",
		"user_id", user.ID.String(),
		"username", user.Username,
	)
	return user, nil
}

// Login authenticates a user and issues a bearer token. Both "no such
// user" and "wrong password" produce the same AUTH_INVALID_CREDENTIALS
// outcome, and a dummy digest is verified when the user is missing so
// timing stays flat.
func (s *Service) Login(ctx context.Context, username, password, identifier string) (*LoginResult, error) {
	if violations := Validate(username, password); len(violations) > 0 {
		Logins.WithLabelValues(StatusInvalid).Inc()
		return nil, ErrValidationFailed(violations)
	}

	if res := s.limiter.Check(identifier, EndpointLogin); !res.Allowed {
		Logins.WithLabelValues(StatusRateLimited).Inc()
		RateLimitRejections.WithLabelValues(EndpointLogin).Inc()
		return nil, ErrRateLimited(res.RetryAfter())
	}

	normalized := Normalize(username)

	user, lookupErr := s.users.GetByUsername(ctx, normalized)
	targetHash := s.dummyHash
	userExists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, ErrInternal("get user by username", lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	// Verification is CPU-bound and runs with no shared lock held; the
	// store released its lock before returning.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			s.limiter.RecordFailure(identifier, EndpointLogin)
			Logins.WithLabelValues(StatusFailure).Inc()
			return nil, ErrInvalidCredentials()
		}
		return nil, ErrInternal("verify password", verifyErr)
	}

	if !userExists || !valid {
		s.limiter.RecordFailure(identifier, EndpointLogin)
		Logins.WithLabelValues(StatusFailure).Inc()
		return nil, ErrInvalidCredentials()
	}

	s.limiter.RecordSuccess(identifier, EndpointLogin)

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, ErrInternal("issue token", err)
	}

	Logins.WithLabelValues(StatusSuccess).Inc()
	s.logger.Info("user logged in",
		"user_id", user.ID.String(),
		"username", user.Username,
	)
	return &LoginResult{Token: token, User: user}, nil
}

// Verify validates a bearer token and returns the embedded identity.
func (s *Service) Verify(_ context.Context, token string) (Identity, error) {
	identity, err := s.tokens.Verify(token)
	if err != nil {
		TokenVerifications.WithLabelValues(StatusInvalid).Inc()
		return Identity{}, err
	}
	TokenVerifications.WithLabelValues(StatusSuccess).Inc()
	return identity, nil
}

// Profile returns the safe projection of the user with the given
// username. Returns ErrNotFound (wrapped) when the user does not exist.
func (s *Service) Profile(ctx context.Context, username string) (Profile, error) {
	user, err := s.users.GetByUsername(ctx, Normalize(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Profile{}, err
		}
		return Profile{}, ErrInternal("get user by username", err)
	}
	return user.Profile(), nil
}
