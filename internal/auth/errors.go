// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package auth

import (
	"errors"
	"time"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Error codes for authentication failures.
const (
	CodeValidationFailed   = "AUTH_VALIDATION_FAILED"
	CodeDuplicateUser      = "AUTH_DUPLICATE_USER"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeInvalidToken       = "AUTH_INVALID_TOKEN"
	CodeRateLimited        = "AUTH_RATE_LIMITED"
	CodeInternal           = "AUTH_INTERNAL"
)

// ErrValidationFailed creates an error carrying all rule violations.
func ErrValidationFailed(violations []string) error {
	return oops.Code(CodeValidationFailed).
		With("violations", violations).
		Errorf("Validation failed")
}

// ErrDuplicateUser creates an error for a username that is already taken.
func ErrDuplicateUser(username string) error {
	return oops.Code(CodeDuplicateUser).
		With("username", username).
		Errorf("Username already exists")
}

// ErrInvalidCredentials creates the generic credential-failure error.
// It deliberately does not distinguish "no such user" from "wrong
// password" to prevent account enumeration.
func ErrInvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).
		Errorf("Invalid credentials")
}

// ErrInvalidToken creates an error for a malformed, badly signed, or
// expired token. All three collapse to one user-facing outcome.
func ErrInvalidToken() error {
	return oops.Code(CodeInvalidToken).
		Errorf("Invalid or expired token")
}

// ErrRateLimited creates an error for a throttled request.
func ErrRateLimited(retryAfter time.Duration) error {
	return oops.Code(CodeRateLimited).
		With("retry_after", retryAfter).
		Errorf("Too many authentication attempts. Please try again later.")
}

// ErrInternal wraps an unexpected failure. The cause is logged
// server-side; callers only ever see the generic message.
func ErrInternal(operation string, cause error) error {
	return oops.Code(CodeInternal).
		With("operation", operation).
		Wrap(cause)
}

// HasCode reports whether err carries the given oops error code.
func HasCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	return oopsErr.Code() == code
}

// Violations extracts the rule-violation list from a validation error.
// Returns nil for any other error.
func Violations(err error) []string {
	oopsErr, ok := oops.AsOops(err)
	if !ok || oopsErr.Code() != CodeValidationFailed {
		return nil
	}
	if v, ok := oopsErr.Context()["violations"].([]string); ok {
		return v
	}
	return nil
}

// RetryAfter extracts the retry-after hint from a rate-limit error.
// Returns zero for any other error.
func RetryAfter(err error) time.Duration {
	oopsErr, ok := oops.AsOops(err)
	if !ok || oopsErr.Code() != CodeRateLimited {
		return 0
	}
	if d, ok := oopsErr.Context()["retry_after"].(time.Duration); ok {
		return d
	}
	return 0
}

// UserMessage extracts a user-facing message from an error. Unexpected
// errors map to a generic message so internals never leak to callers.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNotFound) {
		return "User not found"
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return "Internal server error"
	}
	switch oopsErr.Code() {
	case CodeValidationFailed, CodeDuplicateUser, CodeInvalidCredentials,
		CodeInvalidToken, CodeRateLimited:
		return oopsErr.Error()
	default:
		return "Internal server error"
	}
}
