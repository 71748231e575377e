// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package auth

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
)

// Password validation constraints.
const (
	MinPasswordLength = 12
	MaxPasswordLength = 100
)

// usernamePattern restricts usernames to ASCII letters, digits, and underscore.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Password complexity character classes.
var (
	upperPattern  = regexp.MustCompile(`[A-Z]`)
	lowerPattern  = regexp.MustCompile(`[a-z]`)
	digitPattern  = regexp.MustCompile(`[0-9]`)
	symbolPattern = regexp.MustCompile(`[!@#$%^&*()_+\-=[\]{};':"\\|,.<>/?]`)
)

// commonPasswords is the deny-list of passwords rejected regardless of
// complexity. Matched case-insensitively.
var commonPasswords = map[string]struct{}{
	"password":    {},
	"123456":      {},
	"password123": {},
	"admin":       {},
	"qwerty":      {},
	"letmein":     {},
	"welcome":     {},
	"monkey":      {},
	"1234567890":  {},
	"abc123":      {},
	"password1":   {},
	"123123":      {},
	"dragon":      {},
	"master":      {},
	"hello":       {},
}

// Validate checks username and password against the registration rules.
// It is a pure function: all applicable rules are evaluated and every
// violation is returned as a stable, user-displayable message, so
// callers can surface all problems at once instead of one per attempt.
// An empty result means both inputs are acceptable.
func Validate(username, password string) []string {
	var violations []string
	violations = append(violations, validateUsername(username)...)
	violations = append(violations, validatePassword(password)...)
	return violations
}

func validateUsername(username string) []string {
	// Lengths are counted in characters, not bytes, so multibyte input
	// is measured the way users perceive it.
	switch {
	case strings.TrimSpace(username) == "":
		return []string{"Username is required"}
	case utf8.RuneCountInString(username) < MinUsernameLength:
		return []string{"Username must be at least 3 characters long"}
	case utf8.RuneCountInString(username) > MaxUsernameLength:
		return []string{"Username must be less than 20 characters"}
	case !usernamePattern.MatchString(username):
		return []string{"Username can only contain letters, numbers, and underscores"}
	}
	return nil
}

func validatePassword(password string) []string {
	if password == "" {
		return []string{"Password is required"}
	}

	var violations []string
	if length := utf8.RuneCountInString(password); length < MinPasswordLength {
		violations = append(violations, "Password must be at least 12 characters long")
	} else if length > MaxPasswordLength {
		violations = append(violations, "Password must be less than 100 characters")
	}

	if !upperPattern.MatchString(password) {
		violations = append(violations, "Password must contain at least one uppercase letter")
	}
	if !lowerPattern.MatchString(password) {
		violations = append(violations, "Password must contain at least one lowercase letter")
	}
	if !digitPattern.MatchString(password) {
		violations = append(violations, "Password must contain at least one number")
	}
	if !symbolPattern.MatchString(password) {
		violations = append(violations, "Password must contain at least one special character (!@#$%^&*())")
	}

	if _, common := commonPasswords[strings.ToLower(password)]; common {
		violations = append(violations, "Password is too common. Please choose a more secure password")
	}

	return violations
}
