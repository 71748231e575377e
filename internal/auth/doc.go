// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

// Package auth is the credential-authentication core for CredGate.
//
// # Domain Types
//
// User records should be created with NewUser, which normalizes the
// username and rejects empty password hashes. Direct struct
// initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-normalized, pre-validated
// records from the service layer.
//
// # Components
//
//   - Validate - stateless username/password rule checker
//   - PasswordHasher / BcryptHasher - adaptive one-way password hashing
//   - TokenService - signed, time-bounded bearer tokens
//   - AttemptLimiter - sliding-window abuse prevention per (identifier, endpoint)
//   - Service - orchestrates register/login/verify/profile
//
// Service is the only type the HTTP layer calls directly. All other
// components are dependencies injected through NewService.
package auth
