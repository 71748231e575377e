// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// BearerScheme is the Authorization header scheme for bearer tokens.
const BearerScheme = "Bearer"

// tokenClaims is the JWT claim set embedded in issued tokens. The user
// ID travels in the registered subject claim.
type tokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed, time-bounded bearer tokens.
// Tokens are not stored server-side: validity is derived purely from
// signature and expiry at verification time. Rotating the signing
// secret is a configuration concern; construct a new service with the
// new secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. The secret is injected,
// never hard-coded; ttl bounds every issued token's lifetime.
func NewTokenService(secret []byte, ttl time.Duration) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, oops.Code(CodeInternal).Errorf("signing secret is required")
	}
	if ttl <= 0 {
		return nil, oops.Code(CodeInternal).Errorf("token TTL must be positive")
	}
	return &TokenService{secret: secret, ttl: ttl}, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue mints a token for the user with an absolute expiry of now+TTL.
func (s *TokenService) Issue(userID ulid.ULID, username string) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", oops.Code(CodeInternal).
			With("operation", "sign token").
			Wrap(err)
	}
	return token, nil
}

// Verify checks the token's signature and expiry and returns the
// embedded identity. Malformed encodings, signature mismatches, and
// expired tokens all collapse to a single AUTH_INVALID_TOKEN outcome.
func (s *TokenService) Verify(token string) (Identity, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken()
	}

	userID, err := ulid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, ErrInvalidToken()
	}

	return Identity{UserID: userID, Username: claims.Username}, nil
}

// ExtractBearer parses an Authorization-style header value. It requires
// exactly the Bearer scheme followed by one credential token; any other
// shape yields ("", false) so middleware can reject with "access token
// required" instead of attempting verification.
func ExtractBearer(headerValue string) (string, bool) {
	if headerValue == "" {
		return "", false
	}
	parts := strings.Split(headerValue, " ")
	if len(parts) != 2 || parts[0] != BearerScheme || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
