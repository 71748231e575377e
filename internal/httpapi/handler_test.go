// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/internal/auth/memory"
	"github.com/credgate/credgate/internal/httpapi"
)

const (
	goodUsername = "alice_01"
	goodPassword = "Str0ng!Passw0rd"
)

// brokenUserRepo is a stub repository whose operations fail with a
// fixed error, for exercising internal-failure responses.
type brokenUserRepo struct {
	err error
}

func (r *brokenUserRepo) Create(_ context.Context, _ *auth.User) error {
	return r.err
}

func (r *brokenUserRepo) GetByUsername(_ context.Context, _ string) (*auth.User, error) {
	return nil, r.err
}

func (r *brokenUserRepo) Exists(_ context.Context, _ string) (bool, error) {
	return false, r.err
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newTestHandlerWithRepo(t, memory.NewUserRepository(), logger)
}

func newTestHandlerWithRepo(t *testing.T, repo auth.UserRepository, logger *slog.Logger) http.Handler {
	t.Helper()

	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	tokens, err := auth.NewTokenService([]byte("handler-test-secret"), time.Hour)
	require.NoError(t, err)

	limiter := auth.NewAttemptLimiter(auth.LimiterConfig{
		MaxAttempts:   3,
		Window:        time.Minute,
		BlockDuration: time.Minute,
	})
	t.Cleanup(limiter.Close)

	svc, err := auth.NewService(repo, hasher, tokens, limiter, logger)
	require.NoError(t, err)

	return httpapi.NewServeMux(httpapi.NewHandler(svc, logger), logger)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.7:51234"
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func register(t *testing.T, h http.Handler, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, h, http.MethodPost, "/auth/register", map[string]string{
		"username": username,
		"password": password,
	}, nil)
}

func login(t *testing.T, h http.Handler, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, h, http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, nil)
}

func bearerHeader(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func TestWelcome(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/api", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["message"], "Welcome")
}

func TestRegister(t *testing.T) {
	t.Run("creates user and returns 201", func(t *testing.T) {
		h := newTestHandler(t)

		rec := register(t, h, goodUsername, goodPassword)

		require.Equal(t, http.StatusCreated, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "User registered successfully", body["message"])
		assert.Equal(t, goodUsername, body["username"])
		assert.NotEmpty(t, body["userId"])
	})

	t.Run("invalid body returns 400", func(t *testing.T) {
		h := newTestHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("{not json"))
		req.RemoteAddr = "203.0.113.7:51234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid request body", decodeBody(t, rec)["message"])
	})

	t.Run("validation failure returns 400 with per-field messages", func(t *testing.T) {
		h := newTestHandler(t)

		rec := register(t, h, "ab", "weak")

		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		errs, ok := body["errors"].([]any)
		require.True(t, ok)
		assert.NotEmpty(t, errs)
	})

	t.Run("duplicate username returns 409", func(t *testing.T) {
		h := newTestHandler(t)
		require.Equal(t, http.StatusCreated, register(t, h, goodUsername, goodPassword).Code)

		rec := register(t, h, "Alice_01", goodPassword)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "Username already exists", decodeBody(t, rec)["message"])
	})

	t.Run("store failure returns 500 and is logged", func(t *testing.T) {
		var logBuf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&logBuf, nil))
		h := newTestHandlerWithRepo(t, &brokenUserRepo{err: errors.New("disk on fire")}, logger)

		rec := register(t, h, goodUsername, goodPassword)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal server error", decodeBody(t, rec)["message"])
		assert.Contains(t, logBuf.String(), "disk on fire")
	})

	t.Run("includes rate limit headers", func(t *testing.T) {
		h := newTestHandler(t)

		rec := register(t, h, goodUsername, goodPassword)

		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Remaining"))
	})
}

func TestLogin(t *testing.T) {
	t.Run("returns token for valid credentials", func(t *testing.T) {
		h := newTestHandler(t)
		require.Equal(t, http.StatusCreated, register(t, h, goodUsername, goodPassword).Code)

		rec := login(t, h, goodUsername, goodPassword)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Login successful", body["message"])
		assert.NotEmpty(t, body["token"])

		user, ok := body["user"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, goodUsername, user["username"])
	})

	t.Run("wrong password returns 401", func(t *testing.T) {
		h := newTestHandler(t)
		require.Equal(t, http.StatusCreated, register(t, h, goodUsername, goodPassword).Code)

		rec := login(t, h, goodUsername, "Wr0ng!Passw0rd")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid credentials", decodeBody(t, rec)["message"])
	})

	t.Run("unknown user response matches wrong password response", func(t *testing.T) {
		h := newTestHandler(t)
		require.Equal(t, http.StatusCreated, register(t, h, goodUsername, goodPassword).Code)

		wrongPw := login(t, h, goodUsername, "Wr0ng!Passw0rd")
		unknown := login(t, h, "nobody_here", "Wr0ng!Passw0rd")

		assert.Equal(t, wrongPw.Code, unknown.Code)
		assert.Equal(t, decodeBody(t, wrongPw)["message"], decodeBody(t, unknown)["message"])
	})

	t.Run("repeated failures return 429 with retry hint", func(t *testing.T) {
		h := newTestHandler(t)
		require.Equal(t, http.StatusCreated, register(t, h, goodUsername, goodPassword).Code)

		// Limit is 3; exhaust it.
		for i := 0; i < 3; i++ {
			rec := login(t, h, goodUsername, "Wr0ng!Passw0rd")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		}

		rec := login(t, h, goodUsername, goodPassword)

		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Too many authentication attempts. Please try again later.", body["message"])

		retryAfter, ok := body["retryAfter"].(float64)
		require.True(t, ok)
		assert.Greater(t, retryAfter, float64(0))

		headerVal, err := strconv.Atoi(rec.Header().Get("Retry-After"))
		require.NoError(t, err)
		assert.Greater(t, headerVal, 0)
	})

	t.Run("remaining header decreases after failures", func(t *testing.T) {
		h := newTestHandler(t)
		require.Equal(t, http.StatusCreated, register(t, h, goodUsername, goodPassword).Code)

		login(t, h, goodUsername, "Wr0ng!Passw0rd")
		rec := login(t, h, goodUsername, "Wr0ng!Passw0rd")

		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Remaining"))

		reset, err := time.Parse(time.RFC3339, rec.Header().Get("X-RateLimit-Reset"))
		require.NoError(t, err)
		assert.True(t, reset.After(time.Now()))
	})
}

func TestVerify(t *testing.T) {
	t.Run("valid token returns identity", func(t *testing.T) {
		h := newTestHandler(t)
		require.Equal(t, http.StatusCreated, register(t, h, goodUsername, goodPassword).Code)
		loginBody := decodeBody(t, login(t, h, goodUsername, goodPassword))
		token, _ := loginBody["token"].(string)
		require.NotEmpty(t, token)

		rec := doJSON(t, h, http.MethodPost, "/auth/verify", map[string]string{"token": token}, nil)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Token is valid", body["message"])
		assert.Equal(t, true, body["valid"])

		user, ok := body["user"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, goodUsername, user["username"])
	})

	t.Run("missing token returns 400", func(t *testing.T) {
		h := newTestHandler(t)

		rec := doJSON(t, h, http.MethodPost, "/auth/verify", map[string]string{}, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Token is required", decodeBody(t, rec)["message"])
	})

	t.Run("garbage token returns 401 with valid false", func(t *testing.T) {
		h := newTestHandler(t)

		rec := doJSON(t, h, http.MethodPost, "/auth/verify", map[string]string{"token": "not-a-token"}, nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Invalid or expired token", body["message"])
		assert.Equal(t, false, body["valid"])
	})
}

func TestProfile(t *testing.T) {
	t.Run("returns profile for authenticated user", func(t *testing.T) {
		h := newTestHandler(t)
		require.Equal(t, http.StatusCreated, register(t, h, goodUsername, goodPassword).Code)
		loginBody := decodeBody(t, login(t, h, goodUsername, goodPassword))
		token, _ := loginBody["token"].(string)
		require.NotEmpty(t, token)

		rec := doJSON(t, h, http.MethodGet, "/auth/profile", nil, bearerHeader(token))

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "Profile retrieved successfully", body["message"])

		user, ok := body["user"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, goodUsername, user["username"])
		assert.NotEmpty(t, user["id"])
		assert.NotEmpty(t, user["createdAt"])
	})

	t.Run("missing token returns 401", func(t *testing.T) {
		h := newTestHandler(t)

		rec := doJSON(t, h, http.MethodGet, "/auth/profile", nil, nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Access token required", decodeBody(t, rec)["message"])
	})

	t.Run("invalid token returns 403", func(t *testing.T) {
		h := newTestHandler(t)

		rec := doJSON(t, h, http.MethodGet, "/auth/profile", nil, bearerHeader("not-a-token"))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Invalid or expired token", decodeBody(t, rec)["message"])
	})
}

func TestClientIdentifier_ForwardedFor(t *testing.T) {
	h := newTestHandler(t)
	require.Equal(t, http.StatusCreated, register(t, h, goodUsername, goodPassword).Code)

	// Exhaust the limit from one forwarded address.
	fwd := http.Header{"X-Forwarded-For": []string{"198.51.100.9, 10.0.0.1"}}
	for i := 0; i < 3; i++ {
		doJSON(t, h, http.MethodPost, "/auth/login", map[string]string{
			"username": goodUsername,
			"password": "Wr0ng!Passw0rd",
		}, fwd)
	}

	blocked := doJSON(t, h, http.MethodPost, "/auth/login", map[string]string{
		"username": goodUsername,
		"password": goodPassword,
	}, fwd)
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)

	// A different client address is unaffected.
	other := login(t, h, goodUsername, goodPassword)
	assert.Equal(t, http.StatusOK, other.Code)
}
