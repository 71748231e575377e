// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

// Package httpapi exposes the authentication service over a JSON REST API.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/pkg/errutil"
)

// Handler serves the authentication REST API.
type Handler struct {
	service *auth.Service
	logger  *slog.Logger
}

// NewHandler creates a Handler backed by the given service.
func NewHandler(service *auth.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api", h.handleWelcome)
	mux.HandleFunc("POST /auth/register", h.rateLimitHeaders(auth.EndpointRegister, h.handleRegister))
	mux.HandleFunc("POST /auth/login", h.rateLimitHeaders(auth.EndpointLogin, h.handleLogin))
	mux.HandleFunc("POST /auth/verify", h.handleVerify)
	mux.HandleFunc("GET /auth/profile", h.requireAuth(h.handleProfile))

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// handleWelcome returns a service banner for the API root.
func (h *Handler) handleWelcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to the CredGate API!",
	})
}

// handleRegister creates a new account from the submitted credentials.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Password, clientIdentifier(r))
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Message:  "User registered successfully",
		UserID:   user.ID.String(),
		Username: user.Username,
	})
}

// handleLogin verifies the submitted credentials and issues a bearer token.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password, clientIdentifier(r))
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Message: "Login successful",
		Token:   result.Token,
		User: userResponse{
			ID:       result.User.ID.String(),
			Username: result.User.Username,
		},
	})
}

// handleVerify checks a token submitted in the request body and reports
// whether it is valid and, if so, the identity it carries.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "Token is required")
		return
	}

	identity, err := h.service.Verify(r.Context(), req.Token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, verifyResponse{
			Message: "Invalid or expired token",
			Valid:   false,
		})
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{
		Message: "Token is valid",
		Valid:   true,
		User: &userResponse{
			ID:       identity.UserID.String(),
			Username: identity.Username,
		},
	})
}

// handleProfile returns the authenticated user's profile.
func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access token required")
		return
	}

	profile, err := h.service.Profile(r.Context(), identity.Username)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		errutil.LogError(h.logger, "profile lookup failed", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(profile))
}
