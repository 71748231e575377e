// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/pkg/errutil"
)

// errorResponse is the standard error response body. Errors carries
// per-field validation messages and RetryAfter the seconds until a
// rate-limited client may retry.
type errorResponse struct {
	Message    string   `json:"message"`
	Errors     []string `json:"errors,omitempty"`
	RetryAfter int      `json:"retryAfter,omitempty"`
}

// userResponse is the JSON representation of an account.
type userResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// registerResponse is the body returned on successful registration.
type registerResponse struct {
	Message  string `json:"message"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// loginResponse is the body returned on successful login.
type loginResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    userResponse `json:"user"`
}

// verifyResponse is the body returned by the token verification endpoint.
// Valid is always serialized so clients can branch on it directly.
type verifyResponse struct {
	Message string        `json:"message"`
	Valid   bool          `json:"valid"`
	User    *userResponse `json:"user,omitempty"`
}

// profileResponse is the body returned by the profile endpoint.
type profileResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

// credentialsRequest is the JSON body for register and login.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// verifyRequest is the JSON body for token verification.
type verifyRequest struct {
	Token string `json:"token"`
}

func toProfileResponse(p auth.Profile) profileResponse {
	return profileResponse{
		Message: "Profile retrieved successfully",
		User: userResponse{
			ID:        p.ID.String(),
			Username:  p.Username,
			CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		},
	}
}

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

// writeAuthError maps a service error to its HTTP response, including
// validation details and retry hints where the error carries them.
// Unexpected errors are logged here; the client only sees the generic
// message.
func (h *Handler) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case auth.HasCode(err, auth.CodeValidationFailed):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Message: auth.UserMessage(err),
			Errors:  auth.Violations(err),
		})
	case auth.HasCode(err, auth.CodeDuplicateUser):
		writeError(w, http.StatusConflict, auth.UserMessage(err))
	case auth.HasCode(err, auth.CodeInvalidCredentials):
		writeError(w, http.StatusUnauthorized, auth.UserMessage(err))
	case auth.HasCode(err, auth.CodeInvalidToken):
		writeError(w, http.StatusUnauthorized, auth.UserMessage(err))
	case auth.HasCode(err, auth.CodeRateLimited):
		retryAfter := int(auth.RetryAfter(err).Round(time.Second).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Message:    auth.UserMessage(err),
			RetryAfter: retryAfter,
		})
	default:
		errutil.LogError(h.logger, "request failed", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
