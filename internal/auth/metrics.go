// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Status constants for authentication metrics.
const (
	StatusSuccess     = "success"
	StatusFailure     = "failure"
	StatusDuplicate   = "duplicate"
	StatusInvalid     = "invalid"
	StatusRateLimited = "rate_limited"
)

// Registrations is the counter for registration attempts.
// Use RegisterMetrics to register this with a Prometheus registry.
var Registrations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "credgate_registrations_total",
		Help: "Total number of registration attempts by status",
	},
	[]string{"status"},
)

// Logins is the counter for login attempts.
// Use RegisterMetrics to register this with a Prometheus registry.
var Logins = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "credgate_logins_total",
		Help: "Total number of login attempts by status",
	},
	[]string{"status"},
)

// TokenVerifications is the counter for token verifications.
// Use RegisterMetrics to register this with a Prometheus registry.
var TokenVerifications = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "credgate_token_verifications_total",
		Help: "Total number of token verifications by status",
	},
	[]string{"status"},
)

// RateLimitRejections is the counter for rate-limited requests.
// Use RegisterMetrics to register this with a Prometheus registry.
var RateLimitRejections = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "credgate_rate_limited_total",
		Help: "Total number of requests rejected by the rate limiter",
	},
	[]string{"endpoint"},
)

// RegisterMetrics registers auth package metrics with the given
// Prometheus registry. This must be called at startup to make metrics
// available on /metrics. Panics if registration fails (following
// prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Registrations)
	reg.MustRegister(Logins)
	reg.MustRegister(TokenVerifications)
	reg.MustRegister(RateLimitRejections)
}
