// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package auth

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Default rate limiting values.
const (
	// DefaultMaxAttempts is the number of failures within the window
	// that triggers a block.
	DefaultMaxAttempts = 5

	// DefaultWindow is the sliding-window duration for attempt counting.
	DefaultWindow = 15 * time.Minute

	// DefaultBlockDuration is how long an identifier stays blocked once
	// the threshold is reached.
	DefaultBlockDuration = 30 * time.Minute

	// DefaultCleanupInterval is the interval at which the background
	// goroutine purges expired records.
	DefaultCleanupInterval = 5 * time.Minute
)

// Endpoint names used as the second half of limiter keys.
const (
	EndpointRegister = "register"
	EndpointLogin    = "login"
)

// attemptState tags the per-key state machine. Clean is represented by
// the absence of a record; a present record is either accumulating
// failures or blocked.
type attemptState int

const (
	stateAccumulating attemptState = iota
	stateBlocked
)

// attemptRecord tracks failures for one (identifier, endpoint) key.
type attemptRecord struct {
	state        attemptState
	count        int
	windowStart  time.Time
	blockedUntil time.Time
}

// LimiterConfig configures an AttemptLimiter. Zero values select the
// package defaults.
type LimiterConfig struct {
	// MaxAttempts is the failure threshold that triggers a block.
	MaxAttempts int

	// Window is the sliding-window duration. Failures older than one
	// window do not carry over.
	Window time.Duration

	// BlockDuration is how long a blocked identifier stays rejected.
	BlockDuration time.Duration

	// CleanupInterval is the interval at which background cleanup runs.
	CleanupInterval time.Duration
}

// CheckResult describes the limiter's decision for a key.
type CheckResult struct {
	// Allowed is true if credential work may proceed.
	Allowed bool

	// Remaining is the number of failures left before a block.
	Remaining int

	// BlockedUntil is when an active block expires. Zero if not blocked.
	BlockedUntil time.Time

	// ResetTime is when the current window expires. Zero if no record.
	ResetTime time.Time
}

// RetryAfter returns how long the caller should wait before retrying.
// Zero when the request is allowed.
func (r CheckResult) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	until := r.ResetTime
	if !r.BlockedUntil.IsZero() {
		until = r.BlockedUntil
	}
	d := time.Until(until)
	if d < 0 {
		return 0
	}
	return d
}

// AttemptLimiter tracks failed authentication attempts per
// (identifier, endpoint) key with sliding windows and temporary
// blocks. It is safe for concurrent use.
//
// The limiter runs a background goroutine to purge expired records.
// Call Close() to stop the goroutine and release resources.
type AttemptLimiter struct {
	mu            sync.Mutex
	attempts      map[string]*attemptRecord
	maxAttempts   int
	window        time.Duration
	blockDuration time.Duration

	// Background cleanup
	stopChan chan struct{}
	wg       sync.WaitGroup

	// Metrics gauge for tracked key count (nil if no registry provided)
	keysGauge prometheus.Gauge
}

// NewAttemptLimiter creates a limiter with the given configuration.
// It starts a background goroutine for cleanup. Call Close() to stop it.
func NewAttemptLimiter(cfg LimiterConfig) *AttemptLimiter {
	return newAttemptLimiter(cfg, nil)
}

// NewAttemptLimiterWithRegistry creates a limiter and registers a
// tracked-keys gauge with the provided Prometheus registry.
// It starts a background goroutine for cleanup. Call Close() to stop it.
func NewAttemptLimiterWithRegistry(cfg LimiterConfig, reg prometheus.Registerer) *AttemptLimiter {
	return newAttemptLimiter(cfg, reg)
}

func newAttemptLimiter(cfg LimiterConfig, reg prometheus.Registerer) *AttemptLimiter {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}
	blockDuration := cfg.BlockDuration
	if blockDuration <= 0 {
		blockDuration = DefaultBlockDuration
	}
	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}

	l := &AttemptLimiter{
		attempts:      make(map[string]*attemptRecord),
		maxAttempts:   maxAttempts,
		window:        window,
		blockDuration: blockDuration,
		stopChan:      make(chan struct{}),
	}

	if reg != nil {
		l.keysGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "credgate_limiter_tracked_keys",
			Help: "Current number of tracked rate limiter keys",
		})
		reg.MustRegister(l.keysGauge)
	}

	l.wg.Add(1)
	go l.cleanupLoop(cleanupInterval)

	return l
}

// MaxAttempts returns the configured failure threshold. Useful for
// surfacing quota headers.
func (l *AttemptLimiter) MaxAttempts() int {
	return l.maxAttempts
}

func limiterKey(identifier, endpoint string) string {
	return identifier + ":" + endpoint
}

// RecordFailure records one failed attempt for the key, lazily creating
// a record. A stale window does not carry its count over: the window
// restarts from this failure. Reaching the threshold transitions the
// key to Blocked with blockedUntil = now + block duration.
func (l *AttemptLimiter) RecordFailure(identifier, endpoint string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	key := limiterKey(identifier, endpoint)

	rec, exists := l.attempts[key]
	if !exists {
		rec = &attemptRecord{state: stateAccumulating, windowStart: now}
		l.attempts[key] = rec
	}

	if now.Sub(rec.windowStart) > l.window {
		rec.state = stateAccumulating
		rec.count = 0
		rec.windowStart = now
		rec.blockedUntil = time.Time{}
	}

	rec.count++
	if rec.count >= l.maxAttempts {
		rec.state = stateBlocked
		rec.blockedUntil = now.Add(l.blockDuration)
	}
}

// RecordSuccess unconditionally clears the key's record: a single
// successful credential check forgives all prior failures.
func (l *AttemptLimiter) RecordSuccess(identifier, endpoint string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, limiterKey(identifier, endpoint))
}

// Check evaluates the key's state without counting as an attempt. A
// record whose block or window has expired is cleared and the key is
// treated as clean. Only RecordFailure and RecordSuccess mutate counts.
func (l *AttemptLimiter) Check(identifier, endpoint string) CheckResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	key := limiterKey(identifier, endpoint)

	rec, exists := l.attempts[key]
	if !exists {
		return CheckResult{Allowed: true, Remaining: l.maxAttempts}
	}

	// Expired block: forget it entirely.
	if rec.state == stateBlocked && now.After(rec.blockedUntil) {
		delete(l.attempts, key)
		return CheckResult{Allowed: true, Remaining: l.maxAttempts}
	}

	// Expired window: forget it entirely.
	if now.Sub(rec.windowStart) > l.window {
		delete(l.attempts, key)
		return CheckResult{Allowed: true, Remaining: l.maxAttempts}
	}

	remaining := l.maxAttempts - rec.count
	if remaining < 0 {
		remaining = 0
	}

	result := CheckResult{
		Allowed:   rec.state != stateBlocked && remaining > 0,
		Remaining: remaining,
		ResetTime: rec.windowStart.Add(l.window),
	}
	if rec.state == stateBlocked {
		result.BlockedUntil = rec.blockedUntil
	}
	return result
}

// TrackedKeys returns the number of live records. Useful for testing
// and monitoring.
func (l *AttemptLimiter) TrackedKeys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attempts)
}

// Cleanup removes records whose block and window have both expired.
// Called automatically by the background goroutine; can also be called
// manually when immediate cleanup is desired.
func (l *AttemptLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, rec := range l.attempts {
		if rec.state == stateBlocked {
			if now.After(rec.blockedUntil) {
				delete(l.attempts, key)
			}
			continue
		}
		if now.Sub(rec.windowStart) > l.window {
			delete(l.attempts, key)
		}
	}

	if l.keysGauge != nil {
		l.keysGauge.Set(float64(len(l.attempts)))
	}
}

// cleanupLoop runs periodic cleanup in the background.
func (l *AttemptLimiter) cleanupLoop(interval time.Duration) {
	defer l.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

// Close stops the background cleanup goroutine and releases resources.
// It blocks until the goroutine has stopped.
func (l *AttemptLimiter) Close() {
	close(l.stopChan)
	l.wg.Wait()
}
