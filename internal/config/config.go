// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

// Package config loads application configuration from environment variables.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// Environment profiles. The profile selects a set of defaults; individual
// variables still override the profile values.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Env string

	ListenAddr  string
	MetricsAddr string

	JWTSecret string
	TokenTTL  time.Duration

	BcryptCost int

	MaxAttempts     int
	AttemptWindow   time.Duration
	BlockDuration   time.Duration
	CleanupInterval time.Duration

	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a validated
// Config. CREDGATE_ENV selects the profile (development, production, test);
// unknown values are rejected. CREDGATE_JWT_SECRET is required in production
// and falls back to an insecure development secret otherwise.
//
// Optional variables with profile-dependent defaults: CREDGATE_LISTEN_ADDR,
// CREDGATE_METRICS_ADDR, CREDGATE_TOKEN_TTL, CREDGATE_BCRYPT_COST,
// CREDGATE_MAX_ATTEMPTS, CREDGATE_ATTEMPT_WINDOW, CREDGATE_BLOCK_DURATION,
// CREDGATE_CLEANUP_INTERVAL, CREDGATE_LOG_LEVEL, CREDGATE_LOG_FORMAT.
func Load() (*Config, error) {
	env := EnvDevelopment
	if v, ok := os.LookupEnv("CREDGATE_ENV"); ok && v != "" {
		env = v
	}

	cfg := &Config{
		Env:             env,
		ListenAddr:      "127.0.0.1:8080",
		MetricsAddr:     "127.0.0.1:9100",
		TokenTTL:        30 * time.Minute,
		BcryptCost:      12,
		MaxAttempts:     5,
		AttemptWindow:   15 * time.Minute,
		BlockDuration:   30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		LogLevel:        slog.LevelInfo,
		LogFormat:       "json",
	}

	switch env {
	case EnvDevelopment:
		cfg.LogFormat = "text"
		cfg.LogLevel = slog.LevelDebug
	case EnvProduction:
		cfg.BcryptCost = 14
		cfg.MaxAttempts = 3
		cfg.AttemptWindow = 10 * time.Minute
	case EnvTest:
		cfg.BcryptCost = bcrypt.MinCost
		cfg.MaxAttempts = 10
		cfg.AttemptWindow = time.Minute
		cfg.TokenTTL = time.Hour
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("env", env).
			Errorf("CREDGATE_ENV must be one of development, production, test")
	}

	cfg.JWTSecret = os.Getenv("CREDGATE_JWT_SECRET")
	if cfg.JWTSecret == "" {
		if env == EnvProduction {
			return nil, oops.Code("CONFIG_INVALID").
				Errorf("CREDGATE_JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "credgate-insecure-dev-secret"
	}

	if v, ok := os.LookupEnv("CREDGATE_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv("CREDGATE_METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}

	if err := overrideDuration(&cfg.TokenTTL, "CREDGATE_TOKEN_TTL"); err != nil {
		return nil, err
	}
	if err := overrideDuration(&cfg.AttemptWindow, "CREDGATE_ATTEMPT_WINDOW"); err != nil {
		return nil, err
	}
	if err := overrideDuration(&cfg.BlockDuration, "CREDGATE_BLOCK_DURATION"); err != nil {
		return nil, err
	}
	if err := overrideDuration(&cfg.CleanupInterval, "CREDGATE_CLEANUP_INTERVAL"); err != nil {
		return nil, err
	}

	if err := overrideInt(&cfg.BcryptCost, "CREDGATE_BCRYPT_COST"); err != nil {
		return nil, err
	}
	if err := overrideInt(&cfg.MaxAttempts, "CREDGATE_MAX_ATTEMPTS"); err != nil {
		return nil, err
	}

	if v, ok := os.LookupEnv("CREDGATE_LOG_LEVEL"); ok {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v)); err != nil {
			return nil, oops.Code("CONFIG_INVALID").
				With("var", "CREDGATE_LOG_LEVEL").
				With("value", v).
				Wrap(err)
		}
		cfg.LogLevel = level
	}
	if v, ok := os.LookupEnv("CREDGATE_LOG_FORMAT"); ok {
		if v != "json" && v != "text" {
			return nil, oops.Code("CONFIG_INVALID").
				With("var", "CREDGATE_LOG_FORMAT").
				With("value", v).
				Errorf("CREDGATE_LOG_FORMAT must be json or text")
		}
		cfg.LogFormat = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.TokenTTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("token TTL must be positive")
	}
	if c.MaxAttempts <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("max attempts must be positive")
	}
	if c.AttemptWindow <= 0 || c.BlockDuration <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("attempt window and block duration must be positive")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return oops.Code("CONFIG_INVALID").
			With("cost", c.BcryptCost).
			Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

func overrideDuration(dst *time.Duration, name string) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return oops.Code("CONFIG_INVALID").
			With("var", name).
			With("value", v).
			Wrap(err)
	}
	*dst = parsed
	return nil
}

func overrideInt(dst *int, name string) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return oops.Code("CONFIG_INVALID").
			With("var", name).
			With("value", v).
			Wrap(err)
	}
	*dst = parsed
	return nil
}
