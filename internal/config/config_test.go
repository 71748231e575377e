// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package config_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/credgate/credgate/internal/config"
)

// clearEnv unsets all CREDGATE_* variables a test might inherit so each
// case starts from the documented defaults. t.Setenv registers restoration
// of the original value; os.Unsetenv then removes the empty value that
// would otherwise shadow the profile defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"CREDGATE_ENV", "CREDGATE_LISTEN_ADDR", "CREDGATE_METRICS_ADDR",
		"CREDGATE_JWT_SECRET", "CREDGATE_TOKEN_TTL", "CREDGATE_BCRYPT_COST",
		"CREDGATE_MAX_ATTEMPTS", "CREDGATE_ATTEMPT_WINDOW",
		"CREDGATE_BLOCK_DURATION", "CREDGATE_CLEANUP_INTERVAL",
		"CREDGATE_LOG_LEVEL", "CREDGATE_LOG_FORMAT",
	}
	for _, v := range vars {
		t.Setenv(v, "")
		require.NoError(t, os.Unsetenv(v))
	}
}

func TestLoad_DevelopmentDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.EnvDevelopment, cfg.Env)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.AttemptWindow)
	assert.Equal(t, 30*time.Minute, cfg.BlockDuration)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoad_ProductionProfile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CREDGATE_ENV", config.EnvProduction)
	t.Setenv("CREDGATE_JWT_SECRET", "a-real-secret")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 14, cfg.BcryptCost)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 10*time.Minute, cfg.AttemptWindow)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "a-real-secret", cfg.JWTSecret)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("CREDGATE_ENV", config.EnvProduction)

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CREDGATE_JWT_SECRET")
}

func TestLoad_TestProfile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CREDGATE_ENV", config.EnvTest)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, bcrypt.MinCost, cfg.BcryptCost)
	assert.Equal(t, 10, cfg.MaxAttempts)
	assert.Equal(t, time.Minute, cfg.AttemptWindow)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
}

func TestLoad_UnknownEnvRejected(t *testing.T) {
	clearEnv(t)
	t.Setenv("CREDGATE_ENV", "staging")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CREDGATE_LISTEN_ADDR", ":9999")
	t.Setenv("CREDGATE_TOKEN_TTL", "2h")
	t.Setenv("CREDGATE_MAX_ATTEMPTS", "7")
	t.Setenv("CREDGATE_LOG_LEVEL", "WARN")
	t.Setenv("CREDGATE_LOG_FORMAT", "json")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 7, cfg.MaxAttempts)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad duration", key: "CREDGATE_TOKEN_TTL", value: "soon"},
		{name: "bad int", key: "CREDGATE_MAX_ATTEMPTS", value: "many"},
		{name: "zero attempts", key: "CREDGATE_MAX_ATTEMPTS", value: "0"},
		{name: "bcrypt cost too high", key: "CREDGATE_BCRYPT_COST", value: "99"},
		{name: "bad log format", key: "CREDGATE_LOG_FORMAT", value: "xml"},
		{name: "bad log level", key: "CREDGATE_LOG_LEVEL", value: "LOUD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := config.Load()
			require.Error(t, err)
		})
	}
}
