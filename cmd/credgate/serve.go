// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CredGate Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/internal/auth/memory"
	"github.com/credgate/credgate/internal/config"
	"github.com/credgate/credgate/internal/httpapi"
	"github.com/credgate/credgate/internal/logging"
	"github.com/credgate/credgate/internal/observability"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication service",
		Long: `Start the authentication service: the JSON API server plus an
observability server exposing Prometheus metrics and health probes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd)
		},
	}
}

func runServe(ctx context.Context, cmd *cobra.Command) error {
	// A missing default .env file is fine; an explicit one must exist.
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.SetDefault(logging.Options{
		Service: "credgate",
		Version: version,
		Env:     cfg.Env,
		Format:  cfg.LogFormat,
		Level:   cfg.LogLevel,
	})

	slog.Info("starting credgate",
		"env", cfg.Env,
		"listen_addr", cfg.ListenAddr,
		"metrics_addr", cfg.MetricsAddr,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Observability server owns the metrics registry; the limiter gauge
	// registers into it before Start.
	obsServer := observability.NewServer(cfg.MetricsAddr, func() bool { return true })

	svc, err := buildService(cfg, obsServer.Registry())
	if err != nil {
		return fmt.Errorf("failed to build authentication service: %w", err)
	}
	defer svc.Limiter().Close()

	handler := httpapi.NewServeMux(httpapi.NewHandler(svc, slog.Default()), slog.Default())
	apiServer := httpapi.NewServer(cfg.ListenAddr, handler, slog.Default())

	obsErrChan, err := obsServer.Start()
	if err != nil {
		return fmt.Errorf("failed to start observability server: %w", err)
	}
	go monitorServerErrors(ctx, cancel, obsErrChan, "observability")

	apiErrChan, err := apiServer.Start()
	if err != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()
		if stopErr := obsServer.Stop(stopCtx); stopErr != nil {
			slog.Warn("failed to stop observability server during cleanup", "error", stopErr)
		}
		return fmt.Errorf("failed to start api server: %w", err)
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("CredGate started")
	slog.Info("credgate ready", "addr", apiServer.Addr())

	// Wait for shutdown signal or server failure
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()

	if err := apiServer.Stop(stopCtx); err != nil {
		slog.Warn("failed to stop api server", "error", err)
	}
	if err := obsServer.Stop(stopCtx); err != nil {
		slog.Warn("failed to stop observability server", "error", err)
	}

	slog.Info("credgate stopped")
	return nil
}

// buildService wires the repository, hasher, token service, and limiter
// into the authentication service.
func buildService(cfg *config.Config, reg prometheus.Registerer) (*auth.Service, error) {
	tokens, err := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	limiter := auth.NewAttemptLimiterWithRegistry(auth.LimiterConfig{
		MaxAttempts:     cfg.MaxAttempts,
		Window:          cfg.AttemptWindow,
		BlockDuration:   cfg.BlockDuration,
		CleanupInterval: cfg.CleanupInterval,
	}, reg)

	svc, err := auth.NewService(
		memory.NewUserRepository(),
		auth.NewBcryptHasher(cfg.BcryptCost),
		tokens,
		limiter,
		slog.Default(),
	)
	if err != nil {
		limiter.Close()
		return nil, err
	}
	return svc, nil
}

// monitorServerErrors watches a server error channel and cancels the
// process context when one fails, triggering graceful shutdown.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errChan <-chan error, name string) {
	select {
	case err, ok := <-errChan:
		if ok && err != nil {
			slog.Error("server failed", "server", name, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
