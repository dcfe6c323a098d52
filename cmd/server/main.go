// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/cadence/internal/api"
	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/recommend"
	"github.com/tomtom215/cadence/internal/runledger"
	"github.com/tomtom215/cadence/internal/supervisor"
	"github.com/tomtom215/cadence/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	once := flag.Bool("once", false, "run a single batch and exit (non-zero status on failure)")
	flag.Parse()

	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		code := runOnce(ctx, cfg)
		stop()
		os.Exit(code)
	}

	if err := serve(ctx, cfg); err != nil {
		logging.Error().Err(err).Msg("Server failed")
		stop()
		os.Exit(1)
	}
}

// runOnce executes a single batch and returns the process exit code.
func runOnce(ctx context.Context, cfg *config.Config) int {
	logger := logging.Logger()
	logger.Info().Str("version", version).Msg("Starting Cadence single run")

	components, err := initRecommend(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize recommendation engine")
		return 1
	}
	defer components.Close()

	result, err := components.Service.RunOnce(ctx, runledger.TriggerOnce, recommend.RunOptions{})
	if err != nil {
		event := logger.Error().Err(err)
		if result != nil {
			event = event.Str("run_id", result.RunID).Str("state", result.State.String())
		}
		event.Msg("Recommendation run failed")
		return 1
	}

	logger.Info().
		Str("run_id", result.RunID).
		Int("active_users", result.Digest.ActiveUserCount).
		Int("users_with_recommendations", result.Digest.UsersWithRecommendations).
		Int("messages", result.MessagesEmitted).
		Dur("duration", result.FinishedAt.Sub(result.StartedAt)).
		Msg("Recommendation run completed")
	return 0
}

// serve runs the supervisor tree until ctx is canceled.
func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.Logger()
	logger.Info().Str("version", version).Msg("Starting Cadence with supervisor tree")

	components, err := initRecommend(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize recommendation engine: %w", err)
	}
	defer components.Close()

	// Bridges zerolog to slog for sutureslog
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	handler, err := api.NewHandler(api.HandlerDeps{
		Trigger: components.Service,
		Store:   components.Ledger,
		Stats:   components.Engine,
		Checks:  components.healthChecks(),
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("create api handler: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, api.RouterConfigFrom(&cfg.Server)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	if components.Broker != nil {
		tree.AddMessagingService(services.NewBrokerService(components.Broker, logger))
		logging.Info().Msg("Embedded NATS server added to supervisor tree")
	}

	tree.AddBatchService(components.Service)
	logging.Info().Str("schedule", cfg.Schedule.Cron).Msg("Recommendation service added to supervisor tree")

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second, logger))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
		treeErr = <-errCh
	case treeErr = <-errCh:
	}
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Error().Err(treeErr).Msg("Supervisor tree error")
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
	return nil
}
