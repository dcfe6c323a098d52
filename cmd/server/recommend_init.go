// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cadence/internal/api"
	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/database"
	"github.com/tomtom215/cadence/internal/eventprocessor"
	"github.com/tomtom215/cadence/internal/listenstore"
	"github.com/tomtom215/cadence/internal/recommend"
	"github.com/tomtom215/cadence/internal/recommend/storage"
	"github.com/tomtom215/cadence/internal/runledger"
	"github.com/tomtom215/cadence/internal/supervisor/services"
)

// RecommendComponents holds everything a recommendation run touches.
type RecommendComponents struct {
	DB          *database.DB
	ListenStore *listenstore.Store
	Broker      *eventprocessor.EmbeddedServer
	Delivery    *eventprocessor.Delivery
	Ledger      *runledger.Ledger
	Engine      *recommend.Engine
	Service     *services.RecommendService

	logger zerolog.Logger
}

// initRecommend opens the sources, model store, delivery path and ledger and
// assembles the engine and its service. On error everything opened so far
// is closed again.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initRecommend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (_ *RecommendComponents, err error) {
	c := &RecommendComponents{logger: logger}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	c.DB, err = database.New(&cfg.Data)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	logger.Info().Str("path", c.DB.GetDatabasePath()).Str("datasets", c.DB.DataDir()).Msg("DuckDB ready")

	history, err := c.initHistory(ctx, cfg)
	if err != nil {
		return nil, err
	}

	models, err := initModelStore(ctx, &cfg.Models, logger)
	if err != nil {
		return nil, err
	}

	var natsURL string
	c.Broker, natsURL, err = initBroker(cfg, logger)
	if err != nil {
		return nil, err
	}

	c.Delivery, err = eventprocessor.NewDelivery(ctx, cfg, natsURL, logger)
	if err != nil {
		return nil, fmt.Errorf("init delivery: %w", err)
	}

	c.Ledger, err = runledger.Open(&cfg.Ledger, logger)
	if err != nil {
		return nil, err
	}
	if n, rerr := c.Ledger.RecoverInterrupted(ctx); rerr != nil {
		logger.Warn().Err(rerr).Msg("Failed to recover interrupted runs")
	} else if n > 0 {
		logger.Warn().Int("count", n).Msg("Marked interrupted runs as failed")
	}

	c.Engine, err = recommend.NewEngine(buildEngineConfig(cfg), recommend.Dependencies{
		Sources:   c.DB,
		History:   history,
		Models:    models,
		Sink:      c.Delivery.Sink,
		Raw:       c.DB,
		Observers: []recommend.RunObserver{c.Ledger},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create recommendation engine: %w", err)
	}

	c.Service, err = services.NewRecommendService(c.Engine, c.Ledger, services.RecommendServiceConfig{
		Cron:       cfg.Schedule.Cron,
		RunOnStart: cfg.Schedule.RunOnStart,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create recommendation service: %w", err)
	}

	logger.Info().
		Str("mode", cfg.Recommend.Mode).
		Int("limit", cfg.Recommend.Limit).
		Int("users", len(cfg.Recommend.Users)).
		Str("history", cfg.History.Source).
		Str("transport", c.Delivery.Transport).
		Str("schedule", cfg.Schedule.Cron).
		Msg("Recommendation engine initialized")
	return c, nil
}

// initHistory selects the listen history backend. The returned source is a
// nil interface for "none", so the engine enriches without history.
func (c *RecommendComponents) initHistory(ctx context.Context, cfg *config.Config) (recommend.HistorySource, error) {
	switch cfg.History.Source {
	case config.HistoryDuckDB:
		return c.DB, nil
	case config.HistoryPostgres:
		store, err := listenstore.New(ctx, &cfg.History, c.logger)
		if err != nil {
			return nil, fmt.Errorf("connect listen store: %w", err)
		}
		c.ListenStore = store
		return store, nil
	case config.HistoryNone:
		c.logger.Warn().Msg("Listen history disabled, every recommendation is unheard")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown history source %q", cfg.History.Source)
	}
}

// initModelStore opens the model store and prunes old versions.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initModelStore(ctx context.Context, cfg *config.ModelsConfig, logger zerolog.Logger) (*storage.Loader, error) {
	store, err := storage.NewStore(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("open model store: %w", err)
	}

	loader := storage.NewLoader(store, cfg.Name, logger)
	if cfg.Keep > 0 {
		removed, err := store.Prune(ctx, cfg.Name, cfg.Keep)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to prune model versions")
		} else if removed > 0 {
			logger.Info().Int("removed", removed).Int("keep", cfg.Keep).Msg("Pruned model versions")
		}
	}

	if version, ok := store.GetLatestVersion(cfg.Name); ok {
		logger.Info().Str("dir", cfg.Dir).Str("model", cfg.Name).Int("latest_version", version).Msg("Model store ready")
	} else {
		logger.Warn().Str("dir", cfg.Dir).Str("model", cfg.Name).Msg("Model store holds no models yet, runs fail until one is stored")
	}
	return loader, nil
}

// buildEngineConfig maps configuration to engine run parameters.
func buildEngineConfig(cfg *config.Config) *recommend.Config {
	rc := recommend.DefaultConfig()
	rc.Limit = cfg.Recommend.Limit
	rc.PerUserRequest = cfg.Recommend.PerUserRequest
	rc.Mode = recommend.Mode(cfg.Recommend.Mode)
	rc.ReportBaseURL = cfg.Recommend.ReportBaseURL
	rc.SaveRaw = cfg.Recommend.SaveRaw
	rc.Timeout = cfg.Recommend.Timeout
	if len(cfg.Recommend.Users) > 0 {
		rc.Users = append([]string(nil), cfg.Recommend.Users...)
	}
	return rc
}

// healthChecks returns the dependency probes reported by /api/v1/health.
func (c *RecommendComponents) healthChecks() map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{}
	if c.DB != nil {
		checks["duckdb"] = c.DB.Ping
	}
	if c.ListenStore != nil {
		checks["listen_store"] = c.ListenStore.Ping
	}
	if c.Broker != nil {
		broker := c.Broker
		checks["nats"] = func(context.Context) error {
			if !broker.IsRunning() {
				return errors.New("embedded NATS server not running")
			}
			return nil
		}
	}
	return checks
}

// Close releases all components in reverse order of creation. It is safe
// on partially initialized components.
func (c *RecommendComponents) Close() {
	if c.Ledger != nil {
		if err := c.Ledger.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Error closing run ledger")
		}
	}
	if c.Delivery != nil {
		if err := c.Delivery.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Error closing delivery")
		}
	}
	shutdownBroker(c.Broker, c.logger)
	if c.ListenStore != nil {
		c.ListenStore.Close()
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Error closing database")
		}
	}
}
