// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/eventprocessor"
)

// initBroker starts the embedded NATS server when delivery goes through
// NATS and NATS_EMBEDDED is set. It returns the client URL to publish to;
// nil and "" mean an external server at cfg.NATS.URL is used.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initBroker(cfg *config.Config, logger zerolog.Logger) (*eventprocessor.EmbeddedServer, string, error) {
	if cfg.Delivery.Transport != config.TransportNATS {
		return nil, "", nil
	}
	if !cfg.NATS.EmbeddedServer {
		logger.Info().Str("url", cfg.NATS.URL).Msg("Using external NATS server")
		return nil, "", nil
	}

	serverCfg, err := eventprocessor.ServerConfigFrom(&cfg.NATS)
	if err != nil {
		return nil, "", fmt.Errorf("embedded NATS config: %w", err)
	}

	broker, err := eventprocessor.NewEmbeddedServer(&serverCfg)
	if err != nil {
		return nil, "", fmt.Errorf("start embedded NATS server: %w", err)
	}

	logger.Info().
		Str("url", broker.ClientURL()).
		Str("store_dir", serverCfg.StoreDir).
		Bool("jetstream", broker.JetStreamEnabled()).
		Msg("Embedded NATS server started")
	return broker, broker.ClientURL(), nil
}

// shutdownBroker stops a broker that was never handed to the supervisor.
func shutdownBroker(broker *eventprocessor.EmbeddedServer, logger zerolog.Logger) { //nolint:gocritic // hugeParam
	if broker == nil || !broker.IsRunning() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := broker.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Error shutting down embedded NATS server")
	}
}
