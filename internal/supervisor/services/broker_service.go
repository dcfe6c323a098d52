// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

// Broker is a running embedded message broker.
//
// Satisfied by *eventprocessor.EmbeddedServer.
type Broker interface {
	IsRunning() bool
	Shutdown(ctx context.Context) error
}

// BrokerService supervises an embedded broker that was started before the
// tree so delivery could connect to it. Serve watches the broker and shuts it
// down on cancellation. A broker that stops on its own cannot be restarted
// in place, so the service then exits with suture.ErrDoNotRestart.
type BrokerService struct {
	broker          Broker
	checkInterval   time.Duration
	shutdownTimeout time.Duration
	logger          zerolog.Logger
	name            string
}

// NewBrokerService creates a broker service with a 5s health check interval
// and a 10s shutdown timeout.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBrokerService(broker Broker, logger zerolog.Logger) *BrokerService {
	return &BrokerService{
		broker:          broker,
		checkInterval:   5 * time.Second,
		shutdownTimeout: 10 * time.Second,
		logger:          logger.With().Str("service", "broker").Logger(),
		name:            "nats-broker",
	}
}

// Serve implements suture.Service.
func (s *BrokerService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()

			if err := s.broker.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("broker shutdown failed: %w", err)
			}
			s.logger.Info().Msg("Embedded broker stopped")
			return ctx.Err()

		case <-ticker.C:
			if !s.broker.IsRunning() {
				s.logger.Error().Msg("Embedded broker stopped unexpectedly")
				return fmt.Errorf("embedded broker not running: %w", suture.ErrDoNotRestart)
			}
		}
	}
}

// String implements fmt.Stringer for suture logs.
func (s *BrokerService) String() string {
	return s.name
}
