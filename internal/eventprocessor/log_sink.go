// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/recommend"
)

// LogSink writes messages to the log. It is used for dry runs and local
// development.
type LogSink struct {
	logger     zerolog.Logger
	serializer *Serializer
}

// NewLogSink creates a log sink.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{
		logger:     logger.With().Str("component", "log_sink").Logger(),
		serializer: NewSerializer(),
	}
}

// Emit implements recommend.Sink.
func (s *LogSink) Emit(_ context.Context, msg recommend.Message) error {
	data, err := s.serializer.Marshal(msg)
	if err != nil {
		return err
	}

	event := s.logger.Info().
		Str("type", msg.MessageType()).
		Str("routing_key", msg.RoutingKey())
	if um, ok := msg.(*recommend.UserMessage); ok {
		event = event.Int("items", len(um.Recommendations.Items))
	}
	event.RawJSON("message", data).Msg("Recommendation message")

	metrics.RecordPublish(config.TransportLog, msg.MessageType(), nil)
	return nil
}
