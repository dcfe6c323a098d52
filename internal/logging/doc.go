// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package logging provides centralized zerolog-based structured logging for Cadence.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("mode", "user_subset").Msg("Recommendation run starting")
//	logging.Error().Err(err).Msg("Run failed")
//
// # Context-Aware Logging
//
// A recommendation run stores its run id as the correlation id, so every
// line logged through Ctx during the run carries it:
//
//	ctx = logging.ContextWithCorrelationID(ctx, runID)
//	logging.Ctx(ctx).Info().Msg("Models loaded")
//
// # Adapters
//
// NewSlogLogger bridges to log/slog for sutureslog, and NewWatermillAdapter
// implements watermill.LoggerAdapter for the NATS publisher. Both write to
// the same zerolog stream.
//
// # Output Formats
//
// JSON Format (Production):
//
//	{"level":"info","time":"2026-01-03T10:30:00Z","message":"Run finished","run_id":"4f1c..."}
//
// Console Format (Development):
//
//	10:30:00 INF Run finished run_id=4f1c...
//
// # Testing
//
// Create test loggers that capture output:
//
//	var buf bytes.Buffer
//	logger := logging.NewTestLogger(&buf)
package logging
