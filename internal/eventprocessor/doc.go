// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package eventprocessor delivers recommendation messages downstream.
//
// Three transports implement recommend.Sink:
//
//   - nats: WatermillSink over a Watermill NATS JetStream Publisher. Each
//     message type gets its own subject, <prefix>.<type>, captured by a
//     single stream created by StreamInitializer. An EmbeddedServer can
//     host JetStream in-process.
//   - redis: RedisSink appends entries to a Redis stream with XADD.
//   - log: LogSink writes messages to the log, for dry runs.
//
// # Message Identity
//
// Every message carries a deterministic id derived from the run id (the
// context correlation id), the message type and its routing key. JetStream
// drops duplicates within the stream's duplicate window, so re-emitting a
// run after a partial failure does not duplicate the user messages that
// were already accepted.
//
// # Resilience
//
// Wrap decorates a sink with:
//   - BreakerSink: a sony/gobreaker circuit breaker that fails fast while
//     the transport is down
//   - RateLimitedSink: an x/time/rate token bucket pacing publishes
//
// Both preserve message order; a failed Emit stops the run's emission.
//
// # Usage
//
//	delivery, err := eventprocessor.NewDelivery(ctx, cfg, natsURL, logger)
//	if err != nil {
//	    return err
//	}
//	defer delivery.Close()
//
//	engine, err := recommend.NewEngine(engineCfg, recommend.Dependencies{
//	    Sink: delivery.Sink,
//	    // ...
//	}, logger)
package eventprocessor
