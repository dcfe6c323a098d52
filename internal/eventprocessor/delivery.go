// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/recommend"
)

// Delivery is the assembled output path of the engine: a transport sink
// wrapped in pacing and circuit breaking.
type Delivery struct {
	Sink      recommend.Sink
	Transport string

	closers []func() error
}

// Close releases the transport.
func (d *Delivery) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewDelivery builds the configured transport. natsURL overrides
// cfg.NATS.URL when non-empty, for the embedded server.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewDelivery(ctx context.Context, cfg *config.Config, natsURL string, logger zerolog.Logger) (*Delivery, error) {
	d := &Delivery{Transport: cfg.Delivery.Transport}
	logger = logger.With().Str("component", "delivery").Str("transport", d.Transport).Logger()

	var base recommend.Sink
	switch cfg.Delivery.Transport {
	case config.TransportNATS:
		if natsURL == "" {
			natsURL = cfg.NATS.URL
		}
		streamCfg := StreamConfigFrom(&cfg.NATS, &cfg.Delivery)
		if err := EnsureStreamAt(ctx, natsURL, &streamCfg); err != nil {
			return nil, err
		}
		pub, err := NewPublisher(DefaultPublisherConfig(natsURL), logging.NewWatermillAdapter(logger))
		if err != nil {
			return nil, err
		}
		sink, err := NewWatermillSink(pub, cfg.Delivery.SubjectPrefix, config.TransportNATS)
		if err != nil {
			pub.Close() //nolint:errcheck
			return nil, err
		}
		d.closers = append(d.closers, sink.Close)
		base = sink
		logger.Info().Str("url", natsURL).Str("stream", streamCfg.Name).Msg("NATS delivery ready")

	case config.TransportRedis:
		client, err := NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, err
		}
		sink, err := NewRedisSink(client, &cfg.Redis)
		if err != nil {
			client.Close() //nolint:errcheck
			return nil, err
		}
		d.closers = append(d.closers, sink.Close)
		base = sink
		logger.Info().Str("addr", cfg.Redis.Addr).Str("stream", cfg.Redis.Stream).Msg("Redis delivery ready")

	case config.TransportLog:
		base = NewLogSink(logger)

	default:
		return nil, fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, cfg.Delivery.Transport)
	}

	d.Sink = Wrap(base, &cfg.Delivery, logger)
	return d, nil
}

// Wrap applies the configured circuit breaker and rate limit to base. The
// breaker sits inside the limiter so waiting for a token never counts as
// a failure.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Wrap(base recommend.Sink, delivery *config.DeliveryConfig, logger zerolog.Logger) recommend.Sink {
	sink := base
	if delivery.BreakerEnabled {
		cb := NewCircuitBreaker(CircuitBreakerConfigFrom("delivery-"+delivery.Transport, delivery), logger)
		sink = NewBreakerSink(sink, cb)
	}
	if delivery.RatePerSecond > 0 {
		sink = NewRateLimitedSink(sink, delivery.RatePerSecond, delivery.Burst)
	}
	return sink
}
