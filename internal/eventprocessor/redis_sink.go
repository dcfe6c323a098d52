// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/recommend"
)

// Redis stream entry fields.
const (
	FieldID         = "id"
	FieldType       = "type"
	FieldRoutingKey = "routing_key"
	FieldRunID      = "run_id"
	FieldPayload    = "payload"
)

// streamAdder is the subset of the Redis client used by RedisSink.
type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisSink appends messages to a Redis stream. Entries keep the emit
// order; the stream is trimmed approximately to maxLen.
type RedisSink struct {
	client     streamAdder
	closer     func() error
	stream     string
	maxLen     int64
	serializer *Serializer
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewRedisSink creates a sink writing to cfg.Stream through client.
func NewRedisSink(client *redis.Client, cfg *config.RedisConfig) (*RedisSink, error) {
	if client == nil {
		return nil, ErrNilPublisher
	}
	s, err := newRedisSink(client, cfg)
	if err != nil {
		return nil, err
	}
	s.closer = client.Close
	return s, nil
}

func newRedisSink(client streamAdder, cfg *config.RedisConfig) (*RedisSink, error) {
	if cfg.Stream == "" {
		return nil, fmt.Errorf("%w: redis stream required", ErrInvalidConfig)
	}
	return &RedisSink{
		client:     client,
		stream:     cfg.Stream,
		maxLen:     cfg.MaxLen,
		serializer: NewSerializer(),
	}, nil
}

// Emit implements recommend.Sink.
func (s *RedisSink) Emit(ctx context.Context, msg recommend.Message) error {
	data, err := s.serializer.Marshal(msg)
	if err != nil {
		return err
	}

	runID := logging.CorrelationIDFromContext(ctx)
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			FieldID:         MessageID(runID, msg),
			FieldType:       msg.MessageType(),
			FieldRoutingKey: msg.RoutingKey(),
			FieldRunID:      runID,
			FieldPayload:    data,
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	err = s.client.XAdd(ctx, args).Err()
	metrics.RecordPublish(config.TransportRedis, msg.MessageType(), err)
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
