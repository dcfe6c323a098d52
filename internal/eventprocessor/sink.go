// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/recommend"
)

// Message metadata keys.
const (
	MetadataType       = "type"
	MetadataRoutingKey = "routing_key"
	MetadataRunID      = "run_id"
)

// messageNamespace seeds deterministic message ids.
var messageNamespace = uuid.MustParse("6f1c3a52-6a0e-4d3b-9a51-6c1f0e5d2b7a")

// MessageID returns the transport message id of msg within a run. The id is
// stable for a (run, type, routing key) triple, so redelivering a run's
// messages within the duplicate window is dropped by JetStream. Without a
// run id a random id is returned.
func MessageID(runID string, msg recommend.Message) string {
	if runID == "" {
		return uuid.NewString()
	}
	name := runID + "/" + msg.MessageType() + "/" + msg.RoutingKey()
	return uuid.NewSHA1(messageNamespace, []byte(name)).String()
}

// Topic returns the subject for a message type under prefix.
func Topic(prefix, msgType string) string {
	return prefix + "." + msgType
}

// WatermillSink publishes messages through a Watermill publisher, one
// subject per message type. The run id is read from the context
// correlation id.
type WatermillSink struct {
	pub        message.Publisher
	prefix     string
	transport  string
	serializer *Serializer
}

// NewWatermillSink creates a sink over pub. transport labels metrics.
func NewWatermillSink(pub message.Publisher, prefix, transport string) (*WatermillSink, error) {
	if pub == nil {
		return nil, ErrNilPublisher
	}
	if prefix == "" {
		return nil, fmt.Errorf("%w: subject prefix required", ErrInvalidConfig)
	}
	return &WatermillSink{
		pub:        pub,
		prefix:     prefix,
		transport:  transport,
		serializer: NewSerializer(),
	}, nil
}

// Emit implements recommend.Sink.
func (s *WatermillSink) Emit(ctx context.Context, msg recommend.Message) error {
	data, err := s.serializer.Marshal(msg)
	if err != nil {
		return err
	}

	runID := logging.CorrelationIDFromContext(ctx)
	wm := message.NewMessage(MessageID(runID, msg), data)
	wm.SetContext(ctx)
	wm.Metadata.Set(MetadataType, msg.MessageType())
	wm.Metadata.Set(MetadataRoutingKey, msg.RoutingKey())
	if runID != "" {
		wm.Metadata.Set(MetadataRunID, runID)
	}

	err = s.pub.Publish(Topic(s.prefix, msg.MessageType()), wm)
	metrics.RecordPublish(s.transport, msg.MessageType(), err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", wm.UUID, err)
	}
	return nil
}

// Close closes the underlying publisher.
func (s *WatermillSink) Close() error {
	return s.pub.Close()
}
