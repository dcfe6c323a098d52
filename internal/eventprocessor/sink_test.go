// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/recommend"
)

func newGoChannel(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	pubsub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubsub.Close() })
	return pubsub
}

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestWatermillSink_Emit(t *testing.T) {
	t.Parallel()

	pubsub := newGoChannel(t)
	sink, err := NewWatermillSink(pubsub, "recs-test", "gochannel")
	if err != nil {
		t.Fatalf("NewWatermillSink() error = %v", err)
	}

	ctx := logging.ContextWithCorrelationID(context.Background(), "run-42")
	msgs := []recommend.Message{testUserMessage("alice"), testUserMessage("bob"), testDigest()}
	if _, err := recommend.Emit(ctx, sink, msgs); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	users, err := pubsub.Subscribe(context.Background(), "recs-test.recommendations")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	digests, err := pubsub.Subscribe(context.Background(), "recs-test.digest")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	for _, want := range []string{"alice", "bob"} {
		got := receive(t, users)
		if got.Metadata.Get(MetadataRoutingKey) != want {
			t.Errorf("routing key = %q, want %q", got.Metadata.Get(MetadataRoutingKey), want)
		}
		if got.Metadata.Get(MetadataRunID) != "run-42" {
			t.Errorf("run id = %q, want run-42", got.Metadata.Get(MetadataRunID))
		}
		if got.UUID != MessageID("run-42", testUserMessage(want)) {
			t.Errorf("message id %s is not the deterministic id", got.UUID)
		}
		decoded, err := DeserializeMessage(got.Payload)
		if err != nil {
			t.Fatalf("DeserializeMessage() error = %v", err)
		}
		if decoded.RoutingKey() != want {
			t.Errorf("payload user = %q, want %q", decoded.RoutingKey(), want)
		}
	}

	digest := receive(t, digests)
	if digest.Metadata.Get(MetadataType) != recommend.MessageTypeDigest {
		t.Errorf("type = %q, want digest", digest.Metadata.Get(MetadataType))
	}

	if got := testutil.ToFloat64(metrics.MessagesPublished.WithLabelValues("gochannel", recommend.MessageTypeRecommendations)); got != 2 {
		t.Errorf("published metric = %v, want 2", got)
	}
}

type failingPublisher struct{}

func (failingPublisher) Publish(string, ...*message.Message) error {
	return errors.New("nats: no responders")
}

func (failingPublisher) Close() error { return nil }

func TestWatermillSink_PublishError(t *testing.T) {
	t.Parallel()

	sink, err := NewWatermillSink(failingPublisher{}, "recs", "failing")
	if err != nil {
		t.Fatalf("NewWatermillSink() error = %v", err)
	}
	if err := sink.Emit(context.Background(), testDigest()); err == nil {
		t.Fatal("expected publish error")
	}
	if got := testutil.ToFloat64(metrics.PublishErrors.WithLabelValues("failing")); got != 1 {
		t.Errorf("publish error metric = %v, want 1", got)
	}
}

func TestNewWatermillSink_Invalid(t *testing.T) {
	t.Parallel()

	if _, err := NewWatermillSink(nil, "recs", "nats"); !errors.Is(err, ErrNilPublisher) {
		t.Errorf("nil publisher error = %v, want ErrNilPublisher", err)
	}
	if _, err := NewWatermillSink(failingPublisher{}, "", "nats"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("empty prefix error = %v, want ErrInvalidConfig", err)
	}
}

func TestMessageID(t *testing.T) {
	t.Parallel()

	alice := testUserMessage("alice")
	if MessageID("run-1", alice) != MessageID("run-1", testUserMessage("alice")) {
		t.Error("message id is not stable within a run")
	}
	if MessageID("run-1", alice) == MessageID("run-2", alice) {
		t.Error("message id does not depend on the run")
	}
	if MessageID("run-1", alice) == MessageID("run-1", testUserMessage("bob")) {
		t.Error("message id does not depend on the routing key")
	}
	if MessageID("", alice) == MessageID("", alice) {
		t.Error("message ids without a run should be random")
	}
}
