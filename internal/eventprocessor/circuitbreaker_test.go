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

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/cadence/internal/metrics"
)

func TestNewCircuitBreaker(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test-breaker"), zerolog.Nop())
	if cb == nil {
		t.Fatal("Expected non-nil circuit breaker")
	}
	if cb.Name() != "test-breaker" {
		t.Errorf("Expected name=test-breaker, got %s", cb.Name())
	}
	if state := CircuitBreakerState(cb); state != "closed" {
		t.Errorf("Expected initial state=closed, got %s", state)
	}
}

func TestBreakerSink_OpensAfterFailures(t *testing.T) {
	t.Parallel()

	name := "open-test"
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 2,
	}, zerolog.Nop())

	next := &recordingSink{err: errors.New("connection refused")}
	sink := NewBreakerSink(next, cb)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := sink.Emit(ctx, testDigest()); err == nil {
			t.Fatalf("attempt %d: expected transport error", i)
		}
	}
	if sink.State() != "open" {
		t.Fatalf("Expected state=open, got %s", sink.State())
	}

	err := sink.Emit(ctx, testDigest())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Expected ErrOpenState, got %v", err)
	}
	if next.callCount() != 2 {
		t.Errorf("open breaker reached the transport: %d calls", next.callCount())
	}

	if got := testutil.ToFloat64(metrics.CircuitBreakerTransitions.WithLabelValues(name, "closed", "open")); got != 1 {
		t.Errorf("transition metric = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues(name)); got != float64(gobreaker.StateOpen) {
		t.Errorf("state metric = %v, want %d", got, gobreaker.StateOpen)
	}
}

func TestBreakerSink_RecoversAfterTimeout(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "recover-test",
		MaxRequests:      1,
		Timeout:          20 * time.Millisecond,
		FailureThreshold: 1,
	}, zerolog.Nop())

	next := &recordingSink{err: errors.New("boom")}
	sink := NewBreakerSink(next, cb)
	ctx := context.Background()

	_ = sink.Emit(ctx, testDigest())
	if sink.State() != "open" {
		t.Fatalf("Expected state=open, got %s", sink.State())
	}

	next.setErr(nil)
	time.Sleep(40 * time.Millisecond)

	if err := sink.Emit(ctx, testDigest()); err != nil {
		t.Fatalf("half-open probe failed: %v", err)
	}
	if sink.State() != "closed" {
		t.Errorf("Expected state=closed after successful probe, got %s", sink.State())
	}
}

func TestBreakerSink_ContextErrorsDoNotTrip(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "ctx-test",
		MaxRequests:      1,
		Timeout:          time.Minute,
		FailureThreshold: 1,
	}, zerolog.Nop())

	next := &recordingSink{err: context.Canceled}
	sink := NewBreakerSink(next, cb)

	for i := 0; i < 3; i++ {
		if err := sink.Emit(context.Background(), testDigest()); !errors.Is(err, context.Canceled) {
			t.Fatalf("attempt %d: error = %v, want context.Canceled", i, err)
		}
	}
	if sink.State() != "closed" {
		t.Errorf("Expected state=closed, got %s", sink.State())
	}
}
