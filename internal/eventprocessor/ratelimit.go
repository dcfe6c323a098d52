// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/tomtom215/cadence/internal/recommend"
)

// RateLimitedSink paces deliveries with a token bucket. Emit blocks until a
// token is available or ctx is done, so message order is preserved.
type RateLimitedSink struct {
	next    recommend.Sink
	limiter *rate.Limiter
}

// NewRateLimitedSink allows perSecond messages per second with the given
// burst. A burst below one is raised to one.
func NewRateLimitedSink(next recommend.Sink, perSecond float64, burst int) *RateLimitedSink {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedSink{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Emit implements recommend.Sink.
func (s *RateLimitedSink) Emit(ctx context.Context, msg recommend.Message) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return s.next.Emit(ctx, msg)
}
