// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/cadence/internal/recommend"
)

// recordingSink records emitted messages and fails while err is set.
type recordingSink struct {
	mu    sync.Mutex
	msgs  []recommend.Message
	err   error
	calls int
}

func (s *recordingSink) Emit(_ context.Context, msg recommend.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingSink) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *recordingSink) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testUserMessage(user string) *recommend.UserMessage {
	at := time.Date(2024, 3, 5, 8, 15, 0, 0, time.UTC)
	return recommend.NewUserMessage(recommend.UserBundle{
		UserKey: user,
		Items: []recommend.EnrichedRecommendation{
			{
				ResolvedRecommendation: recommend.ResolvedRecommendation{UserKey: user, ItemKey: "rec-a", Score: 0.9},
				LatestListenedAt:       &at,
			},
			{
				ResolvedRecommendation: recommend.ResolvedRecommendation{UserKey: user, ItemKey: "rec-b", Score: 0.4, Order: 1},
			},
		},
	}, recommend.Provenance{ModelID: "als-1", ModelReference: "https://reports.example.org/als-1.html"})
}

func testDigest() *recommend.DigestMessage {
	return recommend.NewDigestMessage(recommend.RunDigest{
		ActiveUserCount:          3,
		UsersWithRecommendations: 2,
		TotalTime:                90 * time.Minute,
	})
}
