// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"testing"
	"time"
)

func TestEnrich_AttachesLatestListen(t *testing.T) {
	t.Parallel()

	listened := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recs := []ResolvedRecommendation{
		{UserKey: "u1", ItemKey: "iA", Score: 3.0},
		{UserKey: "u1", ItemKey: "iB", Score: 2.0},
	}
	history := []ListenRecord{{UserKey: "u1", ItemKey: "iA", ListenedAt: listened}}

	got := Enrich(recs, history)

	if len(got) != 2 {
		t.Fatalf("len(Enrich()) = %d, want 2", len(got))
	}
	if got[0].LatestListenedAt == nil {
		t.Fatal("iA: LatestListenedAt = nil, want timestamp")
	}
	if s := FormatListenedAt(*got[0].LatestListenedAt); s != "2024-01-01T00:00:00.000Z" {
		t.Errorf("iA: formatted = %q, want 2024-01-01T00:00:00.000Z", s)
	}
	if got[1].LatestListenedAt != nil {
		t.Errorf("iB: LatestListenedAt = %v, want nil", got[1].LatestListenedAt)
	}
	if got[1].Score != 2.0 {
		t.Errorf("iB: Score = %v, want 2.0", got[1].Score)
	}
}

func TestEnrich_DeduplicatesHistoryToMostRecent(t *testing.T) {
	t.Parallel()

	older := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 2, 3, 4, 5, 6, 789_000_000, time.UTC)
	recs := []ResolvedRecommendation{{UserKey: "u", ItemKey: "i", Score: 1}}
	history := []ListenRecord{
		{UserKey: "u", ItemKey: "i", ListenedAt: older},
		{UserKey: "u", ItemKey: "i", ListenedAt: newer},
		{UserKey: "u", ItemKey: "i", ListenedAt: older},
	}

	got := Enrich(recs, history)

	if len(got) != 1 {
		t.Fatalf("len(Enrich()) = %d, want 1", len(got))
	}
	if !got[0].LatestListenedAt.Equal(newer) {
		t.Errorf("LatestListenedAt = %v, want %v", got[0].LatestListenedAt, newer)
	}
}

func TestEnrich_PreservesCardinality(t *testing.T) {
	t.Parallel()

	ts := time.Unix(1700000000, 0)
	tests := []struct {
		name    string
		recs    []ResolvedRecommendation
		history []ListenRecord
	}{
		{name: "empty input", recs: nil, history: []ListenRecord{{UserKey: "u", ItemKey: "i", ListenedAt: ts}}},
		{name: "no history", recs: []ResolvedRecommendation{{UserKey: "u", ItemKey: "i"}}},
		{
			name: "history for other users",
			recs: []ResolvedRecommendation{{UserKey: "u", ItemKey: "i"}, {UserKey: "v", ItemKey: "i"}},
			history: []ListenRecord{
				{UserKey: "w", ItemKey: "i", ListenedAt: ts},
				{UserKey: "u", ItemKey: "i", ListenedAt: ts},
				{UserKey: "u", ItemKey: "i", ListenedAt: ts.Add(time.Hour)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Enrich(tt.recs, tt.history); len(got) != len(tt.recs) {
				t.Errorf("len(Enrich()) = %d, want %d", len(got), len(tt.recs))
			}
		})
	}
}

func TestFormatListenedAt(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+2", 2*60*60)
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "2024-01-01T00:00:00.000Z"},
		{time.Date(2024, 1, 1, 2, 0, 0, 0, loc), "2024-01-01T00:00:00.000Z"},
		{time.Date(2021, 12, 31, 23, 59, 59, 999_999_999, time.UTC), "2021-12-31T23:59:59.999Z"},
	}

	for _, tt := range tests {
		if got := FormatListenedAt(tt.in); got != tt.want {
			t.Errorf("FormatListenedAt(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
