// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"testing"
)

func TestComparePredictions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b ScoredPrediction
		want int
	}{
		{"higher score first", pred(1, 1, 2, 5), pred(1, 2, 1, 0), -1},
		{"lower score last", pred(1, 1, 1, 0), pred(1, 2, 2, 5), 1},
		{"equal score earlier arrival first", pred(1, 9, 1, 0), pred(1, 1, 1, 1), -1},
		{"equal score and arrival smaller item first", pred(1, 1, 1, 0), pred(1, 2, 1, 0), -1},
		{"identical", pred(1, 1, 1, 0), pred(1, 1, 1, 0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ComparePredictions(tt.a, tt.b); got != tt.want {
				t.Errorf("ComparePredictions() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCompareRecommendations(t *testing.T) {
	t.Parallel()

	rec := func(item string, score float64, order int) ResolvedRecommendation {
		return ResolvedRecommendation{UserKey: "u", ItemKey: item, Score: score, Order: order}
	}

	tests := []struct {
		name string
		a, b ResolvedRecommendation
		want int
	}{
		{"higher score first", rec("b", 3, 9), rec("a", 2, 0), -1},
		{"equal score earlier order first", rec("b", 2, 0), rec("a", 2, 1), -1},
		{"equal score and order key breaks tie", rec("a", 2, 0), rec("b", 2, 0), -1},
		{"identical", rec("a", 2, 0), rec("a", 2, 0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CompareRecommendations(tt.a, tt.b); got != tt.want {
				t.Errorf("CompareRecommendations() = %d, want %d", got, tt.want)
			}
		})
	}
}
