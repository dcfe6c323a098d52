// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package algorithms_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/cadence/internal/recommend"
	"github.com/tomtom215/cadence/internal/recommend/algorithms"
	"github.com/tomtom215/cadence/internal/recommend/algorithms/alstest"
)

// clusteredInteractions returns two taste clusters: users 1-3 listen to
// recordings 100-101, users 4-5 to recordings 102-103.
func clusteredInteractions() []alstest.Interaction {
	return []alstest.Interaction{
		{UserID: 1, ItemID: 100, Confidence: 1.0},
		{UserID: 1, ItemID: 101, Confidence: 1.0},
		{UserID: 2, ItemID: 100, Confidence: 1.0},
		{UserID: 2, ItemID: 101, Confidence: 1.0},
		{UserID: 3, ItemID: 100, Confidence: 1.0},
		{UserID: 4, ItemID: 102, Confidence: 1.0},
		{UserID: 4, ItemID: 103, Confidence: 1.0},
		{UserID: 5, ItemID: 102, Confidence: 1.0},
		{UserID: 5, ItemID: 103, Confidence: 1.0},
	}
}

func trainedALS(t *testing.T) *algorithms.ALS {
	t.Helper()
	return alstest.Train(t, alstest.Config{NumFactors: 8, NumIterations: 10, NumWorkers: 2}, clusteredInteractions())
}

func TestNewALS(t *testing.T) {
	tests := []struct {
		name   string
		cfg    algorithms.ALSConfig
		verify func(t *testing.T, st algorithms.ALSState)
	}{
		{
			name: "applies defaults for zero config",
			cfg:  algorithms.ALSConfig{},
			verify: func(t *testing.T, st algorithms.ALSState) {
				if st.NumFactors != 64 || st.Regularization != 0.01 || st.Alpha != 40 {
					t.Errorf("state = %+v, want defaults", st)
				}
			},
		},
		{
			name: "uses provided config values",
			cfg:  algorithms.ALSConfig{NumFactors: 100, Regularization: 0.05, Alpha: 50.0},
			verify: func(t *testing.T, st algorithms.ALSState) {
				if st.NumFactors != 100 || st.Regularization != 0.05 || st.Alpha != 50 {
					t.Errorf("state = %+v", st)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := algorithms.NewALS(tt.cfg)
			if a.Name() != "als" {
				t.Errorf("Name() = %q, want %q", a.Name(), "als")
			}
			if a.IsTrained() {
				t.Error("new model reports trained")
			}
			tt.verify(t, a.State())
		})
	}
}

func TestALS_ScorePairs(t *testing.T) {
	a := trainedALS(t)

	pairs := []recommend.CandidatePair{
		{UserID: 1, ItemID: 101},
		{UserID: 1, ItemID: 999}, // unknown item
		{UserID: 999, ItemID: 100}, // unknown user
		{UserID: 1, ItemID: 103},
	}

	preds, err := a.ScorePairs(context.Background(), pairs)
	if err != nil {
		t.Fatalf("ScorePairs() error = %v", err)
	}
	if len(preds) != 2 {
		t.Fatalf("len(ScorePairs()) = %d, want 2", len(preds))
	}
	if preds[0].ItemID != 101 || preds[1].ItemID != 103 {
		t.Errorf("ScorePairs() items = %d, %d, want input order 101, 103", preds[0].ItemID, preds[1].ItemID)
	}
	if preds[0].Score <= preds[1].Score {
		t.Errorf("in-cluster score %f <= out-of-cluster score %f", preds[0].Score, preds[1].Score)
	}
}

func TestALS_RecommendForUsers(t *testing.T) {
	a := trainedALS(t)

	recs, err := a.RecommendForUsers(context.Background(), []int64{4, 999}, 2)
	if err != nil {
		t.Fatalf("RecommendForUsers() error = %v", err)
	}
	if _, ok := recs[999]; ok {
		t.Error("unknown user present in result")
	}

	items := recs[4]
	if len(items) != 2 {
		t.Fatalf("len(recs[4]) = %d, want 2", len(items))
	}
	for _, it := range items {
		if it.ItemID != 102 && it.ItemID != 103 {
			t.Errorf("user 4 recommended %d, want 102 or 103", it.ItemID)
		}
	}
	if items[0].Score < items[1].Score {
		t.Errorf("scores not descending: %+v", items)
	}
}

func TestALS_RecommendForUsersTieBreak(t *testing.T) {
	state := &algorithms.ALSState{
		NumFactors:  1,
		UserIDs:     []int64{1},
		ItemIDs:     []int64{30, 10, 20},
		UserFactors: [][]float64{{1}},
		ItemFactors: [][]float64{{0.5}, {0.5}, {0.9}},
	}
	a, err := algorithms.RestoreALS(state)
	if err != nil {
		t.Fatalf("RestoreALS() error = %v", err)
	}

	recs, err := a.RecommendForUsers(context.Background(), []int64{1}, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{20, 10, 30}
	for i, w := range want {
		if recs[1][i].ItemID != w {
			t.Errorf("recs[%d] = %d, want %d", i, recs[1][i].ItemID, w)
		}
	}
}

func TestALS_UntrainedReturnsNothing(t *testing.T) {
	a := algorithms.NewALS(algorithms.DefaultALSConfig())

	preds, err := a.ScorePairs(context.Background(), []recommend.CandidatePair{{UserID: 1, ItemID: 1}})
	if err != nil || len(preds) != 0 {
		t.Errorf("ScorePairs() = %v, %v, want empty", preds, err)
	}
	recs, err := a.RecommendForUsers(context.Background(), []int64{1}, 5)
	if err != nil || len(recs) != 0 {
		t.Errorf("RecommendForUsers() = %v, %v, want empty", recs, err)
	}
}

func TestALS_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trained := trainedALS(t)
	if _, err := trained.ScorePairs(ctx, []recommend.CandidatePair{{UserID: 1, ItemID: 100}}); !errors.Is(err, context.Canceled) {
		t.Errorf("ScorePairs() error = %v, want context.Canceled", err)
	}
	if _, err := trained.RecommendForUsers(ctx, []int64{1}, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("RecommendForUsers() error = %v, want context.Canceled", err)
	}
}

func TestALS_StateRoundTrip(t *testing.T) {
	a := trainedALS(t)
	state := a.State()

	restored, err := algorithms.RestoreALS(&state)
	if err != nil {
		t.Fatalf("RestoreALS() error = %v", err)
	}
	if restored.Version() != a.Version() || !restored.LastTrainedAt().Equal(a.LastTrainedAt()) {
		t.Errorf("restored version %d at %v, want %d at %v",
			restored.Version(), restored.LastTrainedAt(), a.Version(), a.LastTrainedAt())
	}

	pairs := []recommend.CandidatePair{{UserID: 2, ItemID: 100}, {UserID: 5, ItemID: 101}}
	want, _ := a.ScorePairs(context.Background(), pairs)
	got, _ := restored.ScorePairs(context.Background(), pairs)
	for i := range want {
		if got[i].Score != want[i].Score {
			t.Errorf("restored score %d = %f, want %f", i, got[i].Score, want[i].Score)
		}
	}

	// State is a copy.
	state.UserFactors[0][0] = 1e9
	if a.State().UserFactors[0][0] == 1e9 {
		t.Error("State() shares memory with the model")
	}
}

func TestRestoreALS_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		state algorithms.ALSState
	}{
		{"no factors", algorithms.ALSState{}},
		{"user length mismatch", algorithms.ALSState{NumFactors: 1, UserIDs: []int64{1}}},
		{"item length mismatch", algorithms.ALSState{NumFactors: 1, ItemFactors: [][]float64{{1}}}},
		{"wrong width", algorithms.ALSState{NumFactors: 2, UserIDs: []int64{1}, UserFactors: [][]float64{{1}}}},
		{"duplicate user", algorithms.ALSState{NumFactors: 1, UserIDs: []int64{1, 1}, UserFactors: [][]float64{{1}, {2}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := algorithms.RestoreALS(&tt.state); !errors.Is(err, algorithms.ErrInvalidState) {
				t.Errorf("RestoreALS() error = %v, want ErrInvalidState", err)
			}
		})
	}
}
