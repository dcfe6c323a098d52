// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"context"
	"fmt"
	"math"
)

// Model is a trained collaborative-filtering model. It must implement
// PairScorer, SubsetRecommender, or both.
type Model interface {
	// Name returns the model family, for logging.
	Name() string
}

// PairScorer scores arbitrary candidate pairs. Pairs the model has no basis
// to score are omitted from the result. Results follow input order.
type PairScorer interface {
	ScorePairs(ctx context.Context, pairs []CandidatePair) ([]ScoredPrediction, error)
}

// SubsetRecommender returns the top n items of each requested user, best
// first. Users the model does not know are absent from the result.
type SubsetRecommender interface {
	RecommendForUsers(ctx context.Context, userIDs []int64, n int) (map[int64][]ItemScore, error)
}

// ModelInput is the input of RunModel.
type ModelInput struct {
	Mode Mode

	// Candidates is scored in ModeCandidateSet.
	Candidates []CandidatePair

	// Users is queried in ModeUserSubset, in this order.
	Users []int64

	// PerUser is the number of items requested per user in ModeUserSubset.
	PerUser int
}

// RunModel applies model to the input and returns the scored predictions
// with Seq assigned in arrival order. Non-finite scores are treated as
// unscorable and dropped. An empty result is ErrRecommendationsNotGenerated.
func RunModel(ctx context.Context, model Model, in ModelInput) ([]ScoredPrediction, error) {
	var (
		preds []ScoredPrediction
		err   error
	)

	switch in.Mode {
	case ModeCandidateSet:
		scorer, ok := model.(PairScorer)
		if !ok {
			return nil, fmt.Errorf("%s: %w: %s", model.Name(), ErrUnsupportedModel, in.Mode)
		}
		preds, err = scorer.ScorePairs(ctx, in.Candidates)
		if err != nil {
			return nil, fmt.Errorf("score candidate pairs: %w", err)
		}

	case ModeUserSubset:
		rec, ok := model.(SubsetRecommender)
		if !ok {
			return nil, fmt.Errorf("%s: %w: %s", model.Name(), ErrUnsupportedModel, in.Mode)
		}
		var perUser map[int64][]ItemScore
		perUser, err = rec.RecommendForUsers(ctx, in.Users, in.PerUser)
		if err != nil {
			return nil, fmt.Errorf("recommend for user subset: %w", err)
		}
		preds = explode(in.Users, perUser)

	default:
		return nil, fmt.Errorf("unknown mode %q", in.Mode)
	}

	out := make([]ScoredPrediction, 0, len(preds))
	for _, p := range preds {
		if math.IsNaN(p.Score) || math.IsInf(p.Score, 0) {
			continue
		}
		p.Seq = len(out)
		out = append(out, p)
	}

	if len(out) == 0 {
		return nil, ErrRecommendationsNotGenerated
	}
	return out, nil
}

// explode flattens per-user lists into rows, users in the given order.
func explode(users []int64, perUser map[int64][]ItemScore) []ScoredPrediction {
	total := 0
	for _, items := range perUser {
		total += len(items)
	}

	out := make([]ScoredPrediction, 0, total)
	for _, u := range users {
		for _, it := range perUser[u] {
			out = append(out, ScoredPrediction{UserID: u, ItemID: it.ItemID, Score: it.Score})
		}
	}
	return out
}
