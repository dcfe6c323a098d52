// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package algorithms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/cadence/internal/recommend"
)

// ALSConfig holds the hyperparameters a model was trained with. Scoring
// only needs NumFactors; the rest is carried through State.
type ALSConfig struct {
	// NumFactors is the dimension of the latent factor vectors.
	NumFactors int

	// Regularization is the L2 regularization parameter.
	Regularization float64

	// Alpha scales the confidence of implicit feedback: c = 1 + alpha * r.
	Alpha float64
}

// DefaultALSConfig returns default ALS configuration.
func DefaultALSConfig() ALSConfig {
	return ALSConfig{
		NumFactors:     64,
		Regularization: 0.01,
		Alpha:          40.0,
	}
}

// ErrInvalidState is returned by RestoreALS for inconsistent factor data.
var ErrInvalidState = errors.New("invalid ALS state")

// ALS is an implicit-feedback matrix factorization model. The score of a
// (user, recording) pair is the inner product of their factor vectors.
type ALS struct {
	BaseAlgorithm
	config ALSConfig

	// X is the user factor matrix (numUsers x numFactors)
	X [][]float64

	// Y is the item factor matrix (numItems x numFactors)
	Y [][]float64

	userIndex   map[int64]int
	itemIndex   map[int64]int
	indexToUser []int64
	indexToItem []int64
}

// NewALS creates an untrained ALS model with the given configuration.
func NewALS(cfg ALSConfig) *ALS {
	if cfg.NumFactors <= 0 {
		cfg.NumFactors = 64
	}
	if cfg.Regularization <= 0 {
		cfg.Regularization = 0.01
	}
	if cfg.Alpha <= 0 {
		cfg.Alpha = 40.0
	}

	return &ALS{
		BaseAlgorithm: NewBaseAlgorithm("als"),
		config:        cfg,
		userIndex:     make(map[int64]int),
		itemIndex:     make(map[int64]int),
	}
}

// ScorePairs implements recommend.PairScorer. Pairs whose user or item has
// no factors are omitted; the rest keep input order.
func (a *ALS) ScorePairs(ctx context.Context, pairs []recommend.CandidatePair) ([]recommend.ScoredPrediction, error) {
	a.acquirePredictLock()
	defer a.releasePredictLock()

	if !a.trained || len(a.X) == 0 || len(a.Y) == 0 {
		return nil, nil
	}

	out := make([]recommend.ScoredPrediction, 0, len(pairs))
	for n, p := range pairs {
		if n%cancelCheckInterval == 0 && ContextCancelled(ctx) {
			return nil, ctx.Err()
		}
		ui, ok := a.userIndex[p.UserID]
		if !ok {
			continue
		}
		ii, ok := a.itemIndex[p.ItemID]
		if !ok {
			continue
		}
		out = append(out, recommend.ScoredPrediction{
			UserID: p.UserID,
			ItemID: p.ItemID,
			Score:  dot(a.X[ui], a.Y[ii]),
		})
	}
	return out, nil
}

// RecommendForUsers implements recommend.SubsetRecommender. Each known user
// gets its n best items over the whole catalog.
func (a *ALS) RecommendForUsers(ctx context.Context, userIDs []int64, n int) (map[int64][]recommend.ItemScore, error) {
	a.acquirePredictLock()
	defer a.releasePredictLock()

	out := make(map[int64][]recommend.ItemScore, len(userIDs))
	if !a.trained || len(a.X) == 0 || len(a.Y) == 0 || n <= 0 {
		return out, nil
	}

	for _, userID := range userIDs {
		if ContextCancelled(ctx) {
			return nil, ctx.Err()
		}
		ui, ok := a.userIndex[userID]
		if !ok {
			continue
		}
		if _, done := out[userID]; done {
			continue
		}

		userVec := a.X[ui]
		scores := make([]recommend.ItemScore, len(a.Y))
		for ii, itemVec := range a.Y {
			scores[ii] = recommend.ItemScore{ItemID: a.indexToItem[ii], Score: dot(userVec, itemVec)}
		}
		out[userID] = topN(scores, n)
	}
	return out, nil
}

// ALSState is the serializable form of a trained ALS model.
type ALSState struct {
	NumFactors     int
	Regularization float64
	Alpha          float64
	Version        int
	TrainedAt      time.Time

	// UserIDs[i] owns UserFactors[i]; ItemIDs[i] owns ItemFactors[i].
	UserIDs     []int64
	ItemIDs     []int64
	UserFactors [][]float64
	ItemFactors [][]float64
}

// State returns a deep copy of the model state.
func (a *ALS) State() ALSState {
	a.acquirePredictLock()
	defer a.releasePredictLock()

	return ALSState{
		NumFactors:     a.config.NumFactors,
		Regularization: a.config.Regularization,
		Alpha:          a.config.Alpha,
		Version:        a.version,
		TrainedAt:      a.lastTrainedAt,
		UserIDs:        append([]int64(nil), a.indexToUser...),
		ItemIDs:        append([]int64(nil), a.indexToItem...),
		UserFactors:    copyMatrix(a.X),
		ItemFactors:    copyMatrix(a.Y),
	}
}

// RestoreALS rebuilds a trained model from state.
func RestoreALS(state *ALSState) (*ALS, error) {
	if state.NumFactors <= 0 {
		return nil, fmt.Errorf("%w: %d factors", ErrInvalidState, state.NumFactors)
	}
	if len(state.UserIDs) != len(state.UserFactors) {
		return nil, fmt.Errorf("%w: %d user ids for %d user vectors", ErrInvalidState, len(state.UserIDs), len(state.UserFactors))
	}
	if len(state.ItemIDs) != len(state.ItemFactors) {
		return nil, fmt.Errorf("%w: %d item ids for %d item vectors", ErrInvalidState, len(state.ItemIDs), len(state.ItemFactors))
	}
	for _, m := range [][][]float64{state.UserFactors, state.ItemFactors} {
		for i, vec := range m {
			if len(vec) != state.NumFactors {
				return nil, fmt.Errorf("%w: vector %d has %d factors, want %d", ErrInvalidState, i, len(vec), state.NumFactors)
			}
		}
	}

	cfg := DefaultALSConfig()
	cfg.NumFactors = state.NumFactors
	if state.Regularization > 0 {
		cfg.Regularization = state.Regularization
	}
	if state.Alpha > 0 {
		cfg.Alpha = state.Alpha
	}

	a := NewALS(cfg)
	a.acquireWriteLock()
	defer a.releaseWriteLock()

	a.indexToUser = append([]int64(nil), state.UserIDs...)
	a.indexToItem = append([]int64(nil), state.ItemIDs...)
	for i, id := range a.indexToUser {
		if _, dup := a.userIndex[id]; dup {
			return nil, fmt.Errorf("%w: duplicate user id %d", ErrInvalidState, id)
		}
		a.userIndex[id] = i
	}
	for i, id := range a.indexToItem {
		if _, dup := a.itemIndex[id]; dup {
			return nil, fmt.Errorf("%w: duplicate item id %d", ErrInvalidState, id)
		}
		a.itemIndex[id] = i
	}
	a.X = copyMatrix(state.UserFactors)
	a.Y = copyMatrix(state.ItemFactors)
	a.markRestored(state.Version, state.TrainedAt)
	return a, nil
}

// UserCount returns the number of users with factors.
func (a *ALS) UserCount() int {
	a.acquirePredictLock()
	defer a.releasePredictLock()
	return len(a.indexToUser)
}

// ItemCount returns the number of items with factors.
func (a *ALS) ItemCount() int {
	a.acquirePredictLock()
	defer a.releasePredictLock()
	return len(a.indexToItem)
}

func copyMatrix(m [][]float64) [][]float64 {
	if m == nil {
		return nil
	}
	out := make([][]float64, len(m))
	for i := range m {
		out[i] = append([]float64(nil), m[i]...)
	}
	return out
}

// Ensure interface compliance.
var (
	_ recommend.Model             = (*ALS)(nil)
	_ recommend.PairScorer        = (*ALS)(nil)
	_ recommend.SubsetRecommender = (*ALS)(nil)
)
