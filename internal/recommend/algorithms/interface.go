// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package algorithms

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/tomtom215/cadence/internal/recommend"
)

// BaseAlgorithm provides common functionality for all algorithms.
type BaseAlgorithm struct {
	name          string
	trained       bool
	version       int
	lastTrainedAt time.Time
	mu            sync.RWMutex
}

// NewBaseAlgorithm creates a new base algorithm with the given name.
func NewBaseAlgorithm(name string) BaseAlgorithm {
	return BaseAlgorithm{
		name: name,
	}
}

// Name returns the algorithm identifier.
func (b *BaseAlgorithm) Name() string {
	return b.name
}

// IsTrained returns whether the model holds trained factors.
func (b *BaseAlgorithm) IsTrained() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.trained
}

// Version returns the model version.
func (b *BaseAlgorithm) Version() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// LastTrainedAt returns when the model was last trained.
func (b *BaseAlgorithm) LastTrainedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastTrainedAt
}

// markRestored sets the trained state of a model loaded from storage.
// Must be called while holding the write lock.
func (b *BaseAlgorithm) markRestored(version int, trainedAt time.Time) {
	b.trained = true
	b.version = version
	b.lastTrainedAt = trainedAt
}

func (b *BaseAlgorithm) acquireWriteLock() {
	b.mu.Lock()
}

func (b *BaseAlgorithm) releaseWriteLock() {
	b.mu.Unlock()
}

func (b *BaseAlgorithm) acquirePredictLock() {
	b.mu.RLock()
}

func (b *BaseAlgorithm) releasePredictLock() {
	b.mu.RUnlock()
}

// dot returns the inner product of two equal-length vectors.
func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// compareItemScores orders by score descending, then item id ascending.
func compareItemScores(a, b recommend.ItemScore) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return cmp.Compare(a.ItemID, b.ItemID)
}

// topN sorts scores best first and keeps at most n.
func topN(scores []recommend.ItemScore, n int) []recommend.ItemScore {
	slices.SortFunc(scores, compareItemScores)
	if len(scores) > n {
		scores = scores[:n]
	}
	return scores
}

// cancelCheckInterval is how many rows are scored between context checks.
const cancelCheckInterval = 4096

// ContextCancelled checks if the context has been canceled.
func ContextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
