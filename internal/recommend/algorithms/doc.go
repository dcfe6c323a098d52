// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package algorithms implements the collaborative-filtering models scored by
// the recommendation engine.
//
// # ALS
//
// ALS is an implicit-feedback matrix factorization (Hu, Koren, Volinsky,
// 2008). A trained model holds one latent vector per user and per recording;
// the score of a (user, recording) pair is the inner product of the two.
//
// ALS satisfies both model capabilities used by recommend.RunModel:
//
//   - recommend.PairScorer scores candidate pairs. Pairs whose user or
//     recording has no factors are omitted, and results follow input order.
//   - recommend.SubsetRecommender returns the best N recordings of each
//     known user, ordered by score descending then recording id ascending.
//
// Scores are raw inner products. They are not normalized, so scores of
// different users are not comparable.
//
// # Persistence
//
// Models are trained outside Cadence. State and RestoreALS convert a model
// to and from ALSState, a plain struct the storage package encodes with gob.
// Package alstest fits small models for tests.
//
// # Usage Example
//
//	als, err := algorithms.RestoreALS(&state)
//	if err != nil {
//	    return err
//	}
//	preds, err := als.ScorePairs(ctx, pairs)
//
// # Thread Safety
//
// Restoring acquires an exclusive lock while scoring uses a shared lock, so a
// model may be scored from several goroutines.
package algorithms
