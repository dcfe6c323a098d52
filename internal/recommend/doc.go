// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package recommend implements the batch ranking and enrichment pipeline that
// turns collaborative-filtering predictions into per-user recommendation
// messages.
//
// # Pipeline
//
// A run flows strictly forward through these stages:
//
//	candidate set -> RunModel -> Rank -> Resolve -> Enrich -> Aggregate -> BuildMessages
//
//   - RunModel applies a trained model to candidate pairs (or asks it for the
//     top-N items of each active user) and yields ScoredPrediction rows
//   - Rank keeps the best limit predictions per user with contiguous ranks
//   - Resolve translates surrogate ids to natural keys through a Directory and
//     collapses collisions by keeping the maximum score
//   - Enrich left-joins the most recent prior listen of each item
//   - Aggregate builds one ordered UserBundle per user
//   - BuildMessages produces one message per bundle and a trailing digest
//
// # Ordering
//
// Both sort sites (Rank and Aggregate) use compareScored: descending score,
// then ascending arrival order, then the item identity. Equal inputs always
// produce byte-identical output.
//
// # Resources
//
// Large source datasets are wrapped in Dataset handles tracked by Resources.
// A dataset is loaded and counted by Materialize and dropped by Release; the
// engine releases every remaining dataset on all exit paths.
//
// # Usage
//
//	engine, err := recommend.NewEngine(recommend.DefaultConfig(), recommend.Dependencies{
//	    Sources: db,
//	    History: db,
//	    Models:  store,
//	    Sink:    sink,
//	}, logger)
//
//	result, err := engine.Run(ctx, recommend.RunOptions{Limit: 100})
//
// # Thread Safety
//
// Engine allows one run at a time. A second Run while one is in flight
// returns ErrRunInProgress. The stage functions are pure and safe for
// concurrent use on distinct inputs.
package recommend
