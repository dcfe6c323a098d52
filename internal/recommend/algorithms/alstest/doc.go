// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package alstest builds ALS model fixtures for tests. Fit runs implicit
// feedback alternating least squares and returns an algorithms.ALSState;
// Train restores it as a scorable *algorithms.ALS.
//
//	model := alstest.Train(t, alstest.Config{NumFactors: 4}, []alstest.Interaction{
//	    {UserID: 1, ItemID: 10, Confidence: 1},
//	})
//
// Cadence only scores models trained elsewhere, so nothing outside tests
// imports this package.
package alstest
