// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"slices"
)

// Rank partitions predictions by user, orders each partition with
// ComparePredictions and keeps the first limit rows with ranks 1..n.
// Output is grouped by ascending user id, then rank. The input is not
// modified.
func Rank(preds []ScoredPrediction, limit int) []RankedPrediction {
	if limit < 1 || len(preds) == 0 {
		return nil
	}

	partitions := make(map[int64][]ScoredPrediction)
	users := make([]int64, 0)
	for _, p := range preds {
		if _, ok := partitions[p.UserID]; !ok {
			users = append(users, p.UserID)
		}
		partitions[p.UserID] = append(partitions[p.UserID], p)
	}
	slices.Sort(users)

	out := make([]RankedPrediction, 0, min(len(preds), len(users)*limit))
	for _, u := range users {
		part := partitions[u]
		slices.SortStableFunc(part, ComparePredictions)
		if len(part) > limit {
			part = part[:limit]
		}
		for i, p := range part {
			out = append(out, RankedPrediction{ScoredPrediction: p, Rank: i + 1})
		}
	}
	return out
}
