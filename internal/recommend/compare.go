// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"cmp"
	"strings"
)

// compareScored is the ordering shared by every sort site: higher score
// first, then earlier arrival. It returns 0 only for equal score and order.
func compareScored(aScore float64, aOrder int, bScore float64, bOrder int) int {
	switch {
	case aScore > bScore:
		return -1
	case aScore < bScore:
		return 1
	}
	return cmp.Compare(aOrder, bOrder)
}

// ComparePredictions orders predictions within a user partition.
// Ties on score and arrival fall back to the item id.
func ComparePredictions(a, b ScoredPrediction) int {
	if c := compareScored(a.Score, a.Seq, b.Score, b.Seq); c != 0 {
		return c
	}
	return cmp.Compare(a.ItemID, b.ItemID)
}

// CompareRecommendations orders the items of a user bundle.
// Ties on score and arrival fall back to the item key.
func CompareRecommendations(a, b ResolvedRecommendation) int {
	if c := compareScored(a.Score, a.Order, b.Score, b.Order); c != 0 {
		return c
	}
	return strings.Compare(a.ItemKey, b.ItemKey)
}
