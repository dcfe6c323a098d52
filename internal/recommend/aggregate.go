// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"slices"
)

// Aggregate groups recommendations by user into bundles ordered with
// CompareRecommendations. Bundles appear in order of each user's first row.
// A positive limit caps every bundle, which matters only when several
// internal users share one external key.
func Aggregate(recs []EnrichedRecommendation, limit int) []UserBundle {
	index := make(map[string]int)
	bundles := make([]UserBundle, 0)

	for _, r := range recs {
		i, ok := index[r.UserKey]
		if !ok {
			i = len(bundles)
			index[r.UserKey] = i
			bundles = append(bundles, UserBundle{UserKey: r.UserKey})
		}
		bundles[i].Items = append(bundles[i].Items, r)
	}

	for i := range bundles {
		slices.SortStableFunc(bundles[i].Items, func(a, b EnrichedRecommendation) int {
			return CompareRecommendations(a.ResolvedRecommendation, b.ResolvedRecommendation)
		})
		if limit > 0 && len(bundles[i].Items) > limit {
			bundles[i].Items = bundles[i].Items[:limit]
		}
	}
	return bundles
}
