// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"time"
)

// ListenedAtLayout is the boundary format of listen timestamps:
// millisecond precision with a literal UTC designator.
const ListenedAtLayout = "2006-01-02T15:04:05.000Z"

// FormatListenedAt renders t in ListenedAtLayout after converting to UTC.
func FormatListenedAt(t time.Time) string {
	return t.UTC().Format(ListenedAtLayout)
}

// latestListens reduces history to the most recent listen per
// (user, item) pair.
func latestListens(history []ListenRecord) map[pairKey]time.Time {
	latest := make(map[pairKey]time.Time, len(history))
	for _, h := range history {
		k := pairKey{user: h.UserKey, item: h.ItemKey}
		if prev, ok := latest[k]; !ok || h.ListenedAt.After(prev) {
			latest[k] = h.ListenedAt
		}
	}
	return latest
}

// Enrich left-joins each recommendation with its most recent prior listen.
// The output has exactly one row per input row, in input order.
func Enrich(recs []ResolvedRecommendation, history []ListenRecord) []EnrichedRecommendation {
	latest := latestListens(history)

	out := make([]EnrichedRecommendation, len(recs))
	for i, r := range recs {
		out[i].ResolvedRecommendation = r
		if ts, ok := latest[pairKey{user: r.UserKey, item: r.ItemKey}]; ok {
			utc := ts.UTC()
			out[i].LatestListenedAt = &utc
		}
	}
	return out
}
