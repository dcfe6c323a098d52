// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

// ResolveStats counts what Resolve did with its input.
type ResolveStats struct {
	// Considered is the number of rows within the limit.
	Considered int `json:"considered"`

	// Dropped is the number of rows without a user or item mapping.
	Dropped int `json:"dropped"`

	// Collapsed is the number of rows merged into an earlier
	// (user, item) row.
	Collapsed int `json:"collapsed"`
}

type pairKey struct {
	user string
	item string
}

// Resolve translates ranked predictions with rank <= limit to external keys
// and collapses rows that land on the same (user, item) pair, keeping the
// maximum score. Rows with a missing mapping are dropped. Output follows the
// first appearance of each pair in ranked.
func Resolve(ranked []RankedPrediction, dir *Directory, limit int) ([]ResolvedRecommendation, ResolveStats) {
	var stats ResolveStats
	out := make([]ResolvedRecommendation, 0, len(ranked))
	index := make(map[pairKey]int, len(ranked))

	for _, r := range ranked {
		if r.Rank > limit {
			continue
		}
		stats.Considered++

		userKey, ok := dir.UserKey(r.UserID)
		if !ok {
			stats.Dropped++
			continue
		}
		itemKey, ok := dir.ItemKey(r.ItemID)
		if !ok {
			stats.Dropped++
			continue
		}

		k := pairKey{user: userKey, item: itemKey}
		if i, seen := index[k]; seen {
			stats.Collapsed++
			if r.Score > out[i].Score {
				out[i].Score = r.Score
				out[i].Order = r.Seq
			}
			continue
		}

		index[k] = len(out)
		out = append(out, ResolvedRecommendation{
			UserKey: userKey,
			ItemKey: itemKey,
			Score:   r.Score,
			Order:   r.Seq,
		})
	}
	return out, stats
}
