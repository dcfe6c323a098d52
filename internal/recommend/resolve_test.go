// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"testing"
)

func rankedPred(user, item int64, score float64, rank, seq int) RankedPrediction {
	return RankedPrediction{ScoredPrediction: pred(user, item, score, seq), Rank: rank}
}

func TestResolve_CollapsesCollisionsToMaxScore(t *testing.T) {
	t.Parallel()

	dir := NewDirectory(
		[]UserMapping{{InternalID: 1, UserKey: "rob"}},
		[]ItemMapping{{InternalID: 7, ItemKey: "X"}, {InternalID: 9, ItemKey: "X"}},
	)
	in := []RankedPrediction{
		rankedPred(1, 7, 2.0, 2, 1),
		rankedPred(1, 9, 2.5, 1, 0),
	}

	got, stats := Resolve(in, dir, 10)

	if len(got) != 1 {
		t.Fatalf("len(Resolve()) = %d, want 1", len(got))
	}
	if got[0].UserKey != "rob" || got[0].ItemKey != "X" || got[0].Score != 2.5 {
		t.Errorf("Resolve()[0] = %+v, want (rob, X, 2.5)", got[0])
	}
	if got[0].Order != 0 {
		t.Errorf("Order = %d, want 0 (seq of the winning row)", got[0].Order)
	}
	if stats.Collapsed != 1 || stats.Dropped != 0 || stats.Considered != 2 {
		t.Errorf("stats = %+v, want considered 2 collapsed 1 dropped 0", stats)
	}
}

func TestResolve_NCollisions(t *testing.T) {
	t.Parallel()

	items := []ItemMapping{}
	in := []RankedPrediction{}
	for i := int64(1); i <= 5; i++ {
		items = append(items, ItemMapping{InternalID: i, ItemKey: "dup"})
		in = append(in, rankedPred(1, i, float64(i), int(i), int(i)))
	}
	dir := NewDirectory([]UserMapping{{InternalID: 1, UserKey: "u"}}, items)

	got, _ := Resolve(in, dir, 10)
	if len(got) != 1 || got[0].Score != 5 {
		t.Errorf("Resolve() = %+v, want one row with score 5", got)
	}
}

func TestResolve_DropsMissingMappings(t *testing.T) {
	t.Parallel()

	dir := NewDirectory(
		[]UserMapping{{InternalID: 1, UserKey: "u1"}},
		[]ItemMapping{{InternalID: 10, ItemKey: "a"}},
	)
	in := []RankedPrediction{
		rankedPred(1, 10, 3, 1, 0),
		rankedPred(1, 11, 2, 2, 1), // unknown item
		rankedPred(2, 10, 4, 1, 2), // unknown user
	}

	got, stats := Resolve(in, dir, 10)

	if len(got) != 1 || got[0].ItemKey != "a" {
		t.Errorf("Resolve() = %+v, want only (u1, a)", got)
	}
	if stats.Dropped != 2 {
		t.Errorf("stats.Dropped = %d, want 2", stats.Dropped)
	}
}

func TestResolve_IgnoresRowsBeyondLimit(t *testing.T) {
	t.Parallel()

	dir := NewDirectory(
		[]UserMapping{{InternalID: 1, UserKey: "u"}},
		[]ItemMapping{{InternalID: 1, ItemKey: "a"}, {InternalID: 2, ItemKey: "b"}},
	)
	in := []RankedPrediction{rankedPred(1, 1, 2, 1, 0), rankedPred(1, 2, 1, 2, 1)}

	got, stats := Resolve(in, dir, 1)
	if len(got) != 1 || got[0].ItemKey != "a" {
		t.Errorf("Resolve() = %+v, want only a", got)
	}
	if stats.Considered != 1 {
		t.Errorf("stats.Considered = %d, want 1", stats.Considered)
	}
}

func TestResolve_PairsAreUnique(t *testing.T) {
	t.Parallel()

	users := []UserMapping{{InternalID: 1, UserKey: "u1"}, {InternalID: 2, UserKey: "u2"}}
	items := []ItemMapping{
		{InternalID: 1, ItemKey: "a"}, {InternalID: 2, ItemKey: "a"},
		{InternalID: 3, ItemKey: "b"}, {InternalID: 4, ItemKey: "c"},
	}
	var in []RankedPrediction
	seq := 0
	for u := int64(1); u <= 2; u++ {
		for i := int64(1); i <= 4; i++ {
			in = append(in, rankedPred(u, i, float64(10-i), int(i), seq))
			seq++
		}
	}

	got, _ := Resolve(in, NewDirectory(users, items), 10)

	seen := map[[2]string]bool{}
	for _, r := range got {
		k := [2]string{r.UserKey, r.ItemKey}
		if seen[k] {
			t.Errorf("duplicate pair %v", k)
		}
		seen[k] = true
	}
	if len(got) != 6 {
		t.Errorf("len(Resolve()) = %d, want 6", len(got))
	}
}
