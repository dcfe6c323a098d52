// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"time"
)

// UserMapping links an internal surrogate user id to the external user key.
type UserMapping struct {
	InternalID int64  `json:"internal_id"`
	UserKey    string `json:"user_key"`
}

// ItemMapping links an internal surrogate recording id to the external
// recording key (an MBID in production data).
type ItemMapping struct {
	InternalID int64  `json:"internal_id"`
	ItemKey    string `json:"item_key"`
}

// CandidatePair is a (user, item) combination eligible for scoring.
type CandidatePair struct {
	UserID int64 `json:"user_id"`
	ItemID int64 `json:"item_id"`
}

// ItemScore is one entry of a per-user top-N model result.
type ItemScore struct {
	ItemID int64   `json:"item_id"`
	Score  float64 `json:"score"`
}

// ScoredPrediction is a model output row.
type ScoredPrediction struct {
	UserID int64   `json:"user_id"`
	ItemID int64   `json:"item_id"`
	Score  float64 `json:"score"`

	// Seq is the arrival position in the run's prediction stream.
	// It only participates in tie-breaks.
	Seq int `json:"seq"`
}

// RankedPrediction is a ScoredPrediction with its 1-based per-user rank.
type RankedPrediction struct {
	ScoredPrediction
	Rank int `json:"rank"`
}

// ResolvedRecommendation is a prediction translated to external keys.
type ResolvedRecommendation struct {
	UserKey string  `json:"user_key"`
	ItemKey string  `json:"item_key"`
	Score   float64 `json:"score"`

	// Order is the arrival position of the row that supplied Score.
	Order int `json:"order"`
}

// ListenRecord is one history row: a user's listen of a recording.
type ListenRecord struct {
	UserKey    string    `json:"user_key"`
	ItemKey    string    `json:"item_key"`
	ListenedAt time.Time `json:"listened_at"`
}

// EnrichedRecommendation carries the most recent prior listen, if any.
type EnrichedRecommendation struct {
	ResolvedRecommendation

	// LatestListenedAt is nil when the user never listened to the item.
	LatestListenedAt *time.Time `json:"latest_listened_at,omitempty"`
}

// UserBundle is the ordered recommendation list of one user.
type UserBundle struct {
	UserKey string                   `json:"user_key"`
	Items   []EnrichedRecommendation `json:"items"`
}

// RunDigest summarizes a completed run.
type RunDigest struct {
	ActiveUserCount          int           `json:"active_user_count"`
	UsersWithRecommendations int           `json:"users_with_recommendations"`
	TotalTime                time.Duration `json:"total_time"`
}

// NewRunDigest builds the digest of a run from its bundles.
func NewRunDigest(activeUsers int, bundles []UserBundle, total time.Duration) RunDigest {
	return RunDigest{
		ActiveUserCount:          activeUsers,
		UsersWithRecommendations: len(bundles),
		TotalTime:                total,
	}
}

// ModelMeta describes a stored model.
type ModelMeta struct {
	ModelID    string    `json:"model_id"`
	ReportFile string    `json:"report_file"`
	CreatedAt  time.Time `json:"created_at"`
}

// Provenance identifies the model behind a set of messages.
type Provenance struct {
	ModelID        string `json:"model_id"`
	ModelReference string `json:"model_reference"`
}

// Directory translates internal surrogate ids to external keys.
// Several item ids may map to the same key.
type Directory struct {
	users map[int64]string
	items map[int64]string
}

// NewDirectory indexes the user and item mappings.
func NewDirectory(users []UserMapping, items []ItemMapping) *Directory {
	d := &Directory{
		users: make(map[int64]string, len(users)),
		items: make(map[int64]string, len(items)),
	}
	for _, u := range users {
		d.users[u.InternalID] = u.UserKey
	}
	for _, it := range items {
		d.items[it.InternalID] = it.ItemKey
	}
	return d
}

// UserKey returns the external key of an internal user id.
func (d *Directory) UserKey(id int64) (string, bool) {
	key, ok := d.users[id]
	return key, ok
}

// ItemKey returns the external key of an internal item id.
func (d *Directory) ItemKey(id int64) (string, bool) {
	key, ok := d.items[id]
	return key, ok
}
