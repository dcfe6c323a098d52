// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Message types.
const (
	MessageTypeRecommendations = "recommendations"
	MessageTypeDigest          = "digest"
)

// Message is an output record handed to a Sink.
type Message interface {
	// MessageType returns the wire "type" field.
	MessageType() string

	// RoutingKey identifies the message for transport-level deduplication
	// and partitioning: the user key, or "digest".
	RoutingKey() string
}

// Sink delivers messages downstream.
type Sink interface {
	Emit(ctx context.Context, msg Message) error
}

// RecommendationItem is one entry of a user message.
type RecommendationItem struct {
	ItemKey          string  `json:"item_key"`
	Score            float64 `json:"score"`
	LatestListenedAt string  `json:"latest_listened_at,omitempty"`
}

// RecommendationPayload is the recommendations object of a user message.
type RecommendationPayload struct {
	Items          []RecommendationItem `json:"items"`
	ModelID        string               `json:"model_id"`
	ModelReference string               `json:"model_reference"`
}

// UserMessage carries the ordered recommendations of one user.
type UserMessage struct {
	UserID          string                `json:"user_id"`
	Type            string                `json:"type"`
	Recommendations RecommendationPayload `json:"recommendations"`
}

// MessageType implements Message.
func (m *UserMessage) MessageType() string { return m.Type }

// RoutingKey implements Message.
func (m *UserMessage) RoutingKey() string { return m.UserID }

// Hours is a duration in hours, rendered with two decimals.
type Hours float64

// HoursOf converts d to Hours.
func HoursOf(d time.Duration) Hours {
	return Hours(d.Seconds() / 3600)
}

// String formats h with two decimals.
func (h Hours) String() string {
	return strconv.FormatFloat(float64(h), 'f', 2, 64)
}

// MarshalJSON renders h as a number with exactly two decimals.
func (h Hours) MarshalJSON() ([]byte, error) {
	return []byte(h.String()), nil
}

// DigestMessage summarizes a run. It is always the last message.
type DigestMessage struct {
	Type                          string `json:"type"`
	ActiveUserCount               int    `json:"active_user_count"`
	UsersWithRecommendationsCount int    `json:"users_with_recommendations_count"`
	TotalTimeHours                Hours  `json:"total_time_hours"`
}

// MessageType implements Message.
func (m *DigestMessage) MessageType() string { return m.Type }

// RoutingKey implements Message.
func (m *DigestMessage) RoutingKey() string { return MessageTypeDigest }

// NewProvenance builds message provenance from model metadata. The model
// reference is the report file resolved against baseURL; with no base URL
// it is the bare file name.
func NewProvenance(meta ModelMeta, baseURL string) Provenance {
	ref := meta.ReportFile
	if baseURL != "" && meta.ReportFile != "" {
		if joined, err := url.JoinPath(baseURL, meta.ReportFile); err == nil {
			ref = joined
		} else {
			ref = strings.TrimRight(baseURL, "/") + "/" + meta.ReportFile
		}
	}
	return Provenance{ModelID: meta.ModelID, ModelReference: ref}
}

// NewUserMessage converts one bundle.
func NewUserMessage(b UserBundle, prov Provenance) *UserMessage {
	items := make([]RecommendationItem, len(b.Items))
	for i, r := range b.Items {
		items[i] = RecommendationItem{ItemKey: r.ItemKey, Score: r.Score}
		if r.LatestListenedAt != nil {
			items[i].LatestListenedAt = FormatListenedAt(*r.LatestListenedAt)
		}
	}
	return &UserMessage{
		UserID: b.UserKey,
		Type:   MessageTypeRecommendations,
		Recommendations: RecommendationPayload{
			Items:          items,
			ModelID:        prov.ModelID,
			ModelReference: prov.ModelReference,
		},
	}
}

// NewDigestMessage converts a run digest.
func NewDigestMessage(d RunDigest) *DigestMessage {
	return &DigestMessage{
		Type:                          MessageTypeDigest,
		ActiveUserCount:               d.ActiveUserCount,
		UsersWithRecommendationsCount: d.UsersWithRecommendations,
		TotalTimeHours:                HoursOf(d.TotalTime),
	}
}

// BuildMessages returns one message per bundle, in bundle order, followed by
// exactly one digest.
func BuildMessages(bundles []UserBundle, prov Provenance, digest RunDigest) []Message {
	msgs := make([]Message, 0, len(bundles)+1)
	for _, b := range bundles {
		msgs = append(msgs, NewUserMessage(b, prov))
	}
	return append(msgs, NewDigestMessage(digest))
}

// Emit delivers msgs in order and stops at the first failure. It returns
// the number of messages delivered.
func Emit(ctx context.Context, sink Sink, msgs []Message) (int, error) {
	for i, m := range msgs {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := sink.Emit(ctx, m); err != nil {
			return i, fmt.Errorf("emit %s message %q: %w", m.MessageType(), m.RoutingKey(), err)
		}
	}
	return len(msgs), nil
}
