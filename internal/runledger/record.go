// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package runledger

import (
	"time"

	"github.com/tomtom215/cadence/internal/recommend"
)

// Run triggers.
const (
	TriggerSchedule = "schedule"
	TriggerStartup  = "startup"
	TriggerManual   = "manual"
	TriggerOnce     = "once"
)

// Record is the ledger entry of one run. It holds run metadata only,
// never message payloads.
type Record struct {
	RunID   string             `json:"run_id"`
	Trigger string             `json:"trigger"`
	State   recommend.RunState `json:"state"`

	Mode  recommend.Mode `json:"mode,omitempty"`
	Limit int            `json:"limit,omitempty"`
	Users []string       `json:"users,omitempty"`

	Transitions []recommend.Transition `json:"transitions"`
	Error       string                 `json:"error,omitempty"`

	Model           *recommend.ModelMeta    `json:"model,omitempty"`
	Digest          *recommend.RunDigest    `json:"digest,omitempty"`
	Resolve         *recommend.ResolveStats `json:"resolve,omitempty"`
	MessagesEmitted int                     `json:"messages_emitted"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Terminal reports whether the run has finished.
func (r *Record) Terminal() bool {
	return r.State.Terminal()
}

// Duration returns the run duration, or the time since start for a run in
// progress.
func (r *Record) Duration(now time.Time) time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return now.Sub(r.StartedAt)
}

// Request is the input recorded by Begin.
type Request struct {
	RunID   string
	Trigger string
	Mode    recommend.Mode
	Limit   int
	Users   []string
}
