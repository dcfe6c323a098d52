// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects how the model runner obtains predictions.
type Mode string

const (
	// ModeCandidateSet scores the precomputed candidate pairs of the active users.
	ModeCandidateSet Mode = "candidate_set"

	// ModeUserSubset asks the model for its top-N items of each active user.
	ModeUserSubset Mode = "user_subset"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeCandidateSet || m == ModeUserSubset
}

// Config contains the run parameters of the recommendation engine.
type Config struct {
	// Limit is the maximum number of recommendations kept per user.
	// Default: 1000.
	Limit int `json:"limit"`

	// PerUserRequest is how many items are requested per user in
	// ModeUserSubset. Values below Limit are raised to Limit.
	// Default: 0 (same as Limit).
	PerUserRequest int `json:"per_user_request"`

	// Users restricts the run to these external user keys.
	// Empty means every user in the directory.
	Users []string `json:"users"`

	// Mode selects candidate-set scoring or per-user top-N.
	// Default: user_subset.
	Mode Mode `json:"mode"`

	// ReportBaseURL prefixes the model report file in message provenance.
	ReportBaseURL string `json:"report_base_url"`

	// SaveRaw persists the enriched rows before aggregation.
	// Default: true.
	SaveRaw bool `json:"save_raw"`

	// Timeout bounds a single run. Zero disables the bound.
	// Default: 2h.
	Timeout time.Duration `json:"timeout"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Limit:   1000,
		Mode:    ModeUserSubset,
		SaveRaw: true,
		Timeout: 2 * time.Hour,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Limit < 1 {
		return fmt.Errorf("limit must be positive, got %d", c.Limit)
	}
	if c.PerUserRequest < 0 {
		return fmt.Errorf("per_user_request must be non-negative, got %d", c.PerUserRequest)
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeCandidateSet, ModeUserSubset, c.Mode)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.Timeout)
	}
	for i, u := range c.Users {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("users[%d] must not be blank", i)
		}
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Users != nil {
		clone.Users = append([]string(nil), c.Users...)
	}
	return &clone
}

// perUser returns the number of items to request per user, never below limit.
func (c *Config) perUser(limit int) int {
	if c.PerUserRequest > limit {
		return c.PerUserRequest
	}
	return limit
}
