// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared by all callers; it caches struct
// metadata and is safe for concurrent use. Fields are reported by their JSON
// name so messages match the request body the client sent.
//
// # Custom Tags
//
//   - run_mode: the value is a recommendation run mode (candidate_set or user_subset)
//   - user_key: a non-empty user name without leading or trailing whitespace
//
// # Usage
//
//	type TriggerRunRequest struct {
//	    Limit int      `json:"limit" validate:"omitempty,min=1,max=10000"`
//	    Users []string `json:"users" validate:"omitempty,unique,dive,user_key"`
//	    Mode  string   `json:"mode" validate:"omitempty,run_mode"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError()
//	    // respond 400 with apiErr.Code, apiErr.Message, apiErr.Details
//	}
package validation
