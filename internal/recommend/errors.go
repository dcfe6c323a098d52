// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"errors"
	"fmt"
)

// Missing-source errors. The run aborts.
var (
	// ErrPathNotFound indicates a required dataset does not exist.
	ErrPathNotFound = errors.New("dataset path not found")

	// ErrFileNotFetched indicates a dataset exists but could not be read.
	ErrFileNotFetched = errors.New("dataset could not be fetched")
)

// Empty-result errors. The run aborts.
var (
	// ErrEmptyDataset indicates a dataset that must be non-empty is empty,
	// such as the active users or their candidate set.
	ErrEmptyDataset = errors.New("empty dataset")

	// ErrRecommendationsNotGenerated indicates the model produced no rows.
	ErrRecommendationsNotGenerated = errors.New("recommendations not generated")
)

// Lifecycle and usage errors.
var (
	ErrNoModel                = errors.New("no model available")
	ErrUnsupportedModel       = errors.New("model does not support the requested mode")
	ErrDatasetReleased        = errors.New("dataset already released")
	ErrDatasetNotMaterialized = errors.New("dataset not materialized")
	ErrInvalidTransition      = errors.New("invalid run state transition")
	ErrRunInProgress          = errors.New("a recommendation run is already in progress")
)

// StageError reports a fatal failure with enough context to diagnose it
// without re-running.
type StageError struct {
	RunID  string
	Stage  RunState
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("run %s: %s: %s: %v", e.RunID, e.Stage, e.Detail, e.Err)
	}
	return fmt.Sprintf("run %s: %s: %v", e.RunID, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// IsMissingSource reports whether err is a missing-source failure.
func IsMissingSource(err error) bool {
	return errors.Is(err, ErrPathNotFound) || errors.Is(err, ErrFileNotFetched)
}

// IsEmptyResult reports whether err is an empty-result failure.
func IsEmptyResult(err error) bool {
	return errors.Is(err, ErrEmptyDataset) || errors.Is(err, ErrRecommendationsNotGenerated)
}
