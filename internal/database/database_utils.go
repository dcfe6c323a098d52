// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package database

import (
	"context"
	"fmt"
	"time"
)

// Default timeouts applied when the caller's context has no deadline.
const (
	defaultTimeout = 30 * time.Second
	datasetTimeout = 30 * time.Minute
)

// ensureContext bounds ctx by timeout if it has no deadline of its own.
func ensureContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), timeout)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	return ctx, func() {}
}

// Checkpoint forces a WAL checkpoint
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := ensureContext(ctx, defaultTimeout)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// GetDatabasePath returns the path to the database file
func (db *DB) GetDatabasePath() string {
	return db.cfg.DuckDBPath
}

// RawRecommendationCount returns the number of stored raw rows of a run.
// An empty runID counts every run.
func (db *DB) RawRecommendationCount(ctx context.Context, runID string) (int64, error) {
	ctx, cancel := ensureContext(ctx, defaultTimeout)
	defer cancel()

	var n int64
	var err error
	if runID == "" {
		err = db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM raw_recommendations").Scan(&n)
	} else {
		err = db.conn.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM raw_recommendations WHERE run_id = ?", runID).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count raw recommendations: %w", err)
	}
	return n, nil
}
