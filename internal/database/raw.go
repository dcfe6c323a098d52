// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/recommend"
)

const rawDataset = "raw_recommendations"

// SaveRawRecommendations stores the enriched rows of a run and exports them
// to <raw dir>/<run id>.parquet. Rows of an earlier attempt with the same
// run id are replaced.
func (db *DB) SaveRawRecommendations(ctx context.Context, runID string, recs []recommend.EnrichedRecommendation) (err error) {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("duckdb", rawDataset, time.Since(start), err)
	}()

	ctx, cancel := ensureContext(ctx, datasetTimeout)
	defer cancel()

	if err = db.insertRaw(ctx, runID, recs); err != nil {
		return err
	}

	path, err := db.exportRaw(ctx, runID)
	if err != nil {
		return err
	}

	logging.Ctx(ctx).Info().
		Str("run_id", runID).
		Int("rows", len(recs)).
		Str("path", path).
		Msg("Raw recommendations saved")
	return nil
}

func (db *DB) insertRaw(ctx context.Context, runID string, recs []recommend.EnrichedRecommendation) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().
					Err(rbErr).
					AnErr("original_error", err).
					Msg("Transaction rollback failed")
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM raw_recommendations WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to clear previous raw recommendations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO raw_recommendations
			(run_id, user_id, recording_mbid, score, latest_listened_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer closeWithLog(stmt, "prepared statement")

	createdAt := time.Now().UTC()
	for i := range recs {
		r := &recs[i]
		var listenedAt any
		if r.LatestListenedAt != nil {
			listenedAt = r.LatestListenedAt.UTC()
		}
		if _, err = stmt.ExecContext(ctx, runID, r.UserKey, r.ItemKey, r.Score, listenedAt, createdAt); err != nil {
			return fmt.Errorf("failed to insert raw recommendation %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit raw recommendations: %w", err)
	}
	return nil
}

// exportRaw writes the rows of runID to a parquet file and returns its path.
func (db *DB) exportRaw(ctx context.Context, runID string) (string, error) {
	if err := os.MkdirAll(db.rawDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create raw output directory %s: %w", db.rawDir, err)
	}
	path := filepath.Join(db.rawDir, runID+".parquet")

	exportQuery := `
		COPY (
			SELECT user_id, recording_mbid, score, latest_listened_at
			FROM raw_recommendations
			WHERE run_id = ` + sqlString(runID) + `
			ORDER BY user_id, score DESC, recording_mbid
		) TO ` + sqlString(path) + ` (
			FORMAT PARQUET,
			COMPRESSION 'ZSTD'
		)`

	//nolint:gosec // G202: literals escaped by sqlString
	if _, err := db.conn.ExecContext(ctx, exportQuery); err != nil {
		return "", fmt.Errorf("failed to export raw recommendations: %w", err)
	}
	return path, nil
}

// DeleteRawRecommendations removes the stored rows and parquet export of a run.
func (db *DB) DeleteRawRecommendations(ctx context.Context, runID string) error {
	ctx, cancel := ensureContext(ctx, defaultTimeout)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "DELETE FROM raw_recommendations WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to delete raw recommendations: %w", err)
	}
	path := filepath.Join(db.rawDir, runID+".parquet")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

var _ recommend.RawRecorder = (*DB)(nil)
