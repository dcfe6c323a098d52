// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/recommend"
)

// Dataset queries. Each reads one parquet dataset and normalizes the column
// types to what the engine expects.
const (
	usersQuery = `
		SELECT CAST(spark_user_id AS BIGINT), CAST(user_id AS VARCHAR)
		FROM %s`

	recordingsQuery = `
		SELECT CAST(recording_id AS BIGINT), CAST(recording_mbid AS VARCHAR)
		FROM %s`

	candidateSetQuery = `
		SELECT CAST(spark_user_id AS BIGINT), CAST(recording_id AS BIGINT)
		FROM %s`

	// Pre-aggregates to the latest listen per pair. Rows without a
	// timestamp carry no history.
	historyQuery = `
		SELECT CAST(user_id AS VARCHAR), CAST(recording_mbid AS VARCHAR),
		       max(CAST(latest_listened_at AS TIMESTAMP))
		FROM %s
		WHERE latest_listened_at IS NOT NULL
		GROUP BY 1, 2`
)

// datasetPath resolves a dataset name to a parquet file or directory under
// the data directory. A directory is read as all of its parquet files.
func (db *DB) datasetPath(name string) (string, error) {
	file := filepath.Join(db.dataDir, name+".parquet")
	if info, err := os.Stat(file); err == nil && !info.IsDir() {
		return file, nil
	}

	dir := filepath.Join(db.dataDir, name)
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("%w: %s", recommend.ErrPathNotFound, dir)
	case err != nil:
		return "", fmt.Errorf("%w: %s: %w", recommend.ErrFileNotFetched, dir, err)
	case !info.IsDir():
		return "", fmt.Errorf("%w: %s is not a directory", recommend.ErrFileNotFetched, dir)
	}
	return filepath.Join(dir, "*.parquet"), nil
}

// parquetSource renders a read_parquet table function over path.
func parquetSource(path string) string {
	return "read_parquet(" + sqlString(path) + ")"
}

// sqlString renders s as a single-quoted SQL string literal. Statements
// such as COPY ... TO cannot take bound parameters.
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// loadDataset runs query over the named dataset and scans every row.
// Query failures are reported as ErrFileNotFetched.
func loadDataset[T any](ctx context.Context, db *DB, name, query string, scan func(*sql.Rows) (T, error)) (result []T, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("duckdb", name, time.Since(start), err)
	}()

	path, err := db.datasetPath(name)
	if err != nil {
		return nil, err
	}

	ctx, cancel := ensureContext(ctx, datasetTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf(query, parquetSource(path)))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %w", recommend.ErrFileNotFetched, path, err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		row, scanErr := scan(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%w: scan %s: %w", recommend.ErrFileNotFetched, name, scanErr)
		}
		result = append(result, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate %s: %w", recommend.ErrFileNotFetched, name, err)
	}

	return result, nil
}

// Users loads the user directory.
func (db *DB) Users(ctx context.Context) ([]recommend.UserMapping, error) {
	return loadDataset(ctx, db, recommend.DatasetUsers, usersQuery,
		func(rows *sql.Rows) (recommend.UserMapping, error) {
			var u recommend.UserMapping
			err := rows.Scan(&u.InternalID, &u.UserKey)
			return u, err
		})
}

// Recordings loads the recording directory.
func (db *DB) Recordings(ctx context.Context) ([]recommend.ItemMapping, error) {
	return loadDataset(ctx, db, recommend.DatasetRecordings, recordingsQuery,
		func(rows *sql.Rows) (recommend.ItemMapping, error) {
			var it recommend.ItemMapping
			err := rows.Scan(&it.InternalID, &it.ItemKey)
			return it, err
		})
}

// CandidateSet loads the candidate (user, recording) pairs.
func (db *DB) CandidateSet(ctx context.Context) ([]recommend.CandidatePair, error) {
	return loadDataset(ctx, db, recommend.DatasetCandidateSet, candidateSetQuery,
		func(rows *sql.Rows) (recommend.CandidatePair, error) {
			var p recommend.CandidatePair
			err := rows.Scan(&p.UserID, &p.ItemID)
			return p, err
		})
}

// History loads the latest listen of every (user, recording) pair.
func (db *DB) History(ctx context.Context) ([]recommend.ListenRecord, error) {
	return loadDataset(ctx, db, recommend.DatasetHistory, historyQuery,
		func(rows *sql.Rows) (recommend.ListenRecord, error) {
			var l recommend.ListenRecord
			err := rows.Scan(&l.UserKey, &l.ItemKey, &l.ListenedAt)
			l.ListenedAt = l.ListenedAt.UTC()
			return l, err
		})
}

var (
	_ recommend.Sources       = (*DB)(nil)
	_ recommend.HistorySource = (*DB)(nil)
)
