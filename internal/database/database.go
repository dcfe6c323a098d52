// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/logging"
)

// DB wraps the DuckDB connection used to read source datasets and to store
// raw recommendations.
type DB struct {
	conn    *sql.DB
	cfg     *config.DataConfig
	dataDir string
	rawDir  string
}

// New opens DuckDB and creates the raw recommendation schema.
func New(cfg *config.DataConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure parent directory exists for database file
	// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301
	if cfg.DuckDBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DuckDBPath)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "2GB"
	}

	// Parquet support is statically linked; network extension loading stays off.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.DuckDBPath, numThreads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	rawDir := cfg.RawOutputDir
	if rawDir == "" {
		rawDir = filepath.Join(cfg.Dir, "raw_recommendations")
	}

	db := &DB{
		conn:    conn,
		cfg:     cfg,
		dataDir: cfg.Dir,
		rawDir:  rawDir,
	}

	db.configureConnectionPool()

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return db, nil
}

// Conn returns the underlying SQL database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// DataDir returns the directory holding the source datasets.
func (db *DB) DataDir() string {
	return db.dataDir
}

// Close checkpoints and closes the database.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	// Flush the WAL so the next start does not replay it.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	cancel()

	return db.conn.Close()
}

// Ping checks if the database connection is alive
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

const createRawRecommendations = `
CREATE TABLE IF NOT EXISTS raw_recommendations (
	run_id             VARCHAR   NOT NULL,
	user_id            VARCHAR   NOT NULL,
	recording_mbid     VARCHAR   NOT NULL,
	score              DOUBLE    NOT NULL,
	latest_listened_at TIMESTAMP,
	created_at         TIMESTAMP NOT NULL
)`

// initialize creates the tables owned by Cadence.
func (db *DB) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, createRawRecommendations); err != nil {
		return fmt.Errorf("failed to create raw_recommendations table: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_raw_recommendations_run ON raw_recommendations (run_id)`); err != nil {
		return fmt.Errorf("failed to create raw_recommendations index: %w", err)
	}
	return nil
}
