// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package listenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/recommend"
)

const (
	connectAttempts = 30
	connectInterval = time.Second

	// SQLSTATE undefined_table
	codeUndefinedTable = "42P01"
)

// historyQuery returns the latest listen of every (user, recording) pair.
// Listens without a recording MBID are not mapped and carry no history.
const historyQuery = `
	SELECT user_name, recording_mbid::text, max(listened_at)
	FROM listen
	WHERE recording_mbid IS NOT NULL
	GROUP BY user_name, recording_mbid`

// querier is the subset of *pgxpool.Pool used by Store.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store reads listen history from PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	q      querier
	logger zerolog.Logger
}

// New connects to the listen store and waits until it answers pings.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(ctx context.Context, cfg *config.HistoryConfig, logger zerolog.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if cfg.PostgresMaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.PostgresMaxConns) //nolint:gosec // validated by config
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	s := &Store{
		pool:   pool,
		q:      pool,
		logger: logger.With().Str("component", "listenstore").Logger(),
	}
	if err := s.waitReady(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s.logger.Info().
		Str("host", poolConfig.ConnConfig.Host).
		Str("database", poolConfig.ConnConfig.Database).
		Int32("max_conns", poolConfig.MaxConns).
		Msg("Connected to listen store")
	return s, nil
}

func (s *Store) waitReady(ctx context.Context) error {
	var err error
	for i := 0; i < connectAttempts; i++ {
		if err = s.pool.Ping(ctx); err == nil {
			return nil
		}
		s.logger.Debug().Err(err).Int("attempt", i+1).Msg("Waiting for listen store")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(connectInterval):
		}
	}
	return fmt.Errorf("listen store not ready after %d attempts: %w", connectAttempts, err)
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// History implements recommend.HistorySource. Rows are already reduced to
// the latest listen per (user, recording); timestamps are UTC.
func (s *Store) History(ctx context.Context) (records []recommend.ListenRecord, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("postgres", recommend.DatasetHistory, time.Since(start), err)
	}()

	rows, err := s.q.Query(ctx, historyQuery)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	for rows.Next() {
		var r recommend.ListenRecord
		if err := rows.Scan(&r.UserKey, &r.ItemKey, &r.ListenedAt); err != nil {
			return nil, fmt.Errorf("scan listen: %w: %w", recommend.ErrFileNotFetched, err)
		}
		r.ListenedAt = r.ListenedAt.UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	s.logger.Debug().Int("rows", len(records)).Dur("elapsed", time.Since(start)).Msg("Loaded listen history")
	return records, nil
}

// classify maps a query failure onto the missing-source errors. Context
// errors pass through unchanged.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUndefinedTable {
		return fmt.Errorf("listen table: %w: %w", recommend.ErrPathNotFound, err)
	}
	return fmt.Errorf("query listen history: %w: %w", recommend.ErrFileNotFetched, err)
}

var _ recommend.HistorySource = (*Store)(nil)
