// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package runledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/recommend"
)

// Key prefixes for BadgerDB storage
const (
	runKeyPrefix     = "run:"
	runTimeKeyPrefix = "run_time:"
)

var (
	// ErrRunNotFound is returned when no record exists for a run id.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunExists is returned by Begin for a run id already recorded.
	ErrRunExists = errors.New("run already recorded")
)

// Ledger records recommendation runs in BadgerDB. It implements
// recommend.RunObserver so state transitions are persisted as they happen.
type Ledger struct {
	db        *badger.DB
	retention time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// Open opens the ledger at cfg.Path, or in memory when the path is empty.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(cfg *config.LedgerConfig, logger zerolog.Logger) (*Ledger, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open run ledger: %w", err)
	}

	l := New(db, cfg.Retention, logger)
	if n, err := l.Count(context.Background()); err == nil {
		metrics.SetLedgerRecords(n)
	}
	return l, nil
}

// New wraps an open BadgerDB.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(db *badger.DB, retention time.Duration, logger zerolog.Logger) *Ledger {
	return &Ledger{
		db:        db,
		retention: retention,
		logger:    logger.With().Str("component", "runledger").Logger(),
		now:       time.Now,
	}
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func runKey(id string) []byte {
	return []byte(runKeyPrefix + id)
}

// timeKey orders records by start time. Nanoseconds are zero-padded so the
// byte order matches the time order.
func timeKey(started time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", runTimeKeyPrefix, started.UnixNano(), id))
}

func getRecord(txn *badger.Txn, id string) (*Record, error) {
	item, err := txn.Get(runKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	var rec Record
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal run %s: %w", id, err)
	}
	return &rec, nil
}

func putRecord(txn *badger.Txn, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	return txn.Set(runKey(rec.RunID), data)
}

// Begin records a new run in LOADING.
func (l *Ledger) Begin(ctx context.Context, req Request) error {
	if req.RunID == "" {
		return errors.New("run id required")
	}
	rec := &Record{
		RunID:     req.RunID,
		Trigger:   req.Trigger,
		State:     recommend.StateLoading,
		Mode:      req.Mode,
		Limit:     req.Limit,
		Users:     req.Users,
		StartedAt: l.now().UTC(),
	}

	err := l.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(runKey(rec.RunID)); err == nil {
			return fmt.Errorf("%w: %s", ErrRunExists, rec.RunID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check run: %w", err)
		}
		if err := putRecord(txn, rec); err != nil {
			return err
		}
		return txn.Set(timeKey(rec.StartedAt, rec.RunID), []byte(rec.RunID))
	})
	if err != nil {
		return err
	}

	l.refreshCount(ctx)
	return nil
}

// update applies fn to the stored record of id.
func (l *Ledger) update(id string, fn func(*Record)) error {
	return l.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, id)
		if err != nil {
			return err
		}
		fn(rec)
		return putRecord(txn, rec)
	})
}

// RunTransitioned implements recommend.RunObserver.
func (l *Ledger) RunTransitioned(runID string, t recommend.Transition, cause error) {
	err := l.update(runID, func(rec *Record) {
		rec.State = t.To
		rec.Transitions = append(rec.Transitions, t)
		if cause != nil {
			rec.Error = cause.Error()
		}
		if t.To.Terminal() {
			at := t.At.UTC()
			rec.FinishedAt = &at
		}
	})
	if err != nil {
		l.logger.Warn().Err(err).Str("run_id", runID).Str("to", t.To.String()).Msg("Failed to record run transition")
	}
}

// Finish stores the outcome of a run. result may be nil when the run was
// rejected before it started; runErr is its failure cause, if any.
func (l *Ledger) Finish(_ context.Context, runID string, result *recommend.RunResult, runErr error) error {
	err := l.update(runID, func(rec *Record) {
		if result != nil {
			rec.State = result.State
			rec.Mode = result.Mode
			rec.Limit = result.Limit
			if result.Model.ModelID != "" {
				model := result.Model
				rec.Model = &model
			}
			if result.State == recommend.StateDone {
				digest := result.Digest
				rec.Digest = &digest
			}
			resolve := result.Resolve
			rec.Resolve = &resolve
			rec.MessagesEmitted = result.MessagesEmitted
			if !result.FinishedAt.IsZero() {
				at := result.FinishedAt.UTC()
				rec.FinishedAt = &at
			}
		}

		if runErr != nil {
			rec.Error = runErr.Error()
			if !rec.State.Terminal() {
				rec.State = recommend.StateFailed
			}
		}
		if rec.FinishedAt == nil {
			at := l.now().UTC()
			rec.FinishedAt = &at
		}
	})
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}

	l.logger.Debug().Str("run_id", runID).Msg("Run recorded")
	return nil
}

// Get returns the record of a run.
func (l *Ledger) Get(_ context.Context, runID string) (*Record, error) {
	var rec *Record
	err := l.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, runID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns up to limit records, most recent first. A limit below one
// returns every record.
func (l *Ledger) List(_ context.Context, limit int) ([]Record, error) {
	var records []Record

	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(runTimeKeyPrefix)
		// Reverse iteration starts from the last key below the seek key.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			rec, err := getRecord(txn, id)
			if err != nil {
				if errors.Is(err, ErrRunNotFound) {
					continue
				}
				return err
			}
			records = append(records, *rec)
			if limit > 0 && len(records) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return records, nil
}

// Count returns the number of stored records.
func (l *Ledger) Count(_ context.Context) (int, error) {
	count := 0
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(runKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (l *Ledger) refreshCount(ctx context.Context) {
	if n, err := l.Count(ctx); err == nil {
		metrics.SetLedgerRecords(n)
	}
}

// Prune removes finished runs older than the retention period and returns
// how many were removed. Runs in progress are never pruned. A zero
// retention keeps everything.
func (l *Ledger) Prune(ctx context.Context) (int, error) {
	if l.retention <= 0 {
		return 0, nil
	}
	cutoff := l.now().Add(-l.retention)

	var stale []*Record
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(runKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				continue
			}
			if rec.Terminal() && rec.FinishedAt != nil && rec.FinishedAt.Before(cutoff) {
				stale = append(stale, &rec)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan runs: %w", err)
	}

	removed := 0
	for _, rec := range stale {
		err := l.db.Update(func(txn *badger.Txn) error {
			if err := txn.Delete(runKey(rec.RunID)); err != nil {
				return err
			}
			return txn.Delete(timeKey(rec.StartedAt, rec.RunID))
		})
		if err != nil {
			l.logger.Warn().Err(err).Str("run_id", rec.RunID).Msg("Failed to prune run")
			continue
		}
		removed++
	}

	if removed > 0 {
		l.logger.Info().Int("removed", removed).Dur("retention", l.retention).Msg("Pruned run ledger")
	}
	l.refreshCount(ctx)
	return removed, nil
}

// RecoverInterrupted marks runs left in progress by a previous process as
// FAILED. It returns the number of runs marked.
func (l *Ledger) RecoverInterrupted(ctx context.Context) (int, error) {
	records, err := l.List(ctx, 0)
	if err != nil {
		return 0, err
	}

	marked := 0
	for i := range records {
		if records[i].Terminal() {
			continue
		}
		id := records[i].RunID
		err := l.update(id, func(rec *Record) {
			at := l.now().UTC()
			rec.Transitions = append(rec.Transitions, recommend.Transition{From: rec.State, To: recommend.StateFailed, At: at})
			rec.State = recommend.StateFailed
			rec.Error = "interrupted by shutdown"
			rec.FinishedAt = &at
		})
		if err != nil {
			return marked, fmt.Errorf("recover run %s: %w", id, err)
		}
		marked++
	}

	if marked > 0 {
		l.logger.Warn().Int("runs", marked).Msg("Marked interrupted runs as failed")
	}
	return marked, nil
}

var _ recommend.RunObserver = (*Ledger)(nil)
