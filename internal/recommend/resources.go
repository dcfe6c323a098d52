// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/cadence/internal/metrics"
)

type datasetState int

const (
	datasetPending datasetState = iota
	datasetCached
	datasetReleased
)

// releaser is the type-erased view of a Dataset used by Resources.
type releaser interface {
	Name() string
	Cached() bool
	Release()
}

// Dataset is an ownership handle over a large source collection.
// Rows are loaded once by Materialize, shared read-only until Release, and
// never available again afterwards.
type Dataset[T any] struct {
	name   string
	loader func(ctx context.Context) ([]T, error)

	mu    sync.Mutex
	state datasetState
	rows  []T
}

// Track registers a dataset with r. The loader runs on first Materialize.
func Track[T any](r *Resources, name string, loader func(ctx context.Context) ([]T, error)) *Dataset[T] {
	d := &Dataset[T]{name: name, loader: loader}
	r.mu.Lock()
	r.datasets = append(r.datasets, d)
	r.mu.Unlock()
	return d
}

// Name returns the dataset name.
func (d *Dataset[T]) Name() string {
	return d.name
}

// Materialize loads the rows if needed, marks the dataset cached and returns
// the row count. Calling it again on a cached dataset is a no-op.
func (d *Dataset[T]) Materialize(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case datasetCached:
		return len(d.rows), nil
	case datasetReleased:
		return 0, fmt.Errorf("%s: %w", d.name, ErrDatasetReleased)
	}

	rows, err := d.loader(ctx)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", d.name, err)
	}

	d.rows = rows
	d.state = datasetCached
	metrics.RecordDatasetCached(d.name, len(rows))
	return len(rows), nil
}

// Rows returns the cached rows. Callers must not modify them.
func (d *Dataset[T]) Rows() ([]T, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case datasetPending:
		return nil, fmt.Errorf("%s: %w", d.name, ErrDatasetNotMaterialized)
	case datasetReleased:
		return nil, fmt.Errorf("%s: %w", d.name, ErrDatasetReleased)
	}
	return d.rows, nil
}

// Cached reports whether the dataset currently holds rows.
func (d *Dataset[T]) Cached() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == datasetCached
}

// Release drops the rows. It is idempotent. A pending dataset becomes
// released without ever loading.
func (d *Dataset[T]) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == datasetReleased {
		return
	}
	wasCached := d.state == datasetCached
	d.rows = nil
	d.state = datasetReleased
	if wasCached {
		metrics.RecordDatasetReleased(d.name)
	}
}

// Resources tracks the datasets, timing and active-user count of one run.
type Resources struct {
	mu          sync.Mutex
	datasets    []releaser
	started     time.Time
	now         func() time.Time
	activeUsers int
}

// NewResources starts the run clock.
func NewResources(now func() time.Time) *Resources {
	if now == nil {
		now = time.Now
	}
	return &Resources{started: now(), now: now}
}

// Elapsed returns the time since the run started.
func (r *Resources) Elapsed() time.Duration {
	return r.now().Sub(r.started)
}

// StartedAt returns the run start time.
func (r *Resources) StartedAt() time.Time {
	return r.started
}

// SetActiveUsers records the number of users considered by the run.
func (r *Resources) SetActiveUsers(n int) {
	r.mu.Lock()
	r.activeUsers = n
	r.mu.Unlock()
}

// ActiveUsers returns the number of users considered by the run.
func (r *Resources) ActiveUsers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeUsers
}

// Cached returns the names of datasets currently holding rows.
func (r *Resources) Cached() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.datasets))
	for _, d := range r.datasets {
		if d.Cached() {
			names = append(names, d.Name())
		}
	}
	return names
}

// ReleaseAll releases every tracked dataset and returns the names of those
// that were still cached.
func (r *Resources) ReleaseAll() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var released []string
	for _, d := range r.datasets {
		if d.Cached() {
			released = append(released, d.Name())
		}
		d.Release()
	}
	return released
}
