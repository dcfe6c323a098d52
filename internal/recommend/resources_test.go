// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

func countingLoader(rows []int, calls *int) func(context.Context) ([]int, error) {
	return func(context.Context) ([]int, error) {
		*calls++
		return rows, nil
	}
}

func TestDataset_Lifecycle(t *testing.T) {
	t.Parallel()

	res := NewResources(nil)
	calls := 0
	d := Track(res, "numbers", countingLoader([]int{1, 2, 3}, &calls))

	if _, err := d.Rows(); !errors.Is(err, ErrDatasetNotMaterialized) {
		t.Errorf("Rows() before Materialize error = %v, want ErrDatasetNotMaterialized", err)
	}

	n, err := d.Materialize(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("Materialize() = %d, %v, want 3, nil", n, err)
	}
	if _, err := d.Materialize(context.Background()); err != nil {
		t.Fatalf("second Materialize() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
	if !d.Cached() {
		t.Error("Cached() = false after Materialize")
	}

	rows, err := d.Rows()
	if err != nil || !slices.Equal(rows, []int{1, 2, 3}) {
		t.Errorf("Rows() = %v, %v", rows, err)
	}

	d.Release()
	d.Release()

	if d.Cached() {
		t.Error("Cached() = true after Release")
	}
	if _, err := d.Rows(); !errors.Is(err, ErrDatasetReleased) {
		t.Errorf("Rows() after Release error = %v, want ErrDatasetReleased", err)
	}
	if _, err := d.Materialize(context.Background()); !errors.Is(err, ErrDatasetReleased) {
		t.Errorf("Materialize() after Release error = %v, want ErrDatasetReleased", err)
	}
}

func TestDataset_LoaderErrorKeepsPending(t *testing.T) {
	t.Parallel()

	boom := errors.New("no such file")
	fail := true
	d := Track(NewResources(nil), "flaky", func(context.Context) ([]string, error) {
		if fail {
			return nil, boom
		}
		return []string{"ok"}, nil
	})

	if _, err := d.Materialize(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Materialize() error = %v, want %v", err, boom)
	}
	if d.Cached() {
		t.Error("Cached() = true after failed load")
	}

	fail = false
	if n, err := d.Materialize(context.Background()); err != nil || n != 1 {
		t.Errorf("retry Materialize() = %d, %v", n, err)
	}
}

func TestResources_ReleaseAll(t *testing.T) {
	t.Parallel()

	res := NewResources(nil)
	a := Track(res, "a", func(context.Context) ([]int, error) { return []int{1}, nil })
	b := Track(res, "b", func(context.Context) ([]int, error) { return []int{2}, nil })
	never := Track(res, "never", func(context.Context) ([]int, error) {
		t.Error("loader of an unmaterialized dataset was called")
		return nil, nil
	})

	if _, err := a.Materialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Materialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	b.Release()

	if got := res.Cached(); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Cached() = %v, want [a]", got)
	}

	released := res.ReleaseAll()
	if !slices.Equal(released, []string{"a"}) {
		t.Errorf("ReleaseAll() = %v, want [a]", released)
	}
	if len(res.Cached()) != 0 {
		t.Errorf("Cached() after ReleaseAll = %v", res.Cached())
	}
	if _, err := never.Materialize(context.Background()); !errors.Is(err, ErrDatasetReleased) {
		t.Errorf("pending dataset after ReleaseAll error = %v, want ErrDatasetReleased", err)
	}
	if again := res.ReleaseAll(); len(again) != 0 {
		t.Errorf("second ReleaseAll() = %v, want empty", again)
	}
}

func TestResources_ElapsedAndActiveUsers(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start
	res := NewResources(func() time.Time { return now })

	now = start.Add(45 * time.Minute)
	if got := res.Elapsed(); got != 45*time.Minute {
		t.Errorf("Elapsed() = %v, want 45m", got)
	}
	if !res.StartedAt().Equal(start) {
		t.Errorf("StartedAt() = %v, want %v", res.StartedAt(), start)
	}

	res.SetActiveUsers(12)
	if res.ActiveUsers() != 12 {
		t.Errorf("ActiveUsers() = %d, want 12", res.ActiveUsers())
	}
}

func TestDataset_ConcurrentMaterialize(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	calls := 0
	d := Track(NewResources(nil), "shared", func(context.Context) ([]int, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return []int{1}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.Materialize(context.Background())
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
}
