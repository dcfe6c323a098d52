// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

//go:build integration

package listenstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/recommend"
	"github.com/tomtom215/cadence/internal/testinfra"
)

func TestHistory_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := testinfra.NewPostgresContainer(ctx, testinfra.WithInitScript("testdata/listens.sql"))
	if err != nil {
		t.Fatalf("Failed to create postgres container: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, pg.Container)

	store, err := New(ctx, &config.HistoryConfig{PostgresURL: pg.URL, PostgresMaxConns: 2}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	records, err := store.History(ctx)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}

	latest := make(map[[2]string]time.Time, len(records))
	for _, r := range records {
		latest[[2]string{r.UserKey, r.ItemKey}] = r.ListenedAt
	}

	want := map[[2]string]time.Time{
		{"alice", "11111111-1111-1111-1111-111111111111"}: time.Date(2024, 3, 5, 8, 15, 0, 0, time.UTC),
		{"alice", "22222222-2222-2222-2222-222222222222"}: time.Date(2024, 2, 10, 21, 0, 0, 0, time.UTC),
		{"bob", "11111111-1111-1111-1111-111111111111"}:   time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC),
	}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d: %+v", len(records), len(want), records)
	}
	for k, at := range want {
		if got, ok := latest[k]; !ok || !got.Equal(at) {
			t.Errorf("%v: got %v, want %v", k, got, at)
		}
	}
}

func TestHistory_Integration_MissingTable(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := testinfra.NewPostgresContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to create postgres container: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, pg.Container)

	store, err := New(ctx, &config.HistoryConfig{PostgresURL: pg.URL, PostgresMaxConns: 1}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	if _, err := store.History(ctx); !errors.Is(err, recommend.ErrPathNotFound) {
		t.Errorf("History() error = %v, want ErrPathNotFound", err)
	}
}
