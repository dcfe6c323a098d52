// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package testinfra provides test infrastructure for integration testing with containers.
//
// This package uses testcontainers-go to run the external services Cadence
// talks to, so integration tests exercise real wire protocols.
//
// # PostgreSQL
//
// PostgresContainer backs the listen store tests:
//
//	func TestHistory(t *testing.T) {
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostgresContainer(ctx,
//	        testinfra.WithInitScript("testdata/listens.sql"),
//	    )
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg.Container)
//
//	    store, err := listenstore.New(ctx, &config.HistoryConfig{
//	        PostgresURL:      pg.URL,
//	        PostgresMaxConns: 2,
//	    }, zerolog.Nop())
//	    // ...
//	}
//
// # Redis
//
// RedisContainer backs the Redis stream sink tests.
//
// # CI Considerations
//
// These tests require Docker and network access and carry the
// "integration" build tag:
//
//	go test -tags integration ./...
//
// Tests are skipped gracefully if Docker is unavailable.
//
// # Network Requirements
//
// First run may need to download container images. Subsequent runs use cached images.
package testinfra
