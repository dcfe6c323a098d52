// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

//go:build integration

package testinfra

import (
	"context"
	"strings"
	"testing"
	"time"
)

// TestIsDockerAvailable reports Docker availability.
func TestIsDockerAvailable(t *testing.T) {
	available := IsDockerAvailable()
	t.Logf("Docker available: %v", available)
}

// TestPostgresOptions tests the option functions.
func TestPostgresOptions(t *testing.T) {
	cfg := defaultPostgresConfig()
	if cfg.image != DefaultPostgresImage {
		t.Errorf("default image: expected %s, got %s", DefaultPostgresImage, cfg.image)
	}

	WithPostgresImage("postgres:17")(cfg)
	if cfg.image != "postgres:17" {
		t.Errorf("WithPostgresImage: expected postgres:17, got %s", cfg.image)
	}

	WithDatabase("listens")(cfg)
	if cfg.database != "listens" {
		t.Errorf("WithDatabase: expected listens, got %s", cfg.database)
	}

	WithInitScript("a.sql")(cfg)
	WithInitScript("b.sql")(cfg)
	if len(cfg.initScripts) != 2 || cfg.initScripts[1] != "b.sql" {
		t.Errorf("WithInitScript: got %v", cfg.initScripts)
	}

	WithStartTimeout(5 * time.Minute)(cfg)
	if cfg.startTimeout != 5*time.Minute {
		t.Errorf("WithStartTimeout: expected 5m, got %v", cfg.startTimeout)
	}
}

// TestPostgresContainer_Integration tests the container lifecycle.
func TestPostgresContainer_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := NewPostgresContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to create postgres container: %v", err)
	}
	defer CleanupContainer(t, ctx, pg.Container)

	if !strings.HasPrefix(pg.URL, "postgres://") {
		t.Errorf("unexpected URL %q", pg.URL)
	}

	info, err := GetContainerInfo(ctx, pg.Container)
	if err != nil {
		t.Logf("Warning: Failed to get container info: %v", err)
	} else {
		t.Logf("Container ID: %s, State: %s, Ports: %v", info.ID, info.State, info.Ports)
	}
}
