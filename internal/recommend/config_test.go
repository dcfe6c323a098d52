// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}
	if cfg.Limit != 1000 || cfg.Mode != ModeUserSubset || !cfg.SaveRaw || cfg.Timeout != 2*time.Hour {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"candidate set mode", func(c *Config) { c.Mode = ModeCandidateSet }, false},
		{"zero limit", func(c *Config) { c.Limit = 0 }, true},
		{"negative per user", func(c *Config) { c.PerUserRequest = -1 }, true},
		{"unknown mode", func(c *Config) { c.Mode = "everything" }, true},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, true},
		{"blank user", func(c *Config) { c.Users = []string{"rob", " "} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_CloneIsDeep(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Users = []string{"a", "b"}
	clone := cfg.Clone()
	clone.Users[0] = "z"
	clone.Limit = 5

	if cfg.Users[0] != "a" || cfg.Limit != 1000 {
		t.Errorf("original modified through clone: %+v", cfg)
	}
}

func TestConfig_PerUser(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if got := cfg.perUser(50); got != 50 {
		t.Errorf("perUser(50) = %d, want 50", got)
	}
	cfg.PerUserRequest = 200
	if got := cfg.perUser(50); got != 200 {
		t.Errorf("perUser(50) with request 200 = %d, want 200", got)
	}
	if got := cfg.perUser(500); got != 500 {
		t.Errorf("perUser(500) with request 200 = %d, want 500", got)
	}
}
