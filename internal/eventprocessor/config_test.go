// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/cadence/internal/config"
)

func TestServerConfigFrom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{name: "default", url: "nats://127.0.0.1:4222", wantHost: "127.0.0.1", wantPort: 4222},
		{name: "all interfaces", url: "nats://0.0.0.0:14222", wantHost: "0.0.0.0", wantPort: 14222},
		{name: "missing port", url: "nats://localhost", wantErr: true},
		{name: "bad port", url: "nats://localhost:abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ServerConfigFrom(&config.NATSConfig{
				URL:       tt.url,
				StoreDir:  "/tmp/js",
				MaxMemory: 1 << 20,
				MaxStore:  1 << 30,
			})
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ServerConfigFrom() error = %v", err)
			}
			if got.Host != tt.wantHost || got.Port != tt.wantPort {
				t.Errorf("got %s:%d, want %s:%d", got.Host, got.Port, tt.wantHost, tt.wantPort)
			}
			if got.StoreDir != "/tmp/js" || got.JetStreamMaxMem != 1<<20 || got.JetStreamMaxStore != 1<<30 {
				t.Errorf("limits not carried over: %+v", got)
			}
		})
	}
}

func TestStreamConfigFrom(t *testing.T) {
	t.Parallel()

	got := StreamConfigFrom(
		&config.NATSConfig{StreamName: "RECS", StreamRetentionDays: 2, MaxStore: 1 << 20},
		&config.DeliveryConfig{SubjectPrefix: "lb.recs"},
	)
	if got.Name != "RECS" {
		t.Errorf("Name = %q", got.Name)
	}
	if len(got.Subjects) != 1 || got.Subjects[0] != "lb.recs.>" {
		t.Errorf("Subjects = %v", got.Subjects)
	}
	if got.MaxAge != 48*time.Hour {
		t.Errorf("MaxAge = %v", got.MaxAge)
	}
	if got.MaxBytes != 1<<20 {
		t.Errorf("MaxBytes = %d", got.MaxBytes)
	}
	if got.DuplicateWindow != DefaultStreamConfig().DuplicateWindow {
		t.Errorf("DuplicateWindow = %v", got.DuplicateWindow)
	}
}

func TestCircuitBreakerConfigFrom(t *testing.T) {
	t.Parallel()

	got := CircuitBreakerConfigFrom("delivery-nats", &config.DeliveryConfig{
		BreakerMaxFailures: 9,
		BreakerTimeout:     time.Minute,
	})
	if got.Name != "delivery-nats" || got.FailureThreshold != 9 || got.Timeout != time.Minute {
		t.Errorf("got %+v", got)
	}

	defaults := CircuitBreakerConfigFrom("x", &config.DeliveryConfig{})
	if defaults.FailureThreshold != 5 || defaults.Timeout != 30*time.Second {
		t.Errorf("zero values should keep defaults, got %+v", defaults)
	}
}
