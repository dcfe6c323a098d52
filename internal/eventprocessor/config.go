// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/tomtom215/cadence/internal/config"
)

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns production defaults for embedded NATS server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   1 << 30,  // 1GB
		JetStreamMaxStore: 10 << 30, // 10GB
	}
}

// ServerConfigFrom derives the embedded server settings from the NATS
// section. The server listens on the host and port of the client URL.
func ServerConfigFrom(cfg *config.NATSConfig) (ServerConfig, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("%w: NATS_URL: %w", ErrInvalidConfig, err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("%w: NATS_URL host %q: %w", ErrInvalidConfig, u.Host, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("%w: NATS_URL port %q: %w", ErrInvalidConfig, portStr, err)
	}

	return ServerConfig{
		Host:              host,
		Port:              port,
		StoreDir:          cfg.StoreDir,
		JetStreamMaxMem:   cfg.MaxMemory,
		JetStreamMaxStore: cfg.MaxStore,
	}, nil
}

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool // nolint:revive // ID is correct per Go conventions
}

// DefaultPublisherConfig returns production defaults for publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024, // 8MB
		EnableTrackMsgID: true,
	}
}

// StreamConfig defines the recommendation stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig returns production stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            "RECOMMENDATIONS",
		Subjects:        []string{"recommendations.>"},
		MaxAge:          7 * 24 * time.Hour,      // 7 days
		MaxBytes:        10 * 1024 * 1024 * 1024, // 10GB
		MaxMsgs:         -1,                      // Unlimited
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// StreamConfigFrom derives the stream settings from the NATS and delivery
// sections. The stream captures every subject under the delivery prefix.
func StreamConfigFrom(natsCfg *config.NATSConfig, delivery *config.DeliveryConfig) StreamConfig {
	cfg := DefaultStreamConfig()
	cfg.Name = natsCfg.StreamName
	cfg.Subjects = []string{delivery.SubjectPrefix + ".>"}
	if natsCfg.StreamRetentionDays > 0 {
		cfg.MaxAge = time.Duration(natsCfg.StreamRetentionDays) * 24 * time.Hour
	}
	if natsCfg.MaxStore > 0 {
		cfg.MaxBytes = natsCfg.MaxStore
	}
	return cfg
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// CircuitBreakerConfigFrom derives breaker settings from the delivery section.
func CircuitBreakerConfigFrom(name string, delivery *config.DeliveryConfig) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig(name)
	if delivery.BreakerMaxFailures > 0 {
		cfg.FailureThreshold = delivery.BreakerMaxFailures
	}
	if delivery.BreakerTimeout > 0 {
		cfg.Timeout = delivery.BreakerTimeout
	}
	return cfg
}
