// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateRecommend,
		c.validateData,
		c.validateModels,
		c.validateHistory,
		c.validateDelivery,
		c.validateNATS,
		c.validateRedis,
		c.validateSchedule,
		c.validateLedger,
		c.validateServer,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

var validModes = map[string]bool{
	"candidate_set": true,
	"user_subset":   true,
}

func (c *Config) validateRecommend() error {
	if c.Recommend.Limit < 1 {
		return fmt.Errorf("RECOMMEND_LIMIT must be positive, got %d", c.Recommend.Limit)
	}
	if c.Recommend.PerUserRequest < 0 {
		return fmt.Errorf("RECOMMEND_PER_USER_REQUEST must be non-negative, got %d", c.Recommend.PerUserRequest)
	}
	if !validModes[c.Recommend.Mode] {
		return fmt.Errorf("RECOMMEND_MODE must be one of: candidate_set, user_subset")
	}
	if c.Recommend.Timeout < 0 {
		return fmt.Errorf("RECOMMEND_TIMEOUT must be non-negative, got %v", c.Recommend.Timeout)
	}
	for i, u := range c.Recommend.Users {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("recommend.users[%d] must not be blank", i)
		}
	}
	if c.Recommend.ReportBaseURL != "" {
		if err := validateReportURL(c.Recommend.ReportBaseURL); err != nil {
			return fmt.Errorf("RECOMMEND_REPORT_BASE_URL is invalid: %w", err)
		}
	}
	return nil
}

func (c *Config) validateData() error {
	if c.Data.DuckDBPath == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.Data.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be non-negative, got %d", c.Data.Threads)
	}
	return nil
}

func (c *Config) validateModels() error {
	if c.Models.Dir == "" {
		return fmt.Errorf("MODELS_DIR is required")
	}
	if c.Models.Name == "" {
		return fmt.Errorf("MODELS_NAME is required")
	}
	if c.Models.Keep < 0 {
		return fmt.Errorf("MODELS_KEEP must be non-negative, got %d", c.Models.Keep)
	}
	return nil
}

func (c *Config) validateHistory() error {
	switch c.History.Source {
	case HistoryDuckDB, HistoryNone:
		return nil
	case HistoryPostgres:
		if c.History.PostgresURL == "" {
			return fmt.Errorf("POSTGRES_URL is required when HISTORY_SOURCE=postgres")
		}
		if c.History.PostgresMaxConns < 1 {
			return fmt.Errorf("POSTGRES_MAX_CONNS must be positive, got %d", c.History.PostgresMaxConns)
		}
		return nil
	default:
		return fmt.Errorf("HISTORY_SOURCE must be one of: duckdb, postgres, none")
	}
}

func (c *Config) validateDelivery() error {
	switch c.Delivery.Transport {
	case TransportNATS, TransportRedis, TransportLog:
	default:
		return fmt.Errorf("DELIVERY_TRANSPORT must be one of: nats, redis, log")
	}
	if c.Delivery.Transport == TransportNATS && c.Delivery.SubjectPrefix == "" {
		return fmt.Errorf("DELIVERY_SUBJECT_PREFIX is required for the nats transport")
	}
	if c.Delivery.RatePerSecond < 0 {
		return fmt.Errorf("DELIVERY_RATE_PER_SECOND must be non-negative, got %v", c.Delivery.RatePerSecond)
	}
	if c.Delivery.RatePerSecond > 0 && c.Delivery.Burst < 1 {
		return fmt.Errorf("DELIVERY_BURST must be positive when pacing is enabled, got %d", c.Delivery.Burst)
	}
	if c.Delivery.BreakerEnabled {
		if c.Delivery.BreakerMaxFailures == 0 {
			return fmt.Errorf("DELIVERY_BREAKER_MAX_FAILURES must be positive")
		}
		if c.Delivery.BreakerTimeout <= 0 {
			return fmt.Errorf("DELIVERY_BREAKER_TIMEOUT must be positive, got %v", c.Delivery.BreakerTimeout)
		}
	}
	return nil
}

// NATS limit constants
const (
	natsMinMemory    = 64 * 1024 * 1024  // 64MB
	natsMinStore     = 100 * 1024 * 1024 // 100MB
	natsMaxRetention = 365
	natsMinRetention = 1
)

// validateNATS validates NATS settings when it is the delivery transport
func (c *Config) validateNATS() error {
	if c.Delivery.Transport != TransportNATS {
		return nil
	}

	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if c.NATS.StreamName == "" {
		return fmt.Errorf("NATS_STREAM is required")
	}
	if c.NATS.StreamRetentionDays < natsMinRetention || c.NATS.StreamRetentionDays > natsMaxRetention {
		return fmt.Errorf("NATS_RETENTION_DAYS must be between %d and %d", natsMinRetention, natsMaxRetention)
	}
	if !c.NATS.EmbeddedServer {
		return nil
	}
	if c.NATS.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required for the embedded server")
	}
	if c.NATS.MaxMemory < natsMinMemory {
		return fmt.Errorf("NATS_MAX_MEMORY must be at least 64MB")
	}
	if c.NATS.MaxStore < natsMinStore {
		return fmt.Errorf("NATS_MAX_STORE must be at least 100MB")
	}
	return nil
}

func (c *Config) validateRedis() error {
	if c.Delivery.Transport != TransportRedis {
		return nil
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required when DELIVERY_TRANSPORT=redis")
	}
	if c.Redis.Stream == "" {
		return fmt.Errorf("REDIS_STREAM is required when DELIVERY_TRANSPORT=redis")
	}
	if c.Redis.MaxLen < 0 {
		return fmt.Errorf("REDIS_MAX_LEN must be non-negative, got %d", c.Redis.MaxLen)
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if c.Schedule.Cron == "" {
		return nil
	}
	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		return fmt.Errorf("SCHEDULE_CRON is invalid: %w", err)
	}
	return nil
}

func (c *Config) validateLedger() error {
	if c.Ledger.Retention < 0 {
		return fmt.Errorf("LEDGER_RETENTION must be non-negative, got %v", c.Ledger.Retention)
	}
	return nil
}

// validateServer validates the HTTP server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout < time.Second {
		return fmt.Errorf("HTTP_TIMEOUT must be at least 1s, got %v", c.Server.Timeout)
	}
	if c.Server.TriggerRateLimit < 1 {
		return fmt.Errorf("API_TRIGGER_RATE_LIMIT must be positive, got %d", c.Server.TriggerRateLimit)
	}
	if c.Server.TriggerRateWindow <= 0 {
		return fmt.Errorf("API_TRIGGER_RATE_WINDOW must be positive, got %v", c.Server.TriggerRateWindow)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if err := c.validateLogLevel(); err != nil {
		return err
	}
	return c.validateLogFormat()
}

// validateLogLevel validates the log level configuration
func (c *Config) validateLogLevel() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	return nil
}

// validateLogFormat validates the log format configuration
func (c *Config) validateLogFormat() error {
	if c.Logging.Format == "" {
		return nil
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
