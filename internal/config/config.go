// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any mapped setting
//
// Configuration Categories:
//
//  1. Pipeline:
//     - Recommend: Run parameters (limit, users, mode, provenance)
//     - Models: Model artifact store
//
//  2. Sources:
//     - Data: DuckDB and the parquet dataset directory
//     - History: Listen history backend (duckdb or postgres)
//
//  3. Delivery:
//     - Delivery: Transport selection, pacing, circuit breaker
//     - NATS: NATS JetStream connection or embedded server
//     - Redis: Redis stream transport
//
//  4. Operations:
//     - Schedule: Cron schedule for batch runs
//     - Ledger: BadgerDB run ledger
//     - Server: HTTP ops API
//     - Logging: Log levels and output formats
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Recommend RecommendConfig `koanf:"recommend"`
	Data      DataConfig      `koanf:"data"`
	Models    ModelsConfig    `koanf:"models"`
	History   HistoryConfig   `koanf:"history"`
	Delivery  DeliveryConfig  `koanf:"delivery"`
	NATS      NATSConfig      `koanf:"nats"`
	Redis     RedisConfig     `koanf:"redis"`
	Schedule  ScheduleConfig  `koanf:"schedule"`
	Ledger    LedgerConfig    `koanf:"ledger"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// RecommendConfig holds the batch run parameters.
type RecommendConfig struct {
	// Limit is the maximum number of recommendations per user.
	// Default: 1000
	Limit int `koanf:"limit"`

	// PerUserRequest is how many items the model returns per user in
	// user_subset mode. 0 means Limit.
	PerUserRequest int `koanf:"per_user_request"`

	// Users restricts runs to these user names. Empty means all users.
	Users []string `koanf:"users"`

	// Mode is candidate_set or user_subset.
	// Default: user_subset
	Mode string `koanf:"mode"`

	// ReportBaseURL prefixes the model report file in messages.
	ReportBaseURL string `koanf:"report_base_url"`

	// SaveRaw persists enriched rows to DuckDB and parquet before aggregation.
	// Default: true
	SaveRaw bool `koanf:"save_raw"`

	// Timeout bounds a single run.
	// Default: 2h
	Timeout time.Duration `koanf:"timeout"`
}

// DataConfig holds DuckDB and dataset settings.
type DataConfig struct {
	// DuckDBPath is the DuckDB database file. ":memory:" keeps it in memory.
	DuckDBPath string `koanf:"duckdb_path"`

	// Dir holds the parquet datasets, one file or directory per dataset.
	Dir string `koanf:"dir"`

	// RawOutputDir receives raw recommendation parquet exports.
	// Empty means <Dir>/raw_recommendations.
	RawOutputDir string `koanf:"raw_output_dir"`

	Threads   int    `koanf:"threads"`    // Number of DuckDB threads (0 = use NumCPU)
	MaxMemory string `koanf:"max_memory"` // DuckDB memory limit, e.g. "4GB"
}

// ModelsConfig holds model store settings.
type ModelsConfig struct {
	Dir  string `koanf:"dir"`
	Name string `koanf:"name"`

	// Keep is how many model versions survive pruning. 0 disables pruning.
	Keep int `koanf:"keep"`
}

// History backends.
const (
	HistoryDuckDB   = "duckdb"
	HistoryPostgres = "postgres"
	HistoryNone     = "none"
)

// HistoryConfig selects the listen history backend.
type HistoryConfig struct {
	// Source is duckdb, postgres or none.
	// Default: duckdb
	Source string `koanf:"source"`

	PostgresURL      string `koanf:"postgres_url"`
	PostgresMaxConns int    `koanf:"postgres_max_conns"`
}

// Delivery transports.
const (
	TransportNATS  = "nats"
	TransportRedis = "redis"
	TransportLog   = "log"
)

// DeliveryConfig holds message delivery settings.
type DeliveryConfig struct {
	// Transport is nats, redis or log.
	// Default: nats
	Transport string `koanf:"transport"`

	// SubjectPrefix is prepended to message types to form NATS subjects.
	// Default: recommendations
	SubjectPrefix string `koanf:"subject_prefix"`

	// RatePerSecond paces publishes. 0 disables pacing.
	RatePerSecond float64 `koanf:"rate_per_second"`
	Burst         int     `koanf:"burst"`

	// Circuit breaker around publishes.
	BreakerEnabled     bool          `koanf:"breaker_enabled"`
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// NATSConfig holds NATS JetStream settings.
type NATSConfig struct {
	// URL is the NATS server connection URL.
	URL string `koanf:"url"`

	// EmbeddedServer starts an in-process NATS server.
	// If false, expects external NATS server at URL.
	EmbeddedServer bool `koanf:"embedded_server"`

	// StoreDir is the JetStream storage directory.
	StoreDir string `koanf:"store_dir"`

	// MaxMemory is the maximum memory for JetStream in bytes.
	MaxMemory int64 `koanf:"max_memory"`

	// MaxStore is the maximum disk storage for JetStream in bytes.
	MaxStore int64 `koanf:"max_store"`

	// StreamName is the JetStream stream holding recommendation messages.
	StreamName string `koanf:"stream_name"`

	// StreamRetentionDays is how long to keep messages.
	StreamRetentionDays int `koanf:"stream_retention_days"`
}

// RedisConfig holds Redis stream settings.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`

	// Stream is the stream key messages are appended to.
	Stream string `koanf:"stream"`

	// MaxLen approximately caps the stream length. 0 means unbounded.
	MaxLen int64 `koanf:"max_len"`
}

// ScheduleConfig holds the batch schedule.
type ScheduleConfig struct {
	// Cron is a standard five-field cron expression. Empty disables scheduling.
	// Default: "0 3 * * 1" (Mondays at 03:00)
	Cron string `koanf:"cron"`

	// RunOnStart triggers a run when the service starts.
	RunOnStart bool `koanf:"run_on_start"`
}

// LedgerConfig holds run ledger settings.
type LedgerConfig struct {
	// Path is the BadgerDB directory. Empty keeps the ledger in memory.
	Path string `koanf:"path"`

	// Retention is how long finished runs are kept.
	// Default: 90 days
	Retention time.Duration `koanf:"retention"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port    int           `koanf:"port"`
	Host    string        `koanf:"host"`
	Timeout time.Duration `koanf:"timeout"`

	// TriggerRateLimit is the number of manual run triggers allowed per
	// TriggerRateWindow.
	TriggerRateLimit  int           `koanf:"trigger_rate_limit"`
	TriggerRateWindow time.Duration `koanf:"trigger_rate_window"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Load loads configuration using Koanf with layered sources.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
