// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cadence/config.yaml",
	"/etc/cadence/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Recommend: RecommendConfig{
			Limit:   1000,
			Mode:    "user_subset",
			SaveRaw: true,
			Timeout: 2 * time.Hour,
		},
		Data: DataConfig{
			DuckDBPath: "/data/cadence.duckdb",
			Dir:        "/data/datasets",
			Threads:    0, // 0 = use runtime.NumCPU()
			MaxMemory:  "4GB",
		},
		Models: ModelsConfig{
			Dir:  "/data/models",
			Name: "als",
			Keep: 5,
		},
		History: HistoryConfig{
			Source:           HistoryDuckDB,
			PostgresMaxConns: 4,
		},
		Delivery: DeliveryConfig{
			Transport:          TransportNATS,
			SubjectPrefix:      "recommendations",
			RatePerSecond:      0, // Unlimited
			Burst:              100,
			BreakerEnabled:     true,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
		NATS: NATSConfig{
			URL:                 "nats://127.0.0.1:4222",
			EmbeddedServer:      true,
			StoreDir:            "/data/nats/jetstream",
			MaxMemory:           1 << 30,  // 1GB
			MaxStore:            10 << 30, // 10GB
			StreamName:          "RECOMMENDATIONS",
			StreamRetentionDays: 7,
		},
		Redis: RedisConfig{
			Addr:   "127.0.0.1:6379",
			Stream: "cadence:recommendations",
			MaxLen: 1_000_000,
		},
		Schedule: ScheduleConfig{
			Cron:       "0 3 * * 1",
			RunOnStart: false,
		},
		Ledger: LedgerConfig{
			Path:      "/data/ledger",
			Retention: 90 * 24 * time.Hour,
		},
		Server: ServerConfig{
			Port:              3858,
			Host:              "0.0.0.0",
			Timeout:           30 * time.Second,
			TriggerRateLimit:  6,
			TriggerRateWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// Precedence is ENV > File > Defaults.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// RECOMMEND_LIMIT -> recommend.limit
	// DUCKDB_PATH -> data.duckdb_path
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"recommend.users",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Recommend mappings
	"recommend_limit":            "recommend.limit",
	"recommend_per_user_request": "recommend.per_user_request",
	"recommend_users":            "recommend.users",
	"recommend_mode":             "recommend.mode",
	"recommend_report_base_url":  "recommend.report_base_url",
	"recommend_save_raw":         "recommend.save_raw",
	"recommend_timeout":          "recommend.timeout",

	// Data mappings
	"duckdb_path":       "data.duckdb_path",
	"duckdb_threads":    "data.threads",
	"duckdb_max_memory": "data.max_memory",
	"data_dir":          "data.dir",
	"raw_output_dir":    "data.raw_output_dir",

	// Model store mappings
	"models_dir":  "models.dir",
	"models_name": "models.name",
	"models_keep": "models.keep",

	// History mappings
	"history_source":     "history.source",
	"postgres_url":       "history.postgres_url",
	"postgres_max_conns": "history.postgres_max_conns",

	// Delivery mappings
	"delivery_transport":            "delivery.transport",
	"delivery_subject_prefix":       "delivery.subject_prefix",
	"delivery_rate_per_second":      "delivery.rate_per_second",
	"delivery_burst":                "delivery.burst",
	"delivery_breaker_enabled":      "delivery.breaker_enabled",
	"delivery_breaker_max_failures": "delivery.breaker_max_failures",
	"delivery_breaker_timeout":      "delivery.breaker_timeout",

	// NATS mappings
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded_server",
	"nats_store_dir":      "nats.store_dir",
	"nats_max_memory":     "nats.max_memory",
	"nats_max_store":      "nats.max_store",
	"nats_stream":         "nats.stream_name",
	"nats_retention_days": "nats.stream_retention_days",

	// Redis mappings
	"redis_addr":     "redis.addr",
	"redis_password": "redis.password",
	"redis_db":       "redis.db",
	"redis_stream":   "redis.stream",
	"redis_max_len":  "redis.max_len",

	// Schedule mappings
	"schedule_cron":         "schedule.cron",
	"schedule_run_on_start": "schedule.run_on_start",

	// Ledger mappings
	"ledger_path":      "ledger.path",
	"ledger_retention": "ledger.retention",

	// Server mappings
	"http_port":               "server.port",
	"http_host":               "server.host",
	"http_timeout":            "server.timeout",
	"api_trigger_rate_limit":  "server.trigger_rate_limit",
	"api_trigger_rate_window": "server.trigger_rate_window",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - RECOMMEND_LIMIT -> recommend.limit
//   - DUCKDB_PATH -> data.duckdb_path
//   - NATS_URL -> nats.url
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	return ""
}
