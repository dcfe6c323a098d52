// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package config provides centralized configuration management for Cadence.

Configuration is loaded with Koanf v2 in three layers, later layers winning:
struct defaults, an optional YAML file, and mapped environment variables.
Unmapped environment variables are ignored.

# Config File

The file is taken from CONFIG_PATH when set, otherwise the first existing
file of DefaultConfigPaths:

	recommend:
	  limit: 1000
	  mode: user_subset
	  report_base_url: https://reports.example.com/models
	data:
	  duckdb_path: /data/cadence.duckdb
	  dir: /data/datasets
	delivery:
	  transport: nats
	schedule:
	  cron: "0 3 * * 1"

# Environment Variables

Recommend:
  - RECOMMEND_LIMIT: Maximum recommendations per user (default: 1000)
  - RECOMMEND_USERS: Comma-separated user names to restrict runs to
  - RECOMMEND_MODE: candidate_set or user_subset (default: user_subset)
  - RECOMMEND_REPORT_BASE_URL: Base URL of model reports
  - RECOMMEND_SAVE_RAW: Persist raw recommendations (default: true)

Data and history:
  - DUCKDB_PATH, DUCKDB_THREADS, DUCKDB_MAX_MEMORY
  - DATA_DIR: Parquet dataset directory
  - HISTORY_SOURCE: duckdb, postgres or none (default: duckdb)
  - POSTGRES_URL: Listen store connection string

Delivery:
  - DELIVERY_TRANSPORT: nats, redis or log (default: nats)
  - NATS_URL, NATS_EMBEDDED, NATS_STORE_DIR, NATS_STREAM
  - REDIS_ADDR, REDIS_STREAM, REDIS_MAX_LEN

Operations:
  - SCHEDULE_CRON, SCHEDULE_RUN_ON_START
  - LEDGER_PATH, LEDGER_RETENTION
  - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Validation

LoadWithKoanf validates the merged configuration. Errors name the
environment variable to fix.
*/
package config
