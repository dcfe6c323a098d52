// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package main is the entry point for the Cadence server.

Cadence turns the output of a trained collaborative-filtering model into
per-user recording recommendations: it scores users against recordings,
keeps each user's top N, resolves recording identifiers, marks recordings
the user has already heard, and publishes one message per user followed by
a run digest.

# Application Architecture

The server runs under Suture v4 supervision:

	RootSupervisor ("cadence")
	├── MessagingSupervisor ("messaging-layer")
	│   └── Embedded NATS server (when NATS_EMBEDDED=true)
	├── BatchSupervisor ("batch-layer")
	│   └── Recommendation service (cron schedule, manual triggers)
	└── APISupervisor ("api-layer")
	    └── HTTP server (ops API and /metrics)

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config file, environment
 2. Logging: zerolog with JSON/console output
 3. DuckDB: parquet datasets and raw recommendation output
 4. Listen history: DuckDB dataset or PostgreSQL listen store
 5. Model store: newest ALS model artifact
 6. Delivery: NATS JetStream, Redis stream or log sink
 7. Run ledger: BadgerDB
 8. Supervisor tree and HTTP server

# Running

	cadence            # serve: scheduled runs plus the ops API
	cadence -once      # run one batch and exit; exit status 1 on failure

# Configuration

Priority: environment variables > config file (CONFIG_PATH or config.yaml) > defaults.

	RECOMMEND_LIMIT=1000             # recommendations kept per user
	RECOMMEND_MODE=user_subset       # user_subset or candidate_set
	RECOMMEND_USERS=alice,bob        # restrict runs to these users
	DATA_DIR=/data/datasets          # parquet datasets
	DUCKDB_PATH=/data/cadence.duckdb
	MODELS_DIR=/data/models
	HISTORY_SOURCE=duckdb            # duckdb, postgres or none
	POSTGRES_URL=postgres://...
	DELIVERY_TRANSPORT=nats          # nats, redis or log
	NATS_URL=nats://127.0.0.1:4222
	NATS_EMBEDDED=true
	REDIS_ADDR=127.0.0.1:6379
	SCHEDULE_CRON="0 3 * * 1"        # empty disables scheduled runs
	SCHEDULE_RUN_ON_START=false
	LEDGER_PATH=/data/ledger
	HTTP_PORT=3858
	LOG_LEVEL=info
	LOG_FORMAT=json

# Signal Handling

SIGINT and SIGTERM cancel the root context. The supervisor stops every
service; an in-flight run is canceled and still records its outcome in the
ledger. A -once run is canceled the same way and exits non-zero.
*/
package main
