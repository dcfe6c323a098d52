// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package metrics provides Prometheus metrics for recommendation runs.

Metrics are registered with the default registry through promauto and are
served at /metrics by the operational API:

	curl http://localhost:3858/metrics

# Available Metrics

Run Metrics:
  - cadence_runs_total: Runs by outcome (counter)
    Labels: status (success, failed)
  - cadence_run_duration_seconds: Run duration (histogram)
  - cadence_stage_duration_seconds: Time per stage (histogram)
    Labels: stage (LOADING ... EMITTING)
  - cadence_run_state: 1 for the current state (gauge)
    Labels: state
  - cadence_active_users, cadence_users_with_recommendations: Digest counts of
    the last successful run (gauge)
  - cadence_pipeline_rows_total: Rows produced per stage (counter)
  - cadence_resolve_dropped_rows_total: Rows without an identifier mapping (counter)
  - cadence_resolve_collapsed_rows_total: Rows merged by (user, item) (counter)

Dataset Metrics:
  - cadence_dataset_cached_rows: Rows cached per dataset (gauge)
  - cadence_dataset_releases_total: Releases per dataset (counter)

Source Metrics:
  - cadence_source_query_duration_seconds (histogram)
    Labels: backend (duckdb, postgres), dataset
  - cadence_source_query_errors_total (counter)

Delivery Metrics:
  - cadence_messages_published_total (counter)
    Labels: transport (nats, redis, log), type
  - cadence_publish_errors_total (counter)
  - cadence_circuit_breaker_state (gauge): 0=closed, 1=half-open, 2=open

# Example Queries

Failure ratio over a day:

	sum(increase(cadence_runs_total{status="failed"}[1d])) / sum(increase(cadence_runs_total[1d]))

Slowest stage:

	topk(1, histogram_quantile(0.95, sum by (stage, le) (rate(cadence_stage_duration_seconds_bucket[1d]))))
*/
package metrics
