// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - Recommendation runs and their stages
// - Cached source datasets
// - Source queries (DuckDB, PostgreSQL)
// - Message delivery (NATS, Redis)
// - The operational HTTP API

var (
	// Run Metrics
	RecommendRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadence_runs_total",
			Help: "Total number of recommendation runs by outcome",
		},
		[]string{"status"}, // "success", "failed"
	)

	RecommendRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cadence_run_duration_seconds",
			Help:    "Duration of recommendation runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600, 7200},
		},
	)

	RecommendStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cadence_stage_duration_seconds",
			Help:    "Time spent in each run stage in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"stage"},
	)

	RecommendRunState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cadence_run_state",
			Help: "Current run state (1 for the active state, 0 otherwise)",
		},
		[]string{"state"},
	)

	RecommendLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cadence_last_success_timestamp",
			Help: "Unix timestamp of the last successful run",
		},
	)

	RecommendActiveUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cadence_active_users",
			Help: "Users considered by the last successful run",
		},
	)

	RecommendUsersWithRecommendations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cadence_users_with_recommendations",
			Help: "Users that received at least one recommendation in the last successful run",
		},
	)

	RecommendPipelineRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadence_pipeline_rows_total",
			Help: "Rows produced by each pipeline stage",
		},
		[]string{"stage"}, // "scored", "ranked", "resolved", "enriched"
	)

	RecommendResolveDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cadence_resolve_dropped_rows_total",
			Help: "Ranked rows dropped because a user or item mapping was missing",
		},
	)

	RecommendResolveCollapsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cadence_resolve_collapsed_rows_total",
			Help: "Ranked rows merged into an existing (user, item) pair",
		},
	)

	RecommendMessagesEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cadence_messages_emitted_total",
			Help: "Messages handed to the sink by recommendation runs",
		},
	)

	// Dataset Metrics
	DatasetRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cadence_dataset_cached_rows",
			Help: "Rows currently cached per source dataset",
		},
		[]string{"dataset"},
	)

	DatasetReleases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadence_dataset_releases_total",
			Help: "Number of times a cached dataset was released",
		},
		[]string{"dataset"},
	)

	// Source Query Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cadence_source_query_duration_seconds",
			Help:    "Duration of source queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "dataset"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadence_source_query_errors_total",
			Help: "Total number of failed source queries",
		},
		[]string{"backend", "dataset", "error_type"},
	)

	// Delivery Metrics
	MessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadence_messages_published_total",
			Help: "Messages published per transport and message type",
		},
		[]string{"transport", "type"},
	)

	PublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadence_publish_errors_total",
			Help: "Failed publishes per transport",
		},
		[]string{"transport"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cadence_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadence_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Ledger Metrics
	LedgerRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cadence_ledger_records",
			Help: "Run records currently held in the run ledger",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadence_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cadence_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cadence_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Application Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cadence_app_info",
			Help: "Application version information",
		},
		[]string{"version", "go_version"},
	)
)

// runStates lists every label value of RecommendRunState.
var runStates = []string{
	"LOADING", "USER_RESOLUTION", "SCORING", "RANKING", "ENRICHING",
	"AGGREGATING", "EMITTING", "DONE", "FAILED",
}

// RecordRecommendRun records the outcome and duration of a run.
func RecordRecommendRun(status string, duration time.Duration) {
	RecommendRunsTotal.WithLabelValues(status).Inc()
	RecommendRunDuration.Observe(duration.Seconds())
	if status == "success" {
		RecommendLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordRunStage records the time spent in a stage that just completed.
func RecordRunStage(stage string, duration time.Duration) {
	RecommendStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// SetRunState marks state as the current run state.
func SetRunState(state string) {
	for _, s := range runStates {
		if s == state {
			RecommendRunState.WithLabelValues(s).Set(1)
		} else {
			RecommendRunState.WithLabelValues(s).Set(0)
		}
	}
}

// SetRunDigest publishes the user counts of the last successful run.
func SetRunDigest(activeUsers, usersWithRecommendations int) {
	RecommendActiveUsers.Set(float64(activeUsers))
	RecommendUsersWithRecommendations.Set(float64(usersWithRecommendations))
}

// RecordPipelineRows records the output size of a pipeline stage.
func RecordPipelineRows(stage string, rows int) {
	RecommendPipelineRows.WithLabelValues(stage).Add(float64(rows))
}

// RecordResolve records rows dropped or collapsed during resolution.
func RecordResolve(dropped, collapsed int) {
	RecommendResolveDropped.Add(float64(dropped))
	RecommendResolveCollapsed.Add(float64(collapsed))
}

// RecordMessagesEmitted records messages handed to the sink.
func RecordMessagesEmitted(n int) {
	RecommendMessagesEmitted.Add(float64(n))
}

// RecordDatasetCached records a dataset materialized with rows rows.
func RecordDatasetCached(dataset string, rows int) {
	DatasetRows.WithLabelValues(dataset).Set(float64(rows))
}

// RecordDatasetReleased records a dataset release.
func RecordDatasetReleased(dataset string) {
	DatasetRows.WithLabelValues(dataset).Set(0)
	DatasetReleases.WithLabelValues(dataset).Inc()
}

// RecordDBQuery records a source query metric
func RecordDBQuery(backend, dataset string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(backend, dataset).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(backend, dataset, errorType).Inc()
	}
}

// RecordPublish records a publish attempt on a transport.
func RecordPublish(transport, msgType string, err error) {
	if err != nil {
		PublishErrors.WithLabelValues(transport).Inc()
		return
	}
	MessagesPublished.WithLabelValues(transport, msgType).Inc()
}

// RecordCircuitBreakerTransition records a breaker state change.
// States follow gobreaker: 0=closed, 1=half-open, 2=open.
func RecordCircuitBreakerTransition(name, from, to string, toState int) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(float64(toState))
}

// SetLedgerRecords publishes the number of stored run records.
func SetLedgerRecords(n int) {
	LedgerRecords.Set(float64(n))
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
