// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/cadence/internal/config"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	// TriggerRateLimit bounds POST /api/v1/runs per client IP.
	TriggerRateLimit RateLimitConfig

	// ReadRateLimit bounds the read endpoints per client IP.
	ReadRateLimit RateLimitConfig

	// Timeout bounds request handling.
	Timeout time.Duration
}

// DefaultRouterConfig allows 5 triggers and 600 reads per minute.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		TriggerRateLimit: RateLimitConfig{Requests: 5, Window: time.Minute},
		ReadRateLimit:    RateLimitConfig{Requests: 600, Window: time.Minute},
		Timeout:          30 * time.Second,
	}
}

// RouterConfigFrom applies server settings to DefaultRouterConfig.
func RouterConfigFrom(cfg *config.ServerConfig) RouterConfig {
	rc := DefaultRouterConfig()
	rc.TriggerRateLimit = RateLimitConfig{Requests: cfg.TriggerRateLimit, Window: cfg.TriggerRateWindow}
	if cfg.Timeout > 0 {
		rc.Timeout = cfg.Timeout
	}
	return rc
}

// NewRouter builds the chi router of the operational API:
//
//	GET  /metrics
//	GET  /api/v1/health
//	GET  /api/v1/runs
//	POST /api/v1/runs
//	GET  /api/v1/runs/{id}
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(PrometheusMetrics)
	if cfg.Timeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.Timeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())

		r.Group(func(r chi.Router) {
			r.Use(RateLimit(cfg.ReadRateLimit, "read"))
			r.Get("/health", h.Health)
			r.Get("/runs", h.ListRuns)
			r.Get("/runs/{id}", h.GetRun)
		})

		r.With(RateLimit(cfg.TriggerRateLimit, "trigger")).Post("/runs", h.TriggerRun)
	})

	return r
}
