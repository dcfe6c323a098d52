// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/recommend"
	"github.com/tomtom215/cadence/internal/runledger"
	"github.com/tomtom215/cadence/internal/supervisor/services"
	"github.com/tomtom215/cadence/internal/validation"
)

// Run listing bounds.
const (
	DefaultRunListLimit = 20
	MaxRunListLimit     = 500

	// maxTriggerBody caps the POST /api/v1/runs body.
	maxTriggerBody = 1 << 20
)

// RunTrigger starts manual runs.
//
// Satisfied by *services.RecommendService.
type RunTrigger interface {
	Trigger(ctx context.Context, opts recommend.RunOptions) (string, error)
	Running() bool
}

// RunStore reads run records.
//
// Satisfied by *runledger.Ledger.
type RunStore interface {
	Get(ctx context.Context, runID string) (*runledger.Record, error)
	List(ctx context.Context, limit int) ([]runledger.Record, error)
	Count(ctx context.Context) (int, error)
}

// StatsProvider reports engine activity.
//
// Satisfied by *recommend.Engine.
type StatsProvider interface {
	Stats() recommend.Stats
}

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// Handler serves the operational API.
type Handler struct {
	trigger   RunTrigger
	store     RunStore
	stats     StatsProvider
	checks    map[string]HealthCheck
	version   string
	startTime time.Time
}

// HandlerDeps are the dependencies of Handler. Stats and Checks are optional.
type HandlerDeps struct {
	Trigger RunTrigger
	Store   RunStore
	Stats   StatsProvider
	Checks  map[string]HealthCheck
	Version string
}

// NewHandler creates a handler.
func NewHandler(deps HandlerDeps) (*Handler, error) {
	if deps.Trigger == nil {
		return nil, errors.New("api handler requires a run trigger")
	}
	if deps.Store == nil {
		return nil, errors.New("api handler requires a run store")
	}
	return &Handler{
		trigger:   deps.Trigger,
		store:     deps.Store,
		stats:     deps.Stats,
		checks:    deps.Checks,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version,omitempty"`
	GoVersion     string            `json:"go_version"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	RunInProgress bool              `json:"run_in_progress"`
	LedgerRecords int               `json:"ledger_records"`
	Engine        *recommend.Stats  `json:"engine,omitempty"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// Health handles GET /api/v1/health. Any failing check answers 503 with
// status "degraded".
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		GoVersion:     runtime.Version(),
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		RunInProgress: h.trigger.Running(),
	}

	if h.stats != nil {
		stats := h.stats.Stats()
		resp.Engine = &stats
	}

	if n, err := h.store.Count(ctx); err == nil {
		resp.LedgerRecords = n
	} else {
		resp.Status = "degraded"
		resp.Checks = map[string]string{"ledger": err.Error()}
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if resp.Checks == nil {
			resp.Checks = make(map[string]string, len(names))
		}
		if err := h.checks[name](ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			logging.Ctx(r.Context()).Warn().Err(err).Str("check", name).Msg("Health check failed")
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	NewResponseWriter(w, r).Status(status, resp)
}

// ListRunsRequest holds the query parameters of GET /api/v1/runs.
type ListRunsRequest struct {
	Limit int `json:"limit" validate:"min=1,max=500"`
}

// ListRuns handles GET /api/v1/runs, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := ListRunsRequest{Limit: DefaultRunListLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			rw.ValidationError("limit must be an integer", map[string]interface{}{"field": "limit", "value": raw})
			return
		}
		req.Limit = n
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	records, err := h.store.List(r.Context(), req.Limit)
	if err != nil {
		rw.InternalError("Failed to list runs", err)
		return
	}
	if records == nil {
		records = []runledger.Record{}
	}
	rw.SuccessList(records, len(records))
}

// GetRun handles GET /api/v1/runs/{id}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	runID := chi.URLParam(r, "id")

	record, err := h.store.Get(r.Context(), runID)
	switch {
	case errors.Is(err, runledger.ErrRunNotFound):
		rw.NotFound("Run not found")
	case err != nil:
		rw.InternalError("Failed to load run", err)
	default:
		rw.Success(record)
	}
}

// TriggerRunRequest is the optional body of POST /api/v1/runs. Zero values
// fall back to the configured defaults.
type TriggerRunRequest struct {
	Limit int      `json:"limit" validate:"omitempty,min=1,max=10000"`
	Users []string `json:"users" validate:"omitempty,max=10000,unique,dive,user_key"`
	Mode  string   `json:"mode" validate:"omitempty,run_mode"`
}

// TriggerRunResponse is the 202 body of POST /api/v1/runs.
type TriggerRunResponse struct {
	RunID     string `json:"run_id"`
	StatusURL string `json:"status_url"`
}

// TriggerRun handles POST /api/v1/runs. The run executes in the background;
// its progress is visible at the returned status URL.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxTriggerBody))
	if err != nil {
		rw.BadRequest("Failed to read request body")
		return
	}

	var req TriggerRunRequest
	if len(bytes.TrimSpace(body)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			rw.BadRequest("Invalid request body: " + err.Error())
			return
		}
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	runID, err := h.trigger.Trigger(r.Context(), recommend.RunOptions{
		Limit: req.Limit,
		Users: req.Users,
		Mode:  recommend.Mode(req.Mode),
	})
	switch {
	case errors.Is(err, recommend.ErrRunInProgress):
		rw.Conflict("A recommendation run is already in progress")
		return
	case errors.Is(err, services.ErrServiceNotRunning):
		rw.ServiceUnavailable("Recommendation service is not running")
		return
	case err != nil:
		rw.InternalError("Failed to start run", err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("run_id", runID).Msg("Manual run accepted")

	statusURL := "/api/v1/runs/" + runID
	w.Header().Set("Location", statusURL)
	rw.Accepted(TriggerRunResponse{RunID: runID, StatusURL: statusURL})
}
