// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cadence/internal/recommend"
	"github.com/tomtom215/cadence/internal/runledger"
	"github.com/tomtom215/cadence/internal/supervisor/services"
)

type mockTrigger struct {
	mu      sync.Mutex
	calls   []recommend.RunOptions
	err     error
	running bool
}

func (m *mockTrigger) Trigger(_ context.Context, opts recommend.RunOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.calls = append(m.calls, opts)
	return fmt.Sprintf("run-%d", len(m.calls)), nil
}

func (m *mockTrigger) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

type mockStore struct {
	records   []runledger.Record
	err       error
	countErr  error
	lastLimit int
}

func (m *mockStore) Get(_ context.Context, runID string) (*runledger.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.records {
		if m.records[i].RunID == runID {
			return &m.records[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", runledger.ErrRunNotFound, runID)
}

func (m *mockStore) List(_ context.Context, limit int) ([]runledger.Record, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.records) {
		return m.records[:limit], nil
	}
	return m.records, nil
}

func (m *mockStore) Count(_ context.Context) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.records), nil
}

type mockStats struct{ stats recommend.Stats }

func (m mockStats) Stats() recommend.Stats { return m.stats }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func testRecords() []runledger.Record {
	started := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Minute)
	return []runledger.Record{
		{
			RunID:           "run-b",
			Trigger:         runledger.TriggerManual,
			State:           recommend.StateDone,
			Mode:            recommend.ModeUserSubset,
			Limit:           1000,
			MessagesEmitted: 3,
			Digest:          &recommend.RunDigest{ActiveUserCount: 2, UsersWithRecommendations: 2, TotalTime: 90 * time.Minute},
			StartedAt:       started,
			FinishedAt:      &finished,
		},
		{
			RunID:     "run-a",
			Trigger:   runledger.TriggerSchedule,
			State:     recommend.StateFailed,
			Error:     "stage SCORING: empty candidate set",
			StartedAt: started.Add(-24 * time.Hour),
		},
	}
}

func newTestRouter(t *testing.T, trigger *mockTrigger, store *mockStore, checks map[string]HealthCheck, cfg RouterConfig) http.Handler {
	t.Helper()
	h, err := NewHandler(HandlerDeps{
		Trigger: trigger,
		Store:   store,
		Stats:   mockStats{stats: recommend.Stats{Runs: 4, Failures: 1}},
		Checks:  checks,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return NewRouter(h, cfg)
}

func doRequest(t *testing.T, handler http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func TestNewHandler_RequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewHandler(HandlerDeps{Store: &mockStore{}}); err == nil {
		t.Error("expected error without trigger")
	}
	if _, err := NewHandler(HandlerDeps{Trigger: &mockTrigger{}}); err == nil {
		t.Error("expected error without store")
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		checks     map[string]HealthCheck
		countErr   error
		wantStatus int
		wantState  string
		wantChecks map[string]string
	}{
		{
			name:       "healthy without checks",
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name: "all checks pass",
			checks: map[string]HealthCheck{
				"duckdb": func(context.Context) error { return nil },
				"broker": func(context.Context) error { return nil },
			},
			wantStatus: http.StatusOK,
			wantState:  "healthy",
			wantChecks: map[string]string{"duckdb": "ok", "broker": "ok"},
		},
		{
			name: "failing check degrades",
			checks: map[string]HealthCheck{
				"duckdb":      func(context.Context) error { return nil },
				"listenstore": func(context.Context) error { return errors.New("connection refused") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "degraded",
			wantChecks: map[string]string{"duckdb": "ok", "listenstore": "connection refused"},
		},
		{
			name:       "ledger failure degrades",
			countErr:   errors.New("badger closed"),
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "degraded",
			wantChecks: map[string]string{"ledger": "badger closed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &mockStore{records: testRecords(), countErr: tt.countErr}
			router := newTestRouter(t, &mockTrigger{running: true}, store, tt.checks, DefaultRouterConfig())

			rec, env := doRequest(t, router, http.MethodGet, "/api/v1/health", "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}

			var health HealthResponse
			if err := json.Unmarshal(env.Data, &health); err != nil {
				t.Fatalf("decode health: %v", err)
			}
			if health.Status != tt.wantState {
				t.Errorf("status = %q, want %q", health.Status, tt.wantState)
			}
			if !health.RunInProgress {
				t.Error("run_in_progress = false, want true")
			}
			if health.Engine == nil || health.Engine.Runs != 4 {
				t.Errorf("engine = %+v", health.Engine)
			}
			if tt.countErr == nil && health.LedgerRecords != 2 {
				t.Errorf("ledger_records = %d, want 2", health.LedgerRecords)
			}
			if len(health.Checks) != len(tt.wantChecks) {
				t.Errorf("checks = %v, want %v", health.Checks, tt.wantChecks)
			}
			for name, want := range tt.wantChecks {
				if health.Checks[name] != want {
					t.Errorf("checks[%s] = %q, want %q", name, health.Checks[name], want)
				}
			}
			if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("missing security headers")
			}
		})
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		query     string
		storeErr  error
		status    int
		wantLimit int
		wantCount int
	}{
		{"default limit", "", nil, http.StatusOK, DefaultRunListLimit, 2},
		{"explicit limit", "?limit=1", nil, http.StatusOK, 1, 1},
		{"limit too large", "?limit=501", nil, http.StatusBadRequest, 0, 0},
		{"limit zero", "?limit=0", nil, http.StatusBadRequest, 0, 0},
		{"limit not a number", "?limit=ten", nil, http.StatusBadRequest, 0, 0},
		{"store failure", "", errors.New("iterator closed"), http.StatusInternalServerError, DefaultRunListLimit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &mockStore{records: testRecords(), err: tt.storeErr}
			router := newTestRouter(t, &mockTrigger{}, store, nil, DefaultRouterConfig())

			rec, env := doRequest(t, router, http.MethodGet, "/api/v1/runs"+tt.query, "")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			if store.lastLimit != tt.wantLimit {
				t.Errorf("store limit = %d, want %d", store.lastLimit, tt.wantLimit)
			}
			if rec.Code != http.StatusOK {
				if env.Success || env.Error == nil {
					t.Errorf("error envelope = %+v", env)
				}
				return
			}

			var records []runledger.Record
			if err := json.Unmarshal(env.Data, &records); err != nil {
				t.Fatalf("decode records: %v", err)
			}
			if len(records) != tt.wantCount {
				t.Errorf("records = %d, want %d", len(records), tt.wantCount)
			}
			if env.Meta == nil || env.Meta.Count == nil || *env.Meta.Count != tt.wantCount {
				t.Errorf("meta = %+v", env.Meta)
			}
		})
	}
}

func TestListRuns_Empty(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &mockTrigger{}, &mockStore{}, nil, DefaultRouterConfig())
	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/runs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if string(env.Data) != "[]" {
		t.Errorf("data = %s, want []", env.Data)
	}
}

func TestGetRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		id       string
		storeErr error
		status   int
	}{
		{"found", "run-b", nil, http.StatusOK},
		{"not found", "run-z", nil, http.StatusNotFound},
		{"store failure", "run-b", errors.New("badger closed"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &mockStore{records: testRecords(), err: tt.storeErr}
			router := newTestRouter(t, &mockTrigger{}, store, nil, DefaultRouterConfig())

			rec, env := doRequest(t, router, http.MethodGet, "/api/v1/runs/"+tt.id, "")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if rec.Code != http.StatusOK {
				return
			}

			var record runledger.Record
			if err := json.Unmarshal(env.Data, &record); err != nil {
				t.Fatalf("decode record: %v", err)
			}
			if record.RunID != "run-b" || record.State != recommend.StateDone {
				t.Errorf("record = %+v", record)
			}
			if record.Digest == nil || record.Digest.ActiveUserCount != 2 {
				t.Errorf("digest = %+v", record.Digest)
			}
			if !strings.Contains(rec.Body.String(), `"state":"DONE"`) {
				t.Errorf("state not rendered by name: %s", rec.Body.String())
			}
		})
	}
}

func TestTriggerRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		triggerErr error
		status     int
		wantOpts   *recommend.RunOptions
		wantCode   string
	}{
		{
			name:     "empty body uses defaults",
			status:   http.StatusAccepted,
			wantOpts: &recommend.RunOptions{},
		},
		{
			name:     "explicit options",
			body:     `{"limit": 50, "users": ["alice", "bob"], "mode": "candidate_set"}`,
			status:   http.StatusAccepted,
			wantOpts: &recommend.RunOptions{Limit: 50, Users: []string{"alice", "bob"}, Mode: recommend.ModeCandidateSet},
		},
		{
			name:     "malformed json",
			body:     `{"limit": `,
			status:   http.StatusBadRequest,
			wantCode: ErrCodeBadRequest,
		},
		{
			name:     "unknown field",
			body:     `{"limt": 5}`,
			status:   http.StatusBadRequest,
			wantCode: ErrCodeBadRequest,
		},
		{
			name:     "invalid mode",
			body:     `{"mode": "popular"}`,
			status:   http.StatusBadRequest,
			wantCode: ErrCodeValidationFailed,
		},
		{
			name:     "negative limit",
			body:     `{"limit": -3}`,
			status:   http.StatusBadRequest,
			wantCode: ErrCodeValidationFailed,
		},
		{
			name:     "duplicate users",
			body:     `{"users": ["alice", "alice"]}`,
			status:   http.StatusBadRequest,
			wantCode: ErrCodeValidationFailed,
		},
		{
			name:       "run in progress",
			triggerErr: recommend.ErrRunInProgress,
			status:     http.StatusConflict,
			wantCode:   ErrCodeConflict,
		},
		{
			name:       "service not running",
			triggerErr: services.ErrServiceNotRunning,
			status:     http.StatusServiceUnavailable,
			wantCode:   ErrCodeServiceUnavailable,
		},
		{
			name:       "ledger failure",
			triggerErr: errors.New("record run: disk full"),
			status:     http.StatusInternalServerError,
			wantCode:   ErrCodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			trigger := &mockTrigger{err: tt.triggerErr}
			router := newTestRouter(t, trigger, &mockStore{}, nil, DefaultRouterConfig())

			rec, env := doRequest(t, router, http.MethodPost, "/api/v1/runs", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}

			if tt.wantCode != "" {
				if env.Error == nil || env.Error.Code != tt.wantCode {
					t.Errorf("error = %+v, want code %s", env.Error, tt.wantCode)
				}
				if tt.triggerErr == nil && len(trigger.calls) != 0 {
					t.Error("invalid request reached the trigger")
				}
				return
			}

			var resp TriggerRunResponse
			if err := json.Unmarshal(env.Data, &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.RunID != "run-1" || resp.StatusURL != "/api/v1/runs/run-1" {
				t.Errorf("response = %+v", resp)
			}
			if rec.Header().Get("Location") != resp.StatusURL {
				t.Errorf("Location = %q", rec.Header().Get("Location"))
			}

			if len(trigger.calls) != 1 {
				t.Fatalf("trigger calls = %d, want 1", len(trigger.calls))
			}
			got := trigger.calls[0]
			if got.Limit != tt.wantOpts.Limit || got.Mode != tt.wantOpts.Mode || len(got.Users) != len(tt.wantOpts.Users) {
				t.Errorf("options = %+v, want %+v", got, *tt.wantOpts)
			}
		})
	}
}

func TestRouter_NotFoundAndMethods(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &mockTrigger{}, &mockStore{}, nil, DefaultRouterConfig())

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/unknown", "")
	if rec.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("unknown path: status %d, error %+v", rec.Code, env.Error)
	}

	rec, _ = doRequest(t, router, http.MethodDelete, "/api/v1/runs", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /api/v1/runs status = %d, want 405", rec.Code)
	}
}
