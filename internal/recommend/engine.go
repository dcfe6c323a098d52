// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cadence/internal/metrics"
)

// Dataset names used by the engine.
const (
	DatasetRecordings   = "recordings"
	DatasetUsers        = "users"
	DatasetCandidateSet = "candidate_set"
	DatasetHistory      = "recording_discovery"
)

// Sources loads the identifier directory and the candidate set.
// Implementations return errors wrapping ErrPathNotFound or
// ErrFileNotFetched when a dataset is missing or unreadable.
type Sources interface {
	Users(ctx context.Context) ([]UserMapping, error)
	Recordings(ctx context.Context) ([]ItemMapping, error)
	CandidateSet(ctx context.Context) ([]CandidatePair, error)
}

// HistorySource loads prior listens used for enrichment. Rows need not be
// deduplicated.
type HistorySource interface {
	History(ctx context.Context) ([]ListenRecord, error)
}

// ModelLoader returns the most recently created model.
type ModelLoader interface {
	LatestModel(ctx context.Context) (Model, ModelMeta, error)
}

// RawRecorder persists the enriched rows of a run before aggregation.
type RawRecorder interface {
	SaveRawRecommendations(ctx context.Context, runID string, recs []EnrichedRecommendation) error
}

// Dependencies are the collaborators of an Engine. Sources, Models and Sink
// are required.
type Dependencies struct {
	Sources Sources
	History HistorySource
	Models  ModelLoader
	Sink    Sink
	Raw     RawRecorder

	// Observers receive every run state transition.
	Observers []RunObserver

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// RunOptions overrides configuration for a single run. Zero values fall
// back to the engine configuration.
type RunOptions struct {
	RunID string
	Limit int
	Users []string
	Mode  Mode
}

// RunResult describes a finished run, successful or not.
type RunResult struct {
	RunID           string       `json:"run_id"`
	State           RunState     `json:"state"`
	Mode            Mode         `json:"mode"`
	Limit           int          `json:"limit"`
	Model           ModelMeta    `json:"model"`
	Digest          RunDigest    `json:"digest"`
	Resolve         ResolveStats `json:"resolve"`
	MessagesEmitted int          `json:"messages_emitted"`
	StartedAt       time.Time    `json:"started_at"`
	FinishedAt      time.Time    `json:"finished_at"`
}

// Stats is a snapshot of engine activity.
type Stats struct {
	Runs       int64      `json:"runs"`
	Failures   int64      `json:"failures"`
	InProgress bool       `json:"in_progress"`
	LastResult *RunResult `json:"last_result,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// Engine executes recommendation runs. One run executes at a time.
type Engine struct {
	config *Config
	deps   Dependencies
	logger zerolog.Logger
	now    func() time.Time

	running    sync.Mutex
	inProgress atomic.Bool

	runs     atomic.Int64
	failures atomic.Int64

	lastMu     sync.RWMutex
	lastResult *RunResult
	lastErr    error
}

// NewEngine creates an engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, deps Dependencies, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if deps.Sources == nil {
		return nil, errors.New("sources are required")
	}
	if deps.Models == nil {
		return nil, errors.New("model loader is required")
	}
	if deps.Sink == nil {
		return nil, errors.New("sink is required")
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		config: cfg.Clone(),
		deps:   deps,
		logger: logger.With().Str("component", "recommend").Logger(),
		now:    now,
	}, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}

// Stats returns a snapshot of engine activity.
func (e *Engine) Stats() Stats {
	e.lastMu.RLock()
	defer e.lastMu.RUnlock()

	s := Stats{
		Runs:       e.runs.Load(),
		Failures:   e.failures.Load(),
		InProgress: e.inProgress.Load(),
		LastResult: e.lastResult,
	}
	if e.lastErr != nil {
		s.LastError = e.lastErr.Error()
	}
	return s
}

// runParams are the effective parameters of one run.
type runParams struct {
	id    string
	limit int
	users []string
	mode  Mode
}

func (e *Engine) params(opts RunOptions) (runParams, error) {
	p := runParams{
		id:    opts.RunID,
		limit: opts.Limit,
		users: opts.Users,
		mode:  opts.Mode,
	}
	if p.id == "" {
		p.id = uuid.New().String()
	}
	if p.limit == 0 {
		p.limit = e.config.Limit
	}
	if p.limit < 0 {
		return p, fmt.Errorf("limit must be positive, got %d", p.limit)
	}
	if p.users == nil {
		p.users = e.config.Users
	}
	if p.mode == "" {
		p.mode = e.config.Mode
	}
	if !p.mode.Valid() {
		return p, fmt.Errorf("unknown mode %q", p.mode)
	}
	return p, nil
}

// execution carries the per-run state shared by the stages.
type execution struct {
	run       *Run
	res       *Resources
	params    runParams
	log       zerolog.Logger
	result    *RunResult
	stageFrom time.Time
	now       func() time.Time
}

func (x *execution) advance(to RunState) error {
	from := x.run.State()
	if err := x.run.Advance(to); err != nil {
		return err
	}
	at := x.now()
	metrics.RecordRunStage(from.String(), at.Sub(x.stageFrom))
	x.stageFrom = at
	return nil
}

func (x *execution) fail(detail string, err error) error {
	stage := x.run.State()
	se := &StageError{RunID: x.run.ID, Stage: stage, Detail: detail, Err: err}
	if ferr := x.run.Fail(se); ferr != nil {
		x.log.Warn().Err(ferr).Msg("Run already terminal")
	}
	x.log.Error().
		Err(err).
		Str("stage", stage.String()).
		Str("detail", detail).
		Msg("Recommendation run failed")
	return se
}

// Run executes one recommendation run. On success every user bundle and the
// digest have been delivered to the sink. On failure before EMITTING no
// message is delivered; the returned error is a *StageError.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if !e.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer e.running.Unlock()

	e.inProgress.Store(true)
	defer e.inProgress.Store(false)

	params, err := e.params(opts)
	if err != nil {
		return nil, err
	}

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	res := NewResources(e.now)
	observers := append([]RunObserver{metricsObserver{}}, e.deps.Observers...)
	x := &execution{
		run:       NewRun(params.id, e.now, observers...),
		res:       res,
		params:    params,
		log:       e.logger.With().Str("run_id", params.id).Logger(),
		stageFrom: res.StartedAt(),
		now:       e.now,
		result: &RunResult{
			RunID:     params.id,
			Mode:      params.mode,
			Limit:     params.limit,
			StartedAt: res.StartedAt(),
		},
	}

	defer func() {
		if released := res.ReleaseAll(); len(released) > 0 {
			x.log.Debug().Strs("datasets", released).Msg("Released cached datasets")
		}
	}()

	x.log.Info().
		Str("mode", string(params.mode)).
		Int("limit", params.limit).
		Int("user_filter", len(params.users)).
		Msg("Starting recommendation run")

	runErr := e.execute(ctx, x)

	x.result.State = x.run.State()
	x.result.FinishedAt = e.now()
	duration := x.result.FinishedAt.Sub(x.result.StartedAt)

	e.runs.Add(1)
	e.lastMu.Lock()
	e.lastResult = x.result
	e.lastErr = runErr
	e.lastMu.Unlock()

	if runErr != nil {
		e.failures.Add(1)
		metrics.RecordRecommendRun("failed", duration)
		return x.result, runErr
	}

	metrics.RecordRecommendRun("success", duration)
	metrics.SetRunDigest(x.result.Digest.ActiveUserCount, x.result.Digest.UsersWithRecommendations)
	x.log.Info().
		Int("active_users", x.result.Digest.ActiveUserCount).
		Int("users_with_recommendations", x.result.Digest.UsersWithRecommendations).
		Int("messages", x.result.MessagesEmitted).
		Str("total_hours", HoursOf(x.result.Digest.TotalTime).String()).
		Msg("Recommendation run complete")
	return x.result, nil
}

//nolint:gocyclo // sequential pipeline stages
func (e *Engine) execute(ctx context.Context, x *execution) error {
	recordings := Track(x.res, DatasetRecordings, e.deps.Sources.Recordings)
	users := Track(x.res, DatasetUsers, e.deps.Sources.Users)
	history := Track(x.res, DatasetHistory, e.history)

	// LOADING
	x.log.Info().Msg("Loading model")
	model, meta, err := e.deps.Models.LatestModel(ctx)
	if err != nil {
		return x.fail("load latest model", err)
	}
	x.result.Model = meta
	x.log.Info().Str("model_id", meta.ModelID).Str("model", model.Name()).Msg("Model loaded")

	recordingCount, err := recordings.Materialize(ctx)
	if err != nil {
		return x.fail("materialize recordings", err)
	}
	x.log.Debug().Int("rows", recordingCount).Msg("Recordings cached")

	// USER_RESOLUTION
	if err := x.advance(StateUserResolution); err != nil {
		return x.fail("advance", err)
	}
	resolveStart := e.now()
	if _, err := users.Materialize(ctx); err != nil {
		return x.fail("materialize users", err)
	}
	allUsers, err := users.Rows()
	if err != nil {
		return x.fail("read users", err)
	}
	active := ActiveUsers(allUsers, x.params.users)
	if len(active) == 0 {
		return x.fail(fmt.Sprintf("no active users found (filter %v)", x.params.users), ErrEmptyDataset)
	}
	x.res.SetActiveUsers(len(active))
	x.log.Info().
		Int("active_users", len(active)).
		Dur("took", e.now().Sub(resolveStart)).
		Msg("Resolved active users")

	// SCORING
	if err := x.advance(StateScoring); err != nil {
		return x.fail("advance", err)
	}
	generateStart := e.now()
	input, err := e.modelInput(ctx, x, active)
	if err != nil {
		return err
	}
	preds, err := RunModel(ctx, model, input)
	if err != nil {
		return x.fail(fmt.Sprintf("model %s (%s)", meta.ModelID, input.Mode), err)
	}
	metrics.RecordPipelineRows("scored", len(preds))
	x.log.Info().
		Int("predictions", len(preds)).
		Dur("took", e.now().Sub(generateStart)).
		Msg("Recommendations generated")

	// RANKING
	if err := x.advance(StateRanking); err != nil {
		return x.fail("advance", err)
	}
	ranked := Rank(preds, x.params.limit)
	preds = nil //nolint:ineffassign,wastedassign // release predictions before resolution
	metrics.RecordPipelineRows("ranked", len(ranked))

	items, err := recordings.Rows()
	if err != nil {
		return x.fail("read recordings", err)
	}
	resolved, stats := Resolve(ranked, NewDirectory(active, items), x.params.limit)
	ranked = nil //nolint:ineffassign,wastedassign // release ranked rows once resolved
	x.result.Resolve = stats
	metrics.RecordResolve(stats.Dropped, stats.Collapsed)
	metrics.RecordPipelineRows("resolved", len(resolved))
	recordings.Release()
	if stats.Dropped > 0 {
		x.log.Debug().Int("dropped", stats.Dropped).Msg("Dropped rows without identifier mapping")
	}

	// ENRICHING
	if err := x.advance(StateEnriching); err != nil {
		return x.fail("advance", err)
	}
	if _, err := history.Materialize(ctx); err != nil {
		return x.fail("materialize history", err)
	}
	listens, err := history.Rows()
	if err != nil {
		return x.fail("read history", err)
	}
	enriched := Enrich(resolved, listens)
	history.Release()
	metrics.RecordPipelineRows("enriched", len(enriched))

	if e.config.SaveRaw && e.deps.Raw != nil {
		if err := e.deps.Raw.SaveRawRecommendations(ctx, x.run.ID, enriched); err != nil {
			return x.fail("save raw recommendations", err)
		}
	}

	// AGGREGATING
	if err := x.advance(StateAggregating); err != nil {
		return x.fail("advance", err)
	}
	bundles := Aggregate(enriched, x.params.limit)

	// EMITTING
	if err := x.advance(StateEmitting); err != nil {
		return x.fail("advance", err)
	}
	digest := NewRunDigest(x.res.ActiveUsers(), bundles, x.res.Elapsed())
	x.result.Digest = digest
	x.log.Info().Dur("total", digest.TotalTime).Msg("Total time")

	msgs := BuildMessages(bundles, NewProvenance(meta, e.config.ReportBaseURL), digest)
	users.Release()

	n, err := Emit(ctx, e.deps.Sink, msgs)
	x.result.MessagesEmitted = n
	metrics.RecordMessagesEmitted(n)
	if err != nil {
		return x.fail(fmt.Sprintf("emitted %d of %d messages", n, len(msgs)), err)
	}

	if err := x.advance(StateDone); err != nil {
		return x.fail("advance", err)
	}
	return nil
}

// modelInput builds the runner input for the active users. In candidate-set
// mode the candidate set is loaded, restricted to the active users and
// released before returning.
func (e *Engine) modelInput(ctx context.Context, x *execution, active []UserMapping) (ModelInput, error) {
	ids := make([]int64, 0, len(active))
	seen := make(map[int64]struct{}, len(active))
	for _, u := range active {
		if _, ok := seen[u.InternalID]; ok {
			continue
		}
		seen[u.InternalID] = struct{}{}
		ids = append(ids, u.InternalID)
	}
	slices.Sort(ids)

	if x.params.mode == ModeUserSubset {
		return ModelInput{
			Mode:    ModeUserSubset,
			Users:   ids,
			PerUser: e.config.perUser(x.params.limit),
		}, nil
	}

	candidates := Track(x.res, DatasetCandidateSet, e.deps.Sources.CandidateSet)
	defer candidates.Release()

	if _, err := candidates.Materialize(ctx); err != nil {
		return ModelInput{}, x.fail("materialize candidate set", err)
	}
	rows, err := candidates.Rows()
	if err != nil {
		return ModelInput{}, x.fail("read candidate set", err)
	}

	subset := make([]CandidatePair, 0, len(rows))
	for _, c := range rows {
		if _, ok := seen[c.UserID]; ok {
			subset = append(subset, c)
		}
	}
	if len(subset) == 0 {
		x.log.Error().Msg("Candidate set not found for any user")
		return ModelInput{}, x.fail("empty candidate set", ErrEmptyDataset)
	}
	return ModelInput{Mode: ModeCandidateSet, Candidates: subset}, nil
}

func (e *Engine) history(ctx context.Context) ([]ListenRecord, error) {
	if e.deps.History == nil {
		return nil, nil
	}
	return e.deps.History.History(ctx)
}

// ActiveUsers returns the distinct user mappings selected by filter, in
// ascending internal id order. An empty filter selects every user; filter
// entries without a mapping are ignored.
func ActiveUsers(all []UserMapping, filter []string) []UserMapping {
	var want map[string]struct{}
	if len(filter) > 0 {
		want = make(map[string]struct{}, len(filter))
		for _, u := range filter {
			want[u] = struct{}{}
		}
	}

	seen := make(map[UserMapping]struct{}, len(all))
	out := make([]UserMapping, 0, len(all))
	for _, u := range all {
		if want != nil {
			if _, ok := want[u.UserKey]; !ok {
				continue
			}
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}

	slices.SortStableFunc(out, func(a, b UserMapping) int {
		if c := cmp.Compare(a.InternalID, b.InternalID); c != 0 {
			return c
		}
		return strings.Compare(a.UserKey, b.UserKey)
	})
	return out
}

// metricsObserver mirrors run transitions into Prometheus.
type metricsObserver struct{}

func (metricsObserver) RunTransitioned(_ string, t Transition, _ error) {
	metrics.SetRunState(t.To.String())
}
