// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/recommend"
	"github.com/tomtom215/cadence/internal/runledger"
)

// ErrServiceNotRunning is returned by Trigger before Serve has started.
var ErrServiceNotRunning = errors.New("recommendation service is not running")

// RunEngine executes recommendation runs.
//
// Satisfied by *recommend.Engine.
type RunEngine interface {
	Run(ctx context.Context, opts recommend.RunOptions) (*recommend.RunResult, error)
}

// RunLedger records runs.
//
// Satisfied by *runledger.Ledger. The ledger also observes run transitions;
// that hook is registered on the engine, not here.
type RunLedger interface {
	Begin(ctx context.Context, req runledger.Request) error
	Finish(ctx context.Context, runID string, result *recommend.RunResult, runErr error) error
	Prune(ctx context.Context) (int, error)
}

// RecommendServiceConfig holds configuration for the recommendation service.
type RecommendServiceConfig struct {
	// Cron is a standard five-field cron expression. Empty disables
	// scheduled runs; manual triggers still work.
	Cron string

	// RunOnStart triggers a run when the service starts.
	RunOnStart bool

	// PruneInterval is how often expired ledger records are removed.
	// Default: 1h
	PruneInterval time.Duration
}

// RecommendService runs the recommendation pipeline under suture
// supervision: on a cron schedule, once at start, or on demand through
// Trigger. At most one run executes at a time; every accepted run is
// recorded in the ledger.
type RecommendService struct {
	engine   RunEngine
	ledger   RunLedger
	config   RecommendServiceConfig
	schedule cron.Schedule
	logger   zerolog.Logger
	name     string

	busy atomic.Bool

	// mu guards base. base is the Serve context, parent of every
	// asynchronous run.
	mu   sync.Mutex
	base context.Context
	wg   sync.WaitGroup
}

// NewRecommendService creates a new recommendation service. ledger may be
// nil, in which case runs are not recorded.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRecommendService(engine RunEngine, ledger RunLedger, cfg RecommendServiceConfig, logger zerolog.Logger) (*RecommendService, error) {
	if engine == nil {
		return nil, errors.New("recommendation service requires an engine")
	}
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = time.Hour
	}

	s := &RecommendService{
		engine: engine,
		ledger: ledger,
		config: cfg,
		logger: logger.With().Str("service", "recommend").Logger(),
		name:   "recommend-service",
	}

	if cfg.Cron != "" {
		sched, err := cron.ParseStandard(cfg.Cron)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Cron, err)
		}
		s.schedule = sched
	}
	return s, nil
}

// Serve implements suture.Service.
func (s *RecommendService) Serve(ctx context.Context) error {
	defer s.wg.Wait()
	s.setBase(ctx)
	defer s.setBase(nil)

	s.logger.Info().
		Str("schedule", s.config.Cron).
		Bool("run_on_start", s.config.RunOnStart).
		Msg("Recommendation service starting")

	if s.config.RunOnStart {
		s.launch(runledger.TriggerStartup)
	}

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	arm := func() {
		if s.schedule == nil {
			return
		}
		now := time.Now()
		next := s.schedule.Next(now)
		if timer == nil {
			timer = time.NewTimer(next.Sub(now))
		} else {
			timer.Reset(next.Sub(now))
		}
		timerC = timer.C
		s.logger.Debug().Time("next_run", next).Msg("Next scheduled run")
	}
	arm()
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	prune := time.NewTicker(s.config.PruneInterval)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Recommendation service shutting down")
			return ctx.Err()

		case <-timerC:
			s.launch(runledger.TriggerSchedule)
			arm()

		case <-prune.C:
			s.prune(ctx)
		}
	}
}

// Trigger starts a manual run in the background and returns its run id.
// It returns recommend.ErrRunInProgress while another run executes.
func (s *RecommendService) Trigger(ctx context.Context, opts recommend.RunOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.base == nil {
		return "", ErrServiceNotRunning
	}
	if !s.busy.CompareAndSwap(false, true) {
		return "", recommend.ErrRunInProgress
	}

	opts, err := s.begin(ctx, runledger.TriggerManual, opts)
	if err != nil {
		s.busy.Store(false)
		return "", err
	}

	base := s.base
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)
		_, _ = s.execute(base, runledger.TriggerManual, opts)
	}()
	return opts.RunID, nil
}

// RunOnce executes one run synchronously and returns its result.
func (s *RecommendService) RunOnce(ctx context.Context, trigger string, opts recommend.RunOptions) (*recommend.RunResult, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, recommend.ErrRunInProgress
	}
	defer s.busy.Store(false)

	opts, err := s.begin(ctx, trigger, opts)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, trigger, opts)
}

// Running reports whether a run is executing.
func (s *RecommendService) Running() bool {
	return s.busy.Load()
}

// launch starts a scheduled or startup run unless one is executing.
func (s *RecommendService) launch(trigger string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.base == nil {
		return
	}
	if !s.busy.CompareAndSwap(false, true) {
		s.logger.Warn().Str("trigger", trigger).Msg("Skipping run, previous run still in progress")
		return
	}

	base := s.base
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)

		opts, err := s.begin(base, trigger, recommend.RunOptions{})
		if err != nil {
			s.logger.Error().Err(err).Str("trigger", trigger).Msg("Failed to record run")
			return
		}
		_, _ = s.execute(base, trigger, opts)
	}()
}

// begin assigns a run id and records the run in the ledger.
func (s *RecommendService) begin(ctx context.Context, trigger string, opts recommend.RunOptions) (recommend.RunOptions, error) {
	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}
	if s.ledger == nil {
		return opts, nil
	}
	err := s.ledger.Begin(ctx, runledger.Request{
		RunID:   opts.RunID,
		Trigger: trigger,
		Mode:    opts.Mode,
		Limit:   opts.Limit,
		Users:   opts.Users,
	})
	if err != nil {
		return opts, fmt.Errorf("record run: %w", err)
	}
	return opts, nil
}

// execute runs the engine with the run id as correlation id and stores the
// outcome. The caller must hold busy.
func (s *RecommendService) execute(ctx context.Context, trigger string, opts recommend.RunOptions) (*recommend.RunResult, error) {
	ctx = logging.ContextWithCorrelationID(ctx, opts.RunID)
	log := s.logger.With().Str("run_id", opts.RunID).Str("trigger", trigger).Logger()

	start := time.Now()
	log.Info().Msg("Recommendation run triggered")

	result, runErr := s.engine.Run(ctx, opts)

	if s.ledger != nil {
		// The run context may be canceled by now; the outcome is still recorded.
		if err := s.ledger.Finish(context.WithoutCancel(ctx), opts.RunID, result, runErr); err != nil {
			log.Error().Err(err).Msg("Failed to record run outcome")
		}
	}

	if runErr != nil {
		log.Error().Err(runErr).Dur("duration", time.Since(start)).Msg("Recommendation run failed")
		return result, runErr
	}
	log.Info().Dur("duration", time.Since(start)).Msg("Recommendation run finished")
	return result, nil
}

func (s *RecommendService) prune(ctx context.Context) {
	if s.ledger == nil {
		return
	}
	n, err := s.ledger.Prune(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Ledger prune failed")
		return
	}
	if n > 0 {
		s.logger.Info().Int("removed", n).Msg("Pruned expired run records")
	}
}

func (s *RecommendService) setBase(ctx context.Context) {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()
}

// String returns the service name for logging.
func (s *RecommendService) String() string {
	return s.name
}
