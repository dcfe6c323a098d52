// Cadence - Batch Recording Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"fmt"
	"sync"
	"time"
)

// RunState is a stage of the run state machine.
type RunState int

const (
	StateLoading RunState = iota
	StateUserResolution
	StateScoring
	StateRanking
	StateEnriching
	StateAggregating
	StateEmitting
	StateDone
	StateFailed
)

var runStateNames = [...]string{
	StateLoading:        "LOADING",
	StateUserResolution: "USER_RESOLUTION",
	StateScoring:        "SCORING",
	StateRanking:        "RANKING",
	StateEnriching:      "ENRICHING",
	StateAggregating:    "AGGREGATING",
	StateEmitting:       "EMITTING",
	StateDone:           "DONE",
	StateFailed:         "FAILED",
}

// String returns the upper-case state name.
func (s RunState) String() string {
	if s < 0 || int(s) >= len(runStateNames) {
		return fmt.Sprintf("RunState(%d)", int(s))
	}
	return runStateNames[s]
}

// ParseRunState is the inverse of String.
func ParseRunState(name string) (RunState, error) {
	for i, n := range runStateNames {
		if n == name {
			return RunState(i), nil
		}
	}
	return 0, fmt.Errorf("unknown run state %q", name)
}

// Terminal reports whether s is DONE or FAILED.
func (s RunState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// MarshalText implements encoding.TextMarshaler.
func (s RunState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *RunState) UnmarshalText(b []byte) error {
	parsed, err := ParseRunState(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Transition records one state change.
type Transition struct {
	From RunState  `json:"from"`
	To   RunState  `json:"to"`
	At   time.Time `json:"at"`
}

// RunObserver is notified of every transition of a run.
type RunObserver interface {
	RunTransitioned(runID string, t Transition, err error)
}

// Run tracks the state of one pipeline execution. Stages advance strictly
// forward one step at a time; FAILED is reachable from any non-terminal
// state. There is no re-entry.
type Run struct {
	ID string

	mu          sync.Mutex
	state       RunState
	transitions []Transition
	err         error
	now         func() time.Time
	observers   []RunObserver
}

// NewRun creates a run in LOADING.
func NewRun(id string, now func() time.Time, observers ...RunObserver) *Run {
	if now == nil {
		now = time.Now
	}
	return &Run{ID: id, state: StateLoading, now: now, observers: observers}
}

// State returns the current state.
func (r *Run) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Err returns the failure cause of a FAILED run.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Transitions returns a copy of the transition history.
func (r *Run) Transitions() []Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Transition(nil), r.transitions...)
}

// Advance moves the run to the next stage. to must be the immediate
// successor of the current state.
func (r *Run) Advance(to RunState) error {
	r.mu.Lock()
	from := r.state
	if from.Terminal() || to == StateFailed || to != from+1 {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	t := r.record(to)
	r.mu.Unlock()

	r.notify(t, nil)
	return nil
}

// Fail moves the run to FAILED. Failing a terminal run is an error.
func (r *Run) Fail(cause error) error {
	r.mu.Lock()
	from := r.state
	if from.Terminal() {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, StateFailed)
	}
	r.err = cause
	t := r.record(StateFailed)
	r.mu.Unlock()

	r.notify(t, cause)
	return nil
}

// record must be called with mu held.
func (r *Run) record(to RunState) Transition {
	t := Transition{From: r.state, To: to, At: r.now()}
	r.state = to
	r.transitions = append(r.transitions, t)
	return t
}

func (r *Run) notify(t Transition, err error) {
	for _, o := range r.observers {
		o.RunTransitioned(r.ID, t, err)
	}
}
