// Package healthcheck tracks, from a thread runner's own observations, a
// belief about whether each configured Target is currently reachable.
// There is no active probing: the belief is updated purely from the
// connect outcomes a worker already produces as part of its ordinary
// request loop, so a BeliefTracker adds no traffic of its own.
package healthcheck

import (
	"sync"

	"github.com/ragona/clobber/lib/core"
)

// CheckResult is the outcome of a single connect attempt, as observed by
// a connection worker.
type CheckResult uint8

const (
	CheckFail CheckResult = iota
	CheckSuccess
)

type beliefState uint8

const (
	healthy beliefState = iota
	unhealthy
)

// Config holds tuning for a BeliefTracker.
type Config struct {
	// MinFailuresToInferUnhealthy is the minimum number of consecutive
	// CheckFail observations before a target is believed unhealthy.
	MinFailuresToInferUnhealthy uint8

	// MinSuccessesToInferHealthy is the minimum number of consecutive
	// CheckSuccess observations before a target is believed healthy again.
	MinSuccessesToInferHealthy uint8
}

// BeliefTracker maintains a belief about the health of each registered
// Target. One instance is owned by a single thread runner and shared by
// every worker goroutine that runner starts; since those goroutines can
// run on distinct OS threads at once (see package runner's doc comment),
// each targetBeliefState's mutex is a genuine cross-thread lock on the
// connect hot path whenever more than one candidate target is
// configured. With a single target, the driver skips BeliefTracker
// entirely in favor of the lock-free AlwaysHealthyTracker.
type BeliefTracker struct {
	stateByTarget map[core.Target]*targetBeliefState
}

// NewBeliefTracker registers every given Target with an initial healthy
// belief.
func NewBeliefTracker(targets core.TargetSet, cfg Config) *BeliefTracker {
	stateByTarget := make(map[core.Target]*targetBeliefState, len(targets))
	for t := range targets {
		stateByTarget[t] = &targetBeliefState{cfg: cfg, state: healthy}
	}
	return &BeliefTracker{stateByTarget: stateByTarget}
}

// HealthyTargets returns the subset of candidates currently believed
// healthy. Unregistered candidates are dropped. If no candidate is both
// registered and believed healthy, HealthyTargets returns candidates
// unchanged, unregistered ones included: a worker
// with no feasible targets should keep trying, rather than stall forever
// (an unreachable target is just one failed loop iteration, per spec).
func (t *BeliefTracker) HealthyTargets(candidates core.TargetSet) core.TargetSet {
	result := core.EmptyTargetSet()
	for target := range candidates {
		state, exists := t.stateByTarget[target]
		if !exists {
			continue
		}
		if state.current() == healthy {
			result[target] = struct{}{}
		}
	}
	if len(result) == 0 {
		return candidates
	}
	return result
}

// Report records a single connect outcome for target.
func (t *BeliefTracker) Report(target core.Target, result CheckResult) {
	state, exists := t.stateByTarget[target]
	if !exists {
		return
	}
	state.update(result)
}

type targetBeliefState struct {
	cfg Config

	mu        sync.Mutex
	state     beliefState
	failures  uint8
	successes uint8
}

func minU8(a, b uint8) uint8 {
	if a < b {
		return a
	}
	return b
}

func (s *targetBeliefState) update(result CheckResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch result {
	case CheckSuccess:
		s.failures = 0
		s.successes = minU8(s.successes+1, s.cfg.MinSuccessesToInferHealthy)
		if s.successes >= s.cfg.MinSuccessesToInferHealthy {
			s.state = healthy
		}
	case CheckFail:
		s.successes = 0
		s.failures = minU8(s.failures+1, s.cfg.MinFailuresToInferUnhealthy)
		if s.failures >= s.cfg.MinFailuresToInferUnhealthy {
			s.state = unhealthy
		}
	}
}

func (s *targetBeliefState) current() beliefState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
