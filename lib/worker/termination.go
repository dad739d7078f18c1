package worker

import "time"

// Termination decides, at the top of every loop iteration, whether a
// worker should stop. A worker stops when any configured condition fires:
// wall-clock duration elapsed, the worker's own completed-iteration count
// reached its per-connection share of Limit, or an external shutdown
// signal was raised. Firing of either duration or limit is sufficient;
// there is no precedence between them (spec §9 Open Question, resolved).
type Termination struct {
	// Start is the instant the whole driver began, shared (by value) with
	// every worker.
	Start time.Time

	// Duration is the wall-clock cap. Zero means unset.
	Duration time.Duration

	// LimitPerConnection is this worker's share of the total request
	// Limit. HasLimit false means unset.
	LimitPerConnection uint32
	HasLimit           bool

	// Shutdown, if non-nil, is closed to signal every worker to stop as
	// soon as possible. It is optional: wiring an interrupt handler is an
	// external collaborator's responsibility.
	Shutdown <-chan struct{}
}

// ShouldStop reports whether the worker owning this Termination, having
// completed `count` iterations so far, should stop now.
func (t Termination) ShouldStop(count uint32) bool {
	if t.Duration > 0 && time.Since(t.Start) >= t.Duration {
		return true
	}
	if t.HasLimit && count >= t.LimitPerConnection {
		return true
	}
	if t.Shutdown != nil {
		select {
		case <-t.Shutdown:
			return true
		default:
		}
	}
	return false
}
