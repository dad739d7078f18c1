// Package worker implements the connection worker state machine: one
// long-lived loop of connect, write/read (repeated Repeat times), close,
// advance the payload mutator, and optionally pace to a target rate.
package worker

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/ragona/clobber/lib/core"
	"github.com/ragona/clobber/lib/dialer"
	"github.com/ragona/clobber/lib/healthcheck"
	"github.com/ragona/clobber/lib/mutator"
	"github.com/ragona/clobber/lib/slog"
)

// readBufferSize is the size of the fixed scratch area a worker reads
// into, never resized.
const readBufferSize = 4096

// Stats is a worker's local, unshared request accounting. No other
// goroutine touches it; it is read back only after the worker is Done.
type Stats struct {
	ClosedConnections uint32
	ConnectFailures   uint64
	ExchangeFailures  uint64
	PacingUnderruns   uint64
}

// Deps bundles the collaborators a single Worker needs. Mutator must be
// exclusively owned by this worker (never shared with another goroutine).
// Dialer may be shared with other workers (a TargetDialer is safe for
// concurrent use). DialPolicy and Tracker are typically shared with
// sibling workers on the same thread runner (never across thread
// runners), so implementations of those two interfaces must be safe for
// concurrent use by every worker goroutine a runner starts.
type Deps struct {
	ID             string
	Logger         slog.Logger
	Mutator        mutator.Mutator
	Dialer         dialer.TargetDialer
	DialPolicy     dialer.DialPolicy
	Tracker        healthcheck.Tracker
	Candidates     core.TargetSet
	Repeat         uint32
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Delay          time.Duration // connection_delay; <= 0 means no pacing
	Term           Termination
}

// Worker drives one connection loop. It owns at most one open connection
// at a time and reuses one fixed-size read buffer for every read.
type Worker struct {
	deps  Deps
	stats Stats
}

// New returns a Worker ready to Run. If deps.Tracker is nil, every
// candidate target is always considered healthy.
func New(deps Deps) *Worker {
	if deps.Tracker == nil {
		deps.Tracker = healthcheck.AlwaysHealthyTracker{}
	}
	return &Worker{deps: deps}
}

// Run executes the worker's loop until the termination predicate fires,
// and returns the worker's final local stats.
func (w *Worker) Run(ctx context.Context) Stats {
	var completed uint32
	var buf [readBufferSize]byte

	for !w.deps.Term.ShouldStop(completed) {
		iterationStart := time.Now()

		if reachedPostTx := w.connectAndExchange(ctx, buf[:]); reachedPostTx {
			w.deps.Mutator.Advance()
			completed++
			w.stats.ClosedConnections = completed
		}

		w.pace(iterationStart)
	}

	return w.stats
}

// connectAndExchange performs one Connecting->Exchanging(*)->PostTx cycle.
// It reports whether a connection was actually established (i.e. whether
// the PostTx state was reached); a failed connect attempt never reaches
// PostTx, so the mutator is not advanced and the local counter does not
// advance for that iteration (spec §4.C state table).
func (w *Worker) connectAndExchange(ctx context.Context, buf []byte) (reachedPostTx bool) {
	candidates := w.deps.Tracker.HealthyTargets(w.deps.Candidates)
	target, err := w.deps.DialPolicy.ChooseTarget(candidates)
	if err != nil {
		w.deps.Logger.Error(&slog.LogRecord{Msg: "no candidate target available", Error: err, WorkerID: w.deps.ID})
		w.stats.ConnectFailures++
		return false
	}

	dialCtx := ctx
	if w.deps.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, w.deps.ConnectTimeout)
		defer cancel()
	}

	conn, err := w.deps.Dialer.DialTarget(dialCtx, target)
	if err != nil {
		w.deps.Logger.Error(&slog.LogRecord{Msg: "connect failed", Error: err, Target: &target, WorkerID: w.deps.ID})
		w.deps.DialPolicy.DialFailed(target, err)
		w.deps.Tracker.Report(target, healthcheck.CheckFail)
		w.stats.ConnectFailures++
		return false
	}
	w.deps.DialPolicy.DialSucceeded(target)
	w.deps.Tracker.Report(target, healthcheck.CheckSuccess)
	defer func() {
		_ = conn.Close()
		w.deps.DialPolicy.ConnectionClosed(target)
	}()

	for i := uint32(0); i < w.deps.Repeat; i++ {
		if w.deps.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(w.deps.ReadTimeout))
		}

		payload := w.deps.Mutator.CurrentBytes()
		if _, err := conn.Write(payload); err != nil {
			w.deps.Logger.Warn(&slog.LogRecord{Msg: "write failed", Error: err, Target: &target, WorkerID: w.deps.ID})
			w.stats.ExchangeFailures++
			return true // connection still counts as one completed transaction
		}

		// A zero-byte EOF read is not a failure: the loop is bounded by
		// Repeat, not by response framing.
		if _, err := conn.Read(buf); err != nil && !errors.Is(err, io.EOF) {
			w.deps.Logger.Warn(&slog.LogRecord{Msg: "read failed", Error: err, Target: &target, WorkerID: w.deps.ID})
			w.stats.ExchangeFailures++
			return true
		}
	}

	return true
}

// pace sleeps, if configured, so that the connection hits its share of
// the aggregate rate ceiling. If rate is unset (Delay <= 0), this is a
// no-op: there is no default loop delay.
func (w *Worker) pace(iterationStart time.Time) {
	if w.deps.Delay <= 0 {
		return
	}
	elapsed := time.Since(iterationStart)
	if elapsed >= w.deps.Delay {
		w.stats.PacingUnderruns++
		w.deps.Logger.Warn(&slog.LogRecord{Msg: "falling behind configured rate", WorkerID: w.deps.ID})
		return
	}
	time.Sleep(w.deps.Delay - elapsed)
}
