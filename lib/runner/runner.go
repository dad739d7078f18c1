// Package runner drives one logical thread's worth of connection workers.
// A Runner fans out ConnectionsPerThread workers as goroutines, each
// started with a staggered initial delay so that, in aggregate,
// connection attempts across the thread are spread evenly rather than
// bursting all at once.
//
// "Thread" here names a unit of configured concurrency (spec.md's
// connections_per_thread grouping), not a guarantee about the underlying
// OS thread. Run calls runtime.LockOSThread so the goroutine that calls
// Run keeps a stable OS thread for its own bookkeeping, but the worker
// goroutines it spawns are ordinary goroutines: LockOSThread only pins
// the goroutine that calls it, never the goroutines that goroutine
// starts (see the runtime package's own documentation of LockOSThread).
// Those workers are scheduled across every OS thread in Go's normal
// GOMAXPROCS pool, with the usual work-stealing that implies. This is a
// deliberate, idiomatic-Go departure from the single-threaded
// cooperative scheduler spec.md §9 describes: rather than hand-roll a
// non-blocking I/O event loop to reproduce that model, this package
// accepts Go's scheduler as-is and owns the resulting cost (see
// DESIGN.md). Workloads sensitive to that cost should keep
// connections_per_thread small and numThreads large, so there is less
// for any one OS thread's runqueue to contend over.
package runner

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/ragona/clobber/lib/config"
	"github.com/ragona/clobber/lib/core"
	"github.com/ragona/clobber/lib/dialer"
	"github.com/ragona/clobber/lib/healthcheck"
	"github.com/ragona/clobber/lib/mutator"
	"github.com/ragona/clobber/lib/slog"
	"github.com/ragona/clobber/lib/worker"
)

// Deps bundles everything a Runner needs that is not itself per-worker
// state. DialPolicy and Tracker are instantiated once per Runner and
// shared among every worker goroutine that Runner starts, never across
// Runners: each thread runner gets its own instance. Go's scheduler is
// free to run those worker goroutines on any OS thread it likes (see
// the Run doc comment), so any locking a DialPolicy or Tracker does is
// genuine cross-goroutine, potentially cross-thread synchronization,
// not merely cooperative bookkeeping within one OS thread.
type Deps struct {
	ThreadID       int
	Targets        core.TargetSet
	Workers        uint32 // connections this thread runner should drive
	Repeat         uint32
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Delay          time.Duration // per-connection pacing delay, 0 if unpaced
	WorkerStagger  time.Duration // spacing between successive workers' starts
	Term           worker.Termination
	Seed           mutator.Mutator // cloned once per worker
	Logger         slog.Logger
	Dialer         dialer.TargetDialer
	NewDialPolicy  func() dialer.DialPolicy
	NewTracker     func() healthcheck.Tracker
}

// Result is one thread runner's aggregated output: the summed Stats of
// every worker it drove.
type Result struct {
	ThreadID int
	Stats    worker.Stats
}

// Run locks the calling goroutine to its OS thread for the duration of
// its own bookkeeping (see the package doc comment for what that does
// and does not confine), starts Deps.Workers connection workers as
// staggered goroutines sharing one DialPolicy and one Tracker, waits
// for all of them to finish, and returns their aggregated Stats. A
// deferred runtime.UnlockOSThread releases the OS thread again when Run
// returns.
func Run(ctx context.Context, deps Deps) Result {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if deps.Dialer == nil {
		deps.Dialer = dialer.SimpleTargetDialer{}
	}

	var policy dialer.DialPolicy = dialer.PlaceholderDialPolicy{}
	if deps.NewDialPolicy != nil {
		policy = deps.NewDialPolicy()
	}
	var tracker healthcheck.Tracker = healthcheck.AlwaysHealthyTracker{}
	if deps.NewTracker != nil {
		tracker = deps.NewTracker()
	}

	var wg sync.WaitGroup
	statsCh := make(chan worker.Stats, deps.Workers)

	for i := uint32(0); i < deps.Workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()

			if deps.WorkerStagger > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(deps.WorkerStagger * time.Duration(i)):
				}
			}

			w := worker.New(worker.Deps{
				ID:             workerID(deps.ThreadID, int(i)),
				Logger:         deps.Logger,
				Mutator:        deps.Seed.Clone(),
				Dialer:         deps.Dialer,
				DialPolicy:     policy,
				Tracker:        tracker,
				Candidates:     deps.Targets,
				Repeat:         deps.Repeat,
				ConnectTimeout: deps.ConnectTimeout,
				ReadTimeout:    deps.ReadTimeout,
				Delay:          deps.Delay,
				Term:           deps.Term,
			})

			statsCh <- w.Run(ctx)
		}()
	}

	wg.Wait()
	close(statsCh)

	var total worker.Stats
	for s := range statsCh {
		total.ClosedConnections += s.ClosedConnections
		total.ConnectFailures += s.ConnectFailures
		total.ExchangeFailures += s.ExchangeFailures
		total.PacingUnderruns += s.PacingUnderruns
	}

	return Result{ThreadID: deps.ThreadID, Stats: total}
}

func workerID(threadID, workerIndex int) string {
	return fmt.Sprintf("t%d-w%d", threadID, workerIndex)
}

// WorkerStaggerFor returns the initial-delay spacing between successive
// workers within one thread runner, derived from cfg. When cfg has no
// configured Rate, the stagger is zero: there is nothing to spread out.
func WorkerStaggerFor(cfg config.Config) time.Duration {
	perThread := cfg.ConnectionsPerThread()
	delay := cfg.ConnectionDelay()
	if delay <= 0 || perThread == 0 {
		return 0
	}
	return delay / time.Duration(perThread)
}
