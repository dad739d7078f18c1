// Package driver implements the top-level entrypoint: given a Config and
// a payload, split the configured work across OS threads, stagger their
// starts, run every thread runner to completion, and collapse whatever
// errors surface at join time into a single error.
package driver

import (
	"context"
	"time"

	clobbererrors "github.com/ragona/clobber/lib/errors"
	"github.com/ragona/clobber/lib/config"
	"github.com/ragona/clobber/lib/core"
	"github.com/ragona/clobber/lib/dialer"
	"github.com/ragona/clobber/lib/healthcheck"
	"github.com/ragona/clobber/lib/mutator"
	"github.com/ragona/clobber/lib/runner"
	"github.com/ragona/clobber/lib/slog"
	"github.com/ragona/clobber/lib/worker"
)

// Report is the aggregated outcome of one Run across every thread runner.
type Report struct {
	Stats    worker.Stats
	Start    time.Time
	Elapsed  time.Duration
	ByThread []runner.Result
}

// Options carries the collaborators a Run needs beyond Config itself.
// A zero Options is valid: Run fills in production defaults (a plain
// dialer and the default stdlib-backed logger). The dial policy and
// health tracker default to lock-free, no-op implementations when only
// one target is configured (the common case, keeping the connect hot
// path free of any mutex); with more than one target, Run switches to
// the mutex-guarded LeastConnectionDialPolicy and BeliefTracker, since
// balancing across targets genuinely requires state shared across every
// worker goroutine a thread runner starts.
type Options struct {
	Logger       slog.Logger
	Dialer       dialer.TargetDialer
	HealthConfig healthcheck.Config

	// NewMutator builds the seed mutator from the raw payload. The
	// default wraps payload in a mutator.NoopMutator. A fuzzing
	// front-end supplies its own to mutate the payload over time.
	NewMutator func(payload []byte) (mutator.Mutator, error)
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.GetDefaultLogger()
	}
	if o.Dialer == nil {
		o.Dialer = dialer.SimpleTargetDialer{}
	}
	if o.HealthConfig == (healthcheck.Config{}) {
		o.HealthConfig = healthcheck.Config{MinFailuresToInferUnhealthy: 3, MinSuccessesToInferHealthy: 1}
	}
	if o.NewMutator == nil {
		o.NewMutator = func(payload []byte) (mutator.Mutator, error) {
			return mutator.NewNoopMutator(mutator.NewSeed(payload)), nil
		}
	}
	return o
}

// Run is the driver entrypoint: clobber(config, payload). It builds the
// seed mutator, captures the shared start instant, spawns cfg.NumThreads
// thread runners staggered by one inter-request tick apiece, waits for
// all of them, and returns the aggregated Report. A non-nil error means
// either the seed mutator could not be built (no thread runner starts)
// or at least one thread runner panicked; per-connection failures (a
// single bad dial, a dropped read) are not errors, they are counted in
// Report.Stats.
func Run(ctx context.Context, cfg config.Config, payload []byte, opts Options) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	opts = opts.withDefaults()

	seed, err := opts.NewMutator(payload)
	if err != nil {
		return Report{}, err
	}

	targets := cfg.TargetSet()
	numThreads := cfg.NumThreads()
	connectionsPerThread := cfg.ConnectionsPerThread()
	limitPerConnection, hasLimit := cfg.LimitPerConnection()
	workerStagger := runner.WorkerStaggerFor(cfg)
	threadTick := tick(cfg)

	start := time.Now()
	term := worker.Termination{
		Start:    start,
		Duration: cfg.Duration,
	}

	resultCh := make(chan runner.Result, numThreads)
	errCh := make(chan error, numThreads)

	for threadID := 0; threadID < int(numThreads); threadID++ {
		threadID := threadID
		go func() {
			defer func() {
				if r := recover(); r != nil {
					errCh <- panicError(r)
					resultCh <- runner.Result{ThreadID: threadID}
				}
			}()

			result := runner.Run(ctx, runner.Deps{
				ThreadID:       threadID,
				Targets:        targets,
				Workers:        connectionsPerThread,
				Repeat:         cfg.Repeat,
				ConnectTimeout: cfg.ConnectTimeout,
				ReadTimeout:    cfg.ReadTimeout,
				Delay:          cfg.ConnectionDelay(),
				WorkerStagger:  workerStagger,
				Term: worker.Termination{
					Start:              term.Start,
					Duration:           term.Duration,
					LimitPerConnection: limitPerConnection,
					HasLimit:           hasLimit,
				},
				Seed:          seed.Clone(),
				Logger:        opts.Logger,
				Dialer:        opts.Dialer,
				NewDialPolicy: newDialPolicyFor(targets),
				NewTracker:    newTrackerFor(targets, opts.HealthConfig),
			})

			errCh <- nil
			resultCh <- result
		}()

		if threadID < int(numThreads)-1 && threadTick > 0 {
			time.Sleep(threadTick)
		}
	}

	results := make([]runner.Result, 0, numThreads)
	for i := uint32(0); i < numThreads; i++ {
		results = append(results, <-resultCh)
	}
	close(errCh)
	aggErr := clobbererrors.AggregateErrorFromChannel(errCh)

	report := Report{Start: start, Elapsed: time.Since(start), ByThread: results}
	for _, r := range results {
		report.Stats.ClosedConnections += r.Stats.ClosedConnections
		report.Stats.ConnectFailures += r.Stats.ConnectFailures
		report.Stats.ExchangeFailures += r.Stats.ExchangeFailures
		report.Stats.PacingUnderruns += r.Stats.PacingUnderruns
	}

	return report, aggErr
}

// newDialPolicyFor returns a constructor for the DialPolicy a thread
// runner should use: the lock-free PlaceholderDialPolicy when targets has
// only one member, since there is nothing to choose between, or the
// mutex-guarded LeastConnectionDialPolicy when a runner must actually
// balance load across multiple candidates.
func newDialPolicyFor(targets core.TargetSet) func() dialer.DialPolicy {
	if len(targets) <= 1 {
		return func() dialer.DialPolicy {
			return dialer.PlaceholderDialPolicy{}
		}
	}
	return func() dialer.DialPolicy {
		return dialer.NewLeastConnectionDialPolicy()
	}
}

// newTrackerFor returns a constructor for the Tracker a thread runner
// should use: the lock-free AlwaysHealthyTracker when targets has only
// one member, since there is no alternative target to route around, or
// the mutex-guarded BeliefTracker when a runner has more than one
// candidate to choose between.
func newTrackerFor(targets core.TargetSet, cfg healthcheck.Config) func() healthcheck.Tracker {
	if len(targets) <= 1 {
		return func() healthcheck.Tracker {
			return healthcheck.AlwaysHealthyTracker{}
		}
	}
	return func() healthcheck.Tracker {
		return healthcheck.NewBeliefTracker(targets, cfg)
	}
}

// tick returns the inter-request spacing used to stagger successive
// thread starts: one second divided by Rate, or 0 if Rate is unset.
func tick(cfg config.Config) time.Duration {
	if !cfg.HasRate() {
		return 0
	}
	return time.Second / time.Duration(cfg.Rate)
}

func panicError(r interface{}) error {
	return &panicErr{value: r}
}

type panicErr struct{ value interface{} }

func (e *panicErr) Error() string {
	return "thread runner panicked: " + toString(e.value)
}

func toString(v interface{}) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "unknown panic"
}
