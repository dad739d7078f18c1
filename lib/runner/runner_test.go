package runner

import (
	"context"
	"testing"
	"time"

	"github.com/ragona/clobber/lib/config"
	"github.com/ragona/clobber/lib/core"
	"github.com/ragona/clobber/lib/mutator"
	"github.com/ragona/clobber/lib/slog"
	"github.com/ragona/clobber/lib/testserver"
	"github.com/ragona/clobber/lib/worker"
)

func TestRun_AggregatesStatsAcrossWorkers(t *testing.T) {
	echo, err := testserver.StartEcho()
	if err != nil {
		t.Fatalf("failed to start echo server: %v", err)
	}
	defer func() { _ = echo.Close() }()

	target := core.Target{Network: "tcp", Address: echo.Addr()}
	seed := mutator.NewNoopMutator(mutator.NewSeed([]byte("ping")))

	result := Run(context.Background(), Deps{
		ThreadID: 0,
		Targets:  core.NewTargetSet(target),
		Workers:  4,
		Repeat:   1,
		Term:     worker.Termination{LimitPerConnection: 3, HasLimit: true},
		Seed:     seed,
		Logger:   &slog.RecordingLogger{},
	})

	if result.Stats.ClosedConnections != 12 {
		t.Fatalf("expected 4 workers * 3 connections = 12 closed connections, got %d", result.Stats.ClosedConnections)
	}
	if echo.Connections() != 12 {
		t.Fatalf("expected echo server to see 12 connections, got %d", echo.Connections())
	}
}

func TestRun_WorkerStaggerSpacesOutFirstConnections(t *testing.T) {
	echo, err := testserver.StartEcho()
	if err != nil {
		t.Fatalf("failed to start echo server: %v", err)
	}
	defer func() { _ = echo.Close() }()

	target := core.Target{Network: "tcp", Address: echo.Addr()}
	seed := mutator.NewNoopMutator(mutator.NewSeed([]byte("x")))

	start := time.Now()
	result := Run(context.Background(), Deps{
		ThreadID:      1,
		Targets:       core.NewTargetSet(target),
		Workers:       3,
		Repeat:        1,
		WorkerStagger: 50 * time.Millisecond,
		Term:          worker.Termination{LimitPerConnection: 1, HasLimit: true},
		Seed:          seed,
		Logger:        &slog.RecordingLogger{},
	})
	elapsed := time.Since(start)

	if result.Stats.ClosedConnections != 3 {
		t.Fatalf("expected 3 closed connections, got %d", result.Stats.ClosedConnections)
	}
	// The last worker's stagger alone is 2*50ms, so the whole run should
	// take at least that long even though each worker only does one
	// connection.
	if elapsed < 100*time.Millisecond {
		t.Fatalf("expected staggered starts to slow the run down to at least 100ms, took %v", elapsed)
	}
}

func TestRun_UnreachableTarget_NoDeadlockAndReportsFailures(t *testing.T) {
	addr, err := testserver.ReserveClosedPort()
	if err != nil {
		t.Fatalf("failed to reserve closed port: %v", err)
	}
	target := core.Target{Network: "tcp", Address: addr}
	seed := mutator.NewNoopMutator(mutator.NewSeed([]byte("x")))

	result := Run(context.Background(), Deps{
		ThreadID: 2,
		Targets:  core.NewTargetSet(target),
		Workers:  2,
		Repeat:   1,
		Term:     worker.Termination{Start: time.Now(), Duration: 200 * time.Millisecond},
		Seed:     seed,
		Logger:   &slog.RecordingLogger{},
	})

	if result.Stats.ConnectFailures == 0 {
		t.Fatalf("expected connect failures against an unreachable target")
	}
	if result.Stats.ClosedConnections != 0 {
		t.Fatalf("expected no closed connections, got %d", result.Stats.ClosedConnections)
	}
}

func TestWorkerStaggerFor(t *testing.T) {
	target := core.Target{Network: "tcp", Address: "127.0.0.1:9"}

	unpaced := config.NewBuilder(target).Workers(4).Threads(1).Build()
	if got := WorkerStaggerFor(unpaced); got != 0 {
		t.Fatalf("expected zero stagger with no rate, got %v", got)
	}

	paced := config.NewBuilder(target).Workers(4).Threads(1).Rate(100).Build()
	if got := WorkerStaggerFor(paced); got <= 0 {
		t.Fatalf("expected a positive stagger with a configured rate, got %v", got)
	}
}
