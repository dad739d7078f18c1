package config

import (
	"testing"
	"time"

	"github.com/ragona/clobber/lib/core"
)

func testTarget() core.Target {
	return core.Target{Network: "tcp", Address: "127.0.0.1:9000"}
}

func TestNewBuilder_Defaults(t *testing.T) {
	cfg := NewBuilder(testTarget()).Build()
	if cfg.Workers != 100 {
		t.Fatalf("expected default 100 workers, got %d", cfg.Workers)
	}
	if cfg.Repeat != 1 {
		t.Fatalf("expected default repeat 1, got %d", cfg.Repeat)
	}
	if cfg.HasRate() || cfg.HasDuration() || cfg.HasLimit() {
		t.Fatalf("expected every optional field unset by default")
	}
}

func TestConnectionsPerThread_NeverLessThanOne(t *testing.T) {
	cfg := NewBuilder(testTarget()).Workers(1).Threads(8).Build()
	if got := cfg.ConnectionsPerThread(); got != 1 {
		t.Fatalf("expected 1 connection per thread when threads > workers, got %d", got)
	}
}

func TestConnectionsPerThreadTimesNumThreads_NeverUnderspawns(t *testing.T) {
	cfg := NewBuilder(testTarget()).Workers(10).Threads(3).Build()
	if got := cfg.ConnectionsPerThread() * cfg.NumThreads(); got < cfg.Workers {
		t.Fatalf("expected connections_per_thread * num_threads >= workers, got %d < %d", got, cfg.Workers)
	}
}

func TestConnectionDelay_UnaffectedByThreadsAlone(t *testing.T) {
	base := NewBuilder(testTarget()).Workers(100).Rate(50)

	cfgOneThread := base.Threads(1).Build()
	cfgFourThreads := NewBuilder(testTarget()).Workers(100).Rate(50).Threads(4).Build()

	// ConnectionDelay is the pause each individual worker takes between
	// iterations, so it is the per-worker delay itself.
	perWorkerOne := cfgOneThread.ConnectionDelay()
	perWorkerFour := cfgFourThreads.ConnectionDelay()

	if perWorkerOne != perWorkerFour {
		t.Fatalf("expected per-worker delay to be unaffected by thread count alone: %v vs %v", perWorkerOne, perWorkerFour)
	}
}

func TestConnectionDelay_ZeroWithoutRate(t *testing.T) {
	cfg := NewBuilder(testTarget()).Workers(10).Build()
	if cfg.ConnectionDelay() != 0 {
		t.Fatalf("expected zero delay without a configured rate")
	}
}

func TestLimitPerConnection_IntegerDivision(t *testing.T) {
	cfg := NewBuilder(testTarget()).Workers(3).Limit(10).Build()
	limit, ok := cfg.LimitPerConnection()
	if !ok {
		t.Fatalf("expected limit to be set")
	}
	if limit != 3 {
		t.Fatalf("expected integer division 10/3 = 3, got %d", limit)
	}
}

func TestLimitPerConnection_EvenlyDivisible(t *testing.T) {
	cfg := NewBuilder(testTarget()).Workers(5).Limit(20).Build()
	limit, ok := cfg.LimitPerConnection()
	if !ok || limit*cfg.Workers != cfg.Limit {
		t.Fatalf("expected 5 workers * limit = 20 when evenly divisible, got limit=%d", limit)
	}
}

func TestValidate_ClampsRepeatToOne(t *testing.T) {
	cfg := NewBuilder(testTarget()).Repeat(0).Build()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Repeat != 1 {
		t.Fatalf("expected Repeat clamped to 1, got %d", cfg.Repeat)
	}
}

func TestBuilder_RoundTripsEveryField(t *testing.T) {
	target := testTarget()
	cfg := NewBuilder(target).
		Targets(target).
		Workers(17).
		Threads(3).
		Rate(42).
		Duration(2 * time.Second).
		Limit(500).
		Repeat(3).
		ConnectTimeout(100 * time.Millisecond).
		ReadTimeout(200 * time.Millisecond).
		FuzzConfig("path/to/fuzz.toml").
		Build()

	if len(cfg.Targets) != 1 || cfg.Targets[0] != target {
		t.Fatalf("unexpected targets: %v", cfg.Targets)
	}
	if cfg.Workers != 17 || cfg.Threads != 3 || cfg.Rate != 42 ||
		cfg.Duration != 2*time.Second || cfg.Limit != 500 || cfg.Repeat != 3 ||
		cfg.ConnectTimeout != 100*time.Millisecond || cfg.ReadTimeout != 200*time.Millisecond ||
		cfg.FuzzConfig != "path/to/fuzz.toml" {
		t.Fatalf("unexpected config after round-trip: %+v", cfg)
	}
}

func TestTargetSet_ContainsEveryConfiguredTarget(t *testing.T) {
	a := core.Target{Network: "tcp", Address: "127.0.0.1:1"}
	b := core.Target{Network: "tcp", Address: "127.0.0.1:2"}
	cfg := NewBuilder(a).Targets(a, b).Build()

	set := cfg.TargetSet()
	if _, ok := set[a]; !ok {
		t.Fatalf("expected %v in target set", a)
	}
	if _, ok := set[b]; !ok {
		t.Fatalf("expected %v in target set", b)
	}
}
