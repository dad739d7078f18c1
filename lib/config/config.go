// Package config holds clobber's immutable run configuration and the pure
// work-partitioning math derived from it. Nothing in this package performs
// I/O; it is cloned freely into every worker.
package config

import (
	"runtime"
	"time"

	"github.com/ragona/clobber/lib/core"
)

// Config is the immutable, cloneable configuration for one clobber run.
// Every optional field's zero value means "unset" (see the corresponding
// Has* predicate), mirroring the original Rust implementation's use of
// Option<T>.
type Config struct {
	// Targets is the non-empty set of candidate dial addresses. A single
	// element reproduces the original single-target behaviour exactly.
	Targets []core.Target

	// Workers is the total number of concurrent connection loops desired
	// (K_total in the spec).
	Workers uint32

	// Threads is the explicit OS thread count. Zero means "use NumThreads".
	Threads uint32

	// Rate is the upper bound on requests/sec across the whole driver.
	// Zero means unset (no pacing).
	Rate uint32

	// Duration is the wall-clock cap measured from driver start. Zero means
	// unset (run until Limit or an external signal stops it).
	Duration time.Duration

	// Limit is the total successful-request cap across the whole driver.
	// Zero means unset.
	Limit uint32

	// Repeat is the number of write/read exchanges performed on each
	// established connection before it is dropped. Validate clamps values
	// below 1 up to 1.
	Repeat uint32

	// ConnectTimeout and ReadTimeout are advisory per-operation deadlines
	// honoured by the socket layer, if set. Zero means unset.
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// FuzzConfig is an opaque path handed to an external payload-mutator
	// policy. The core driver never interprets it.
	FuzzConfig string
}

// HasRate reports whether a rate ceiling is configured.
func (c Config) HasRate() bool { return c.Rate > 0 }

// HasDuration reports whether a wall-clock cap is configured.
func (c Config) HasDuration() bool { return c.Duration > 0 }

// HasLimit reports whether a total-request cap is configured.
func (c Config) HasLimit() bool { return c.Limit > 0 }

// Validate checks the one documented invariant: Repeat must be >= 1. A
// Repeat of 0 is coerced to 1, matching the builder's documented behaviour
// rather than rejecting the config outright.
func (c *Config) Validate() error {
	if c.Repeat < 1 {
		c.Repeat = 1
	}
	return nil
}

// NumThreads returns the configured thread count, or the host's logical
// CPU count if Threads is unset.
func (c Config) NumThreads() uint32 {
	if c.Threads == 0 {
		return uint32(runtime.NumCPU())
	}
	return c.Threads
}

// ConnectionsPerThread returns the number of connection loops each thread
// should maintain. It is never less than 1: having more threads than
// workers collapses to one worker per thread, not zero.
func (c Config) ConnectionsPerThread() uint32 {
	n := c.NumThreads()
	if n == 0 {
		return 1
	}
	perThread := c.Workers / n
	if perThread == 0 {
		return 1
	}
	return perThread
}

// ConnectionDelay returns the amount of time a single connection loop
// should wait between iterations to hold the driver to Rate in aggregate.
// It returns 0 if Rate is unset (no pacing).
func (c Config) ConnectionDelay() time.Duration {
	if !c.HasRate() {
		return 0
	}
	perSecond := time.Second / time.Duration(c.Rate)
	return perSecond * time.Duration(c.ConnectionsPerThread()) * time.Duration(c.NumThreads())
}

// LimitPerConnection returns the number of completed iterations each
// worker should perform before stopping due to Limit, and whether Limit is
// set at all. Because of integer division, Workers * LimitPerConnection
// may be less than Limit; this is deliberate (see spec §4.F).
func (c Config) LimitPerConnection() (limit uint32, ok bool) {
	if !c.HasLimit() {
		return 0, false
	}
	if c.Workers == 0 {
		return 0, false
	}
	return c.Limit / c.Workers, true
}

// TargetSet returns the configured Targets as a core.TargetSet, suitable
// for handing to a dialer.DialPolicy.
func (c Config) TargetSet() core.TargetSet {
	return core.NewTargetSet(c.Targets...)
}

// Builder incrementally constructs a Config. It exists to mirror the
// original implementation's ConfigBuilder and to give every field a
// documented default ("unset") before Build clones it out.
type Builder struct {
	config Config
}

// NewBuilder returns a Builder seeded with 100 workers against the given
// target and every optional field unset, matching the original defaults.
func NewBuilder(target core.Target) *Builder {
	return &Builder{
		config: Config{
			Targets: []core.Target{target},
			Workers: 100,
			Repeat:  1,
		},
	}
}

// Build consumes the Builder and returns the resulting Config.
func (b *Builder) Build() Config {
	return b.config
}

func (b *Builder) Targets(targets ...core.Target) *Builder {
	b.config.Targets = targets
	return b
}

func (b *Builder) Workers(workers uint32) *Builder {
	b.config.Workers = workers
	return b
}

func (b *Builder) Threads(threads uint32) *Builder {
	b.config.Threads = threads
	return b
}

func (b *Builder) Rate(rate uint32) *Builder {
	b.config.Rate = rate
	return b
}

func (b *Builder) Duration(d time.Duration) *Builder {
	b.config.Duration = d
	return b
}

func (b *Builder) Limit(limit uint32) *Builder {
	b.config.Limit = limit
	return b
}

// Repeat sets the write/read exchanges per connection; values below 1
// become 1.
func (b *Builder) Repeat(repeat uint32) *Builder {
	if repeat < 1 {
		repeat = 1
	}
	b.config.Repeat = repeat
	return b
}

func (b *Builder) ConnectTimeout(d time.Duration) *Builder {
	b.config.ConnectTimeout = d
	return b
}

func (b *Builder) ReadTimeout(d time.Duration) *Builder {
	b.config.ReadTimeout = d
	return b
}

func (b *Builder) FuzzConfig(path string) *Builder {
	b.config.FuzzConfig = path
	return b
}
