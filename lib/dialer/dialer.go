// Package dialer resolves a target pool into a single net.Conn for each
// connect attempt a connection worker makes. It is deliberately thin: the
// spec forbids racing dials against backoff or retry loops on the hot path
// (a failed choice is just one failed loop iteration), so this package only
// ever makes one dial attempt per call.
package dialer

import (
	"context"
	"errors"
	"math"
	"net"
	"sync"

	"github.com/ragona/clobber/lib/core"
)

// NoCandidateTargets is returned by a DialPolicy when given an empty
// candidate TargetSet.
var NoCandidateTargets = errors.New("no candidate targets")

// TargetDialer dials a single chosen Target.
//
// Multiple goroutines may invoke methods on a TargetDialer simultaneously.
type TargetDialer interface {
	DialTarget(ctx context.Context, target core.Target) (net.Conn, error)
}

// SimpleTargetDialer dials with a plain net.Dialer, honouring ctx deadlines
// and cancellation.
type SimpleTargetDialer struct{}

func (d SimpleTargetDialer) DialTarget(ctx context.Context, target core.Target) (net.Conn, error) {
	dd := net.Dialer{}
	return dd.DialContext(ctx, target.Network, target.Address)
}

var _ TargetDialer = SimpleTargetDialer{}

// DialPolicy chooses which Target a worker should attempt to connect to
// next, out of a set of candidates, and is informed of the outcome so it
// can adapt future choices (e.g. to favour less-loaded targets).
//
// A DialPolicy is owned by exactly one thread runner, but that runner's
// worker goroutines are ordinary goroutines scheduled across Go's normal
// OS thread pool (see package runner's doc comment), so a shared
// DialPolicy implementation must treat every method as being called
// concurrently from genuinely different OS threads, not just different
// goroutines on one thread.
type DialPolicy interface {
	// ChooseTarget picks a Target from candidates. If none of the
	// candidates are feasible, an error is returned.
	ChooseTarget(candidates core.TargetSet) (core.Target, error)

	// DialFailed informs the policy that a dial attempt failed.
	DialFailed(target core.Target, symptom error)

	// DialSucceeded informs the policy that a dial attempt succeeded.
	DialSucceeded(target core.Target)

	// ConnectionClosed informs the policy that a connection created by a
	// prior successful dial attempt has been closed.
	ConnectionClosed(target core.Target)
}

// PlaceholderDialPolicy is an example of a simple but not very useful
// DialPolicy. It arbitrarily chooses a target in an implementation-defined
// way and ignores every outcome notification. It is what a single-target
// Config degenerates to.
type PlaceholderDialPolicy struct{}

func (p PlaceholderDialPolicy) ChooseTarget(candidates core.TargetSet) (core.Target, error) {
	for target := range candidates {
		return target, nil
	}
	return core.Target{}, NoCandidateTargets
}

func (p PlaceholderDialPolicy) DialFailed(target core.Target, symptom error) {}
func (p PlaceholderDialPolicy) DialSucceeded(target core.Target)             {}
func (p PlaceholderDialPolicy) ConnectionClosed(target core.Target)          {}

var _ DialPolicy = PlaceholderDialPolicy{}

// LeastConnectionDialPolicy always chooses a candidate target that has the
// minimal number of open connections among the candidates. It is shared by
// every worker goroutine of one thread runner, and those goroutines may run
// on distinct OS threads at once, so its mutex is a real cross-thread lock
// on the connect hot path. It only has a reason to exist when a thread
// runner has more than one candidate target to choose between; the driver
// defaults to the lock-free PlaceholderDialPolicy otherwise.
type LeastConnectionDialPolicy struct {
	mu              sync.Mutex
	connectionCount map[core.Target]int64
}

// NewLeastConnectionDialPolicy returns a new LeastConnectionDialPolicy.
func NewLeastConnectionDialPolicy() *LeastConnectionDialPolicy {
	return &LeastConnectionDialPolicy{
		connectionCount: make(map[core.Target]int64),
	}
}

func (p *LeastConnectionDialPolicy) ChooseTarget(candidates core.TargetSet) (core.Target, error) {
	var minCount int64 = math.MaxInt64
	argMin := core.Target{}

	p.mu.Lock()
	defer p.mu.Unlock()

	for target := range candidates {
		count := p.connectionCount[target]
		if count < minCount {
			minCount = count
			argMin = target
		}
	}

	var err error
	if minCount == math.MaxInt64 {
		err = NoCandidateTargets
	}

	return argMin, err
}

func (p *LeastConnectionDialPolicy) DialFailed(target core.Target, symptom error) {
	// A failed connection attempt does not change the connection count.
}

func (p *LeastConnectionDialPolicy) DialSucceeded(target core.Target) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connectionCount[target]++
}

func (p *LeastConnectionDialPolicy) ConnectionClosed(target core.Target) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connectionCount[target]--
}

var _ DialPolicy = (*LeastConnectionDialPolicy)(nil)
