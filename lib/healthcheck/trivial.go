package healthcheck

import (
	"github.com/ragona/clobber/lib/core"
)

// Tracker is consulted by a dial policy before each connect attempt.
//
// One Tracker is shared by every worker goroutine of a thread runner, so
// multiple goroutines invoke its methods simultaneously; BeliefTracker is
// owned by a single thread runner (see its doc comment).
type Tracker interface {
	HealthyTargets(candidates core.TargetSet) core.TargetSet
	Report(target core.Target, result CheckResult)
}

// AlwaysHealthyTracker is a trivial Tracker that believes every candidate
// target is always healthy. It is what a single-target Config degenerates
// to, and is useful as a baseline for tests.
type AlwaysHealthyTracker struct{}

func (t AlwaysHealthyTracker) HealthyTargets(candidates core.TargetSet) core.TargetSet {
	return candidates
}

func (t AlwaysHealthyTracker) Report(target core.Target, result CheckResult) {}

var _ Tracker = AlwaysHealthyTracker{}
var _ Tracker = (*BeliefTracker)(nil)
