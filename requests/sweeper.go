package requests

import (
	"sync"
	"time"
)

// sweepGate implements the Waiting Sweeper's once-per-wall-clock-second
// throttle (spec §4.E). The baseline second is fixed at construction, so
// the first call immediately after construction does not fire — it only
// fires once the wall-clock second has rolled over past the baseline.
// This freezes the ambiguity spec.md §9 flags about the source's
// hrtime()-seeded constructor field.
type sweepGate struct {
	mu         sync.Mutex
	lastSecond int64
}

func newSweepGate(now time.Time) *sweepGate {
	return &sweepGate{lastSecond: now.Unix()}
}

// tryEnter reports whether the sweep should run for now, advancing the
// gate's baseline if so. Safe for concurrent callers; running it twice
// within the same second is harmless either way since
// PromoteWaitingToReady is a set-based, idempotent UPDATE (law L3).
func (g *sweepGate) tryEnter(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	sec := now.Unix()
	if sec == g.lastSecond {
		return false
	}
	g.lastSecond = sec
	return true
}
