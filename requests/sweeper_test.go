package requests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSweepGateDoesNotFireOnFirstCallSameSecond(t *testing.T) {
	baseline := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	g := newSweepGate(baseline)

	assert.False(t, g.tryEnter(baseline), "gate must not fire on the same second as construction")
}

func TestSweepGateFiresOnceSecondRollsOver(t *testing.T) {
	baseline := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	g := newSweepGate(baseline)

	next := baseline.Add(time.Second)
	assert.True(t, g.tryEnter(next))
	// Law L3: running twice in the same second behaves like running once
	// (the gate itself just won't re-fire within that second).
	assert.False(t, g.tryEnter(next))
	assert.False(t, g.tryEnter(next.Add(500*time.Millisecond)))
	assert.True(t, g.tryEnter(next.Add(time.Second)))
}
