package scheduler

import (
	"testing"
	"time"

	"github.com/HandsomeHarry/companion-cube/internal/config"
	"github.com/HandsomeHarry/companion-cube/internal/types"
)

func testGate() (*Gate, *time.Time) {
	clock := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	g := NewGate(config.Cooldowns{
		Working: 15 * time.Minute,
		Nudge:   5 * time.Minute,
	})
	g.now = func() time.Time { return clock }
	return g, &clock
}

func TestGateAllowsFirstEmission(t *testing.T) {
	g, _ := testGate()
	if !g.Allow(types.TriggerNudge, types.StateWorking) {
		t.Error("first emission must be allowed")
	}
}

func TestGateFlowAlwaysSuppressed(t *testing.T) {
	g, _ := testGate()
	if g.Allow(types.TriggerNudge, types.StateFlow) {
		t.Error("flow state must suppress interventions even with no history")
	}
}

func TestGateEnforcesCooldownPerState(t *testing.T) {
	g, clock := testGate()
	g.Mark(types.TriggerNudge)

	*clock = clock.Add(4 * time.Minute)
	if g.Allow(types.TriggerNudge, types.StateNudge) {
		t.Error("4m gap under a 5m nudge cooldown must be blocked")
	}

	*clock = clock.Add(time.Minute)
	if !g.Allow(types.TriggerNudge, types.StateNudge) {
		t.Error("5m gap must open the nudge cooldown")
	}

	// The same 5m gap is still under the 15m working cooldown.
	if g.Allow(types.TriggerNudge, types.StateWorking) {
		t.Error("5m gap under a 15m working cooldown must be blocked")
	}
}

func TestGateTracksTriggerKindsIndependently(t *testing.T) {
	g, _ := testGate()
	g.Mark(types.TriggerNudge)

	if !g.Allow(types.TriggerSuggestion, types.StateWorking) {
		t.Error("a nudge emission must not block suggestions")
	}
}

func TestGateAwayHasNoCooldown(t *testing.T) {
	g, clock := testGate()
	g.Mark(types.TriggerSuggestion)
	*clock = clock.Add(time.Second)

	if !g.Allow(types.TriggerSuggestion, types.StateAway) {
		t.Error("away state should never be cooldown-blocked")
	}
}
