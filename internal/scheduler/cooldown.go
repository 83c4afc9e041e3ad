package scheduler

import (
	"sync"
	"time"

	"github.com/HandsomeHarry/companion-cube/internal/config"
	"github.com/HandsomeHarry/companion-cube/internal/types"
)

// Gate enforces intervention cooldowns. It tracks the last successful
// emission per trigger kind; an intervention is dropped, not queued, when the
// gap since that emission is under the cooldown for the current state. Flow
// is suppressed outright: no cooldown ever opens it.
type Gate struct {
	mu        sync.Mutex
	last      map[types.TriggerKind]time.Time
	cooldowns config.Cooldowns
	now       func() time.Time
}

// NewGate creates a gate with the given per-state cooldowns.
func NewGate(cd config.Cooldowns) *Gate {
	return &Gate{
		last:      make(map[types.TriggerKind]time.Time),
		cooldowns: cd,
		now:       time.Now,
	}
}

// Allow reports whether an intervention of the given kind may fire while the
// user is in the given state.
func (g *Gate) Allow(kind types.TriggerKind, state types.UserState) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if state == types.StateFlow {
		return false // flow protection: never interrupt deep focus
	}

	last, ok := g.last[kind]
	if !ok {
		return true
	}
	return g.now().Sub(last) >= g.cooldownFor(state)
}

// Mark records a successful emission of the given kind.
func (g *Gate) Mark(kind types.TriggerKind) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last[kind] = g.now()
}

func (g *Gate) cooldownFor(state types.UserState) time.Duration {
	switch state {
	case types.StateWorking:
		return g.cooldowns.Working
	case types.StateNudge:
		return g.cooldowns.Nudge
	case types.StateAway:
		return 0 // a returning user may always be greeted
	}
	return g.cooldowns.Working
}
