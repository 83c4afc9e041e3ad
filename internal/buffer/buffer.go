package buffer

import (
	"sync"
	"time"

	"github.com/HandsomeHarry/companion-cube/internal/types"
)

// Recent is a fixed-capacity ring of the most recent ActivityRecords, shared
// between the polling loop (writer) and the analysis loops (readers). It is
// the engine's single mutual-exclusion boundary together with the current
// state scalar it carries: no reader ever observes a half-updated window.
type Recent struct {
	mu       sync.RWMutex
	buf      []types.ActivityRecord
	capacity int
	pos      int // next write position
	full     bool

	state   types.UserState
	stateAt time.Time
}

// New creates a buffer with the given capacity.
func New(capacity int) *Recent {
	if capacity <= 0 {
		capacity = 100
	}
	return &Recent{
		buf:      make([]types.ActivityRecord, capacity),
		capacity: capacity,
		state:    types.StateAway,
	}
}

// Append adds records in order, evicting the oldest entries once full.
func (r *Recent) Append(records ...types.ActivityRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		r.buf[r.pos] = rec
		r.pos = (r.pos + 1) % r.capacity
		if r.pos == 0 {
			r.full = true
		}
	}
}

// Snapshot returns the buffered records in insertion order. The slice is a
// copy; callers may retain it across lock boundaries.
func (r *Recent) Snapshot() []types.ActivityRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.full {
		out := make([]types.ActivityRecord, r.pos)
		copy(out, r.buf[:r.pos])
		return out
	}
	out := make([]types.ActivityRecord, r.capacity)
	copy(out, r.buf[r.pos:])
	copy(out[r.capacity-r.pos:], r.buf[:r.pos])
	return out
}

// Len returns the number of buffered records.
func (r *Recent) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.full {
		return r.capacity
	}
	return r.pos
}

// State returns the current engine-wide user state.
func (r *Recent) State() types.UserState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// SetState updates the current state and reports whether it changed. Only
// changed transitions are forwarded externally; no-op transitions stay silent.
func (r *Recent) SetState(s types.UserState) (old types.UserState, changed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old = r.state
	if s == old {
		return old, false
	}
	r.state = s
	r.stateAt = time.Now()
	return old, true
}

// StateSince returns when the current state was entered.
func (r *Recent) StateSince() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stateAt
}
