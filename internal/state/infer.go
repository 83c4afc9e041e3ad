package state

import (
	"time"

	"github.com/HandsomeHarry/companion-cube/internal/catalog"
	"github.com/HandsomeHarry/companion-cube/internal/types"
)

// Thresholds are the tuning constants of the two classifiers. They are
// hand-tuned, not derived, so they stay configurable rather than baked in.
type Thresholds struct {
	IdleOverlap        time.Duration `yaml:"idle_overlap"`         // AFK proximity window for per-record classification
	StaleAfter         time.Duration `yaml:"stale_after"`          // newest record older than this means Away
	FlowFocusMin       time.Duration `yaml:"flow_focus_min"`       // cumulative focus time required for flow
	FlowDistractionMax time.Duration `yaml:"flow_distraction_max"` // distraction ceiling that still allows flow
	NudgeDistraction   time.Duration `yaml:"nudge_distraction"`    // cumulative distraction time forcing a nudge
}

// DefaultThresholds returns the stock tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		IdleOverlap:        2 * time.Minute,
		StaleAfter:         10 * time.Minute,
		FlowFocusMin:       20 * time.Minute,
		FlowDistractionMax: 5 * time.Minute,
		NudgeDistraction:   15 * time.Minute,
	}
}

// ClassifyRecord classifies a single activity sample. It is a pure function
// of the application, title, and nearby idle events. Individual samples are
// noisy; the externally visible state comes from Analyzer.Current instead.
func ClassifyRecord(app, title string, idle []types.RawEvent, at time.Time, overlap time.Duration) types.UserState {
	for _, ev := range idle {
		if ev.Attributes.Status != "afk" {
			continue
		}
		gap := ev.Timestamp.Sub(at)
		if gap < 0 {
			gap = -gap
		}
		if gap <= overlap {
			return types.StateAway
		}
	}
	if catalog.IsFocusApp(app) {
		return types.StateFlow
	}
	if catalog.IsDistractionTitle(title) {
		return types.StateNudge
	}
	return types.StateWorking
}

// Analyzer is the window-aggregate classifier that drives the externally
// visible current state. It smooths per-record noise at the cost of some
// reaction latency: one background YouTube tab must not flip the state.
type Analyzer struct {
	thresholds Thresholds
}

// NewAnalyzer creates an analyzer with the given thresholds.
func NewAnalyzer(t Thresholds) *Analyzer {
	return &Analyzer{thresholds: t}
}

// Current classifies the trailing window of records relative to now. It is a
// pure function of its inputs: identical windows yield identical states.
func (a *Analyzer) Current(records []types.ActivityRecord, now time.Time) types.UserState {
	recent := records
	if len(recent) == 0 {
		return types.StateAway
	}

	newest := recent[0].Timestamp
	for _, r := range recent[1:] {
		if r.Timestamp.After(newest) {
			newest = r.Timestamp
		}
	}
	if now.Sub(newest) > a.thresholds.StaleAfter {
		return types.StateAway
	}

	var focus, distraction time.Duration
	for _, r := range recent {
		if catalog.IsFocusApp(r.App) {
			focus += r.Duration
		}
		if catalog.IsDistractionTitle(r.WindowTitle) || catalog.IsDistractionApp(r.App) {
			distraction += r.Duration
		}
	}

	switch {
	case focus > a.thresholds.FlowFocusMin && distraction < a.thresholds.FlowDistractionMax:
		return types.StateFlow
	case distraction > a.thresholds.NudgeDistraction:
		return types.StateNudge
	default:
		return types.StateWorking
	}
}

// TrailingWindow returns the records whose timestamps fall within the last
// span before now. When span is zero all records qualify.
func TrailingWindow(records []types.ActivityRecord, now time.Time, span time.Duration) []types.ActivityRecord {
	if span <= 0 {
		return records
	}
	cutoff := now.Add(-span)
	out := make([]types.ActivityRecord, 0, len(records))
	for _, r := range records {
		if !r.Timestamp.Before(cutoff) && !r.Timestamp.After(now) {
			out = append(out, r)
		}
	}
	return out
}
