package pattern

import (
	"time"

	"github.com/HandsomeHarry/companion-cube/internal/catalog"
	"github.com/HandsomeHarry/companion-cube/internal/state"
	"github.com/HandsomeHarry/companion-cube/internal/types"
)

// Thresholds tune the stuck detector. Like the classifier thresholds these
// are observed constants kept configurable.
type Thresholds struct {
	Window      time.Duration `yaml:"window"`       // trailing window examined
	MaxSwitches int           `yaml:"max_switches"` // app-identity changes above this mean stuck
	MinMeanDur  time.Duration `yaml:"min_mean_dur"` // mean record duration below this means stuck
	MinRecords  int           `yaml:"min_records"`  // fewer records than this is never stuck
}

// DefaultThresholds returns the stock tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Window:      30 * time.Minute,
		MaxSwitches: 10,
		MinMeanDur:  2 * time.Minute,
		MinRecords:  3,
	}
}

// Stats are the sliding-window statistics the detector computes.
type Stats struct {
	Records      int
	AppSwitches  int
	MeanDuration time.Duration
	FocusTime    time.Duration
	Distraction  time.Duration
}

// Detector computes sliding-window statistics over the recent record stream
// and flags stuck behavior. All methods are pure transforms of their inputs.
type Detector struct {
	thresholds Thresholds
}

// New creates a detector.
func New(t Thresholds) *Detector {
	return &Detector{thresholds: t}
}

// WindowStats computes statistics over the trailing window before now.
func (d *Detector) WindowStats(records []types.ActivityRecord, now time.Time) Stats {
	recent := state.TrailingWindow(records, now, d.thresholds.Window)
	stats := Stats{Records: len(recent)}
	if len(recent) == 0 {
		return stats
	}

	var total time.Duration
	prevApp := ""
	for i, r := range recent {
		total += r.Duration
		if i > 0 && r.App != prevApp {
			stats.AppSwitches++
		}
		prevApp = r.App
		if catalog.IsFocusApp(r.App) {
			stats.FocusTime += r.Duration
		}
		if catalog.IsDistractionApp(r.App) || catalog.IsDistractionTitle(r.WindowTitle) {
			stats.Distraction += r.Duration
		}
	}
	stats.MeanDuration = total / time.Duration(len(recent))
	return stats
}

// PreviousWindowStats computes statistics over the window immediately before
// the current one, for trend comparison.
func (d *Detector) PreviousWindowStats(records []types.ActivityRecord, now time.Time) Stats {
	return d.WindowStats(records, now.Add(-d.thresholds.Window))
}

// Stuck reports whether the user looks stuck: rapid app switching or very
// short task dwell times inside the trailing window. Returns false below the
// minimum record count regardless of content.
func (d *Detector) Stuck(records []types.ActivityRecord, now time.Time) bool {
	stats := d.WindowStats(records, now)
	if stats.Records < d.thresholds.MinRecords {
		return false
	}
	if stats.AppSwitches > d.thresholds.MaxSwitches {
		return true
	}
	return stats.MeanDuration < d.thresholds.MinMeanDur
}

// stuckSuggestions are the per-mode candidate messages used when stuck
// behavior is detected. Tone follows the mode.
var stuckSuggestions = map[types.CompanionMode][]string{
	types.ModeStudyBuddy: {
		"Looks like a lot of jumping around. Want to pick one thing and do it together for 10 minutes?",
		"Let's try a tiny reset: close everything except one window.",
	},
	types.ModeCoach: {
		"You've switched tasks a lot recently. Pick the smallest next step and start there.",
		"Try writing down the one thing you want done in the next 15 minutes.",
	},
	types.ModeWeekend: {
		"No pressure today, but if the tab-hopping isn't fun anymore, maybe step away for a bit?",
	},
	types.ModeGhost: {},
}

// stateSuggestions are the per-state candidate messages.
var stateSuggestions = map[types.UserState][]string{
	types.StateFlow: {
		"You're in the zone! Keep going!",
	},
	types.StateWorking: {
		"Nice steady progress!",
	},
	types.StateNudge: {
		"Hey friend, feeling stuck? Pick one small thing to do next.",
	},
	types.StateAway: {
		"Welcome back! What shall we tackle?",
	},
}

// Suggestions concatenates mode-specific stuck suggestions with state-specific
// ones. It never calls the language backend: it only supplies candidates and
// fallback text; actual generation is the scheduler's concern.
func (d *Detector) Suggestions(records []types.ActivityRecord, mode types.CompanionMode, current types.UserState, now time.Time) []string {
	var out []string
	if d.Stuck(records, now) {
		out = append(out, stuckSuggestions[mode]...)
	}
	out = append(out, stateSuggestions[current]...)
	return out
}

// FallbackText returns the canned message for a state, used when the language
// backend is unavailable.
func FallbackText(s types.UserState) string {
	if msgs := stateSuggestions[s]; len(msgs) > 0 {
		return msgs[0]
	}
	return "Keep going, you're doing great!"
}
