package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/HandsomeHarry/companion-cube/internal/catalog"
	"github.com/HandsomeHarry/companion-cube/internal/types"
)

// DailyStats are the running counters the scheduler keeps for the current
// day. They reset when the summary job fires.
type DailyStats struct {
	FocusChecks   int `json:"focus_checks"`
	Distractions  int `json:"distractions"`
	Interventions int `json:"interventions"`
}

// statsCounter guards the daily counters; only the scheduler touches it.
type statsCounter struct {
	mu sync.Mutex
	s  DailyStats
}

func (c *statsCounter) bumpFocus()        { c.mu.Lock(); c.s.FocusChecks++; c.mu.Unlock() }
func (c *statsCounter) bumpDistraction()  { c.mu.Lock(); c.s.Distractions++; c.mu.Unlock() }
func (c *statsCounter) bumpIntervention() { c.mu.Lock(); c.s.Interventions++; c.mu.Unlock() }

func (c *statsCounter) snapshotAndReset() DailyStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.s
	c.s = DailyStats{}
	return out
}

// DailySummary is what the end-of-day job derives from the day's records.
type DailySummary struct {
	Date            string   `json:"date"`
	ActiveMinutes   float64  `json:"active_minutes"`
	FocusSessions   int      `json:"focus_sessions"`
	LongestFocusMin float64  `json:"longest_focus_min"`
	DistractionMin  float64  `json:"distraction_min"`
	AppSwitches     int      `json:"app_switches"`
	TopApps         []string `json:"top_apps"`
	KeyActivities   []string `json:"key_activities"`
	Interventions   int      `json:"interventions"`
}

// focusSessionMin is the minimum consecutive dwell time in one app that
// counts as a focus session in the daily summary.
const focusSessionMin = 15 * time.Minute

// BuildDailySummary aggregates a day's activity records into a summary.
func BuildDailySummary(date time.Time, records []types.ActivityRecord, stats DailyStats) DailySummary {
	summary := DailySummary{
		Date:          date.Format("2006-01-02"),
		Interventions: stats.Interventions,
	}

	appTotals := make(map[string]time.Duration)
	var active, distraction time.Duration
	var sessionApp string
	var sessionDur, longest time.Duration
	seenTasks := make(map[string]bool)

	endSession := func() {
		if sessionApp != "" && sessionDur >= focusSessionMin {
			summary.FocusSessions++
			if sessionDur > longest {
				longest = sessionDur
			}
		}
	}

	for i, r := range records {
		active += r.Duration
		appTotals[r.App] += r.Duration
		if catalog.IsDistractionApp(r.App) || catalog.IsDistractionTitle(r.WindowTitle) {
			distraction += r.Duration
		}
		if r.InferredTask != "" && !seenTasks[r.InferredTask] {
			seenTasks[r.InferredTask] = true
			if len(summary.KeyActivities) < 5 {
				summary.KeyActivities = append(summary.KeyActivities, r.InferredTask)
			}
		}

		if r.App != sessionApp {
			endSession()
			if i > 0 {
				summary.AppSwitches++
			}
			sessionApp = r.App
			sessionDur = r.Duration
		} else {
			sessionDur += r.Duration
		}
	}
	endSession()

	summary.ActiveMinutes = active.Minutes()
	summary.DistractionMin = distraction.Minutes()
	summary.LongestFocusMin = longest.Minutes()
	summary.TopApps = topApps(appTotals, 5)
	return summary
}

func topApps(totals map[string]time.Duration, n int) []string {
	apps := make([]string, 0, len(totals))
	for app := range totals {
		apps = append(apps, app)
	}
	sort.Slice(apps, func(i, j int) bool {
		return totals[apps[i]] > totals[apps[j]]
	})
	if len(apps) > n {
		apps = apps[:n]
	}
	return apps
}
