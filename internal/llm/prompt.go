package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/HandsomeHarry/companion-cube/internal/pattern"
	"github.com/HandsomeHarry/companion-cube/internal/types"
)

// BuildContext renders a short activity summary for the prompt: what the user
// is doing, how fragmented the window looks, the dominant app, and how the
// window compares with the previous one. prev may be empty (no comparison).
func BuildContext(records []types.ActivityRecord, stats, prev pattern.Stats, current types.UserState) string {
	var parts []string

	if current == types.StateAway {
		parts = append(parts, "User is currently away from keyboard.")
	} else if top, dur := dominantApp(records); top != "" {
		parts = append(parts, fmt.Sprintf("Currently using %s for %.1f minutes.", top, dur.Minutes()))
	}

	if len(records) > 0 {
		if task := records[len(records)-1].InferredTask; task != "" {
			parts = append(parts, fmt.Sprintf("Working on: %s.", task))
		}
	}

	if stats.AppSwitches > 3 {
		parts = append(parts, fmt.Sprintf("High context switching (%d switches).", stats.AppSwitches))
	}
	if stats.Distraction > 0 {
		parts = append(parts, fmt.Sprintf("Distraction time: %.0f minutes.", stats.Distraction.Minutes()))
	}
	if trend := trendSentence(stats, prev); trend != "" {
		parts = append(parts, trend)
	}

	return strings.Join(parts, " ")
}

// trendSentence compares the current window with the previous one. Distraction
// drift is what an intervention most wants to know about, so it wins over a
// focus trend when both moved.
func trendSentence(stats, prev pattern.Stats) string {
	if prev.Records == 0 || stats.Records == 0 {
		return ""
	}
	switch {
	case stats.Distraction > prev.Distraction:
		return "Distraction is rising compared to the previous window."
	case stats.Distraction < prev.Distraction:
		return "Distraction is lower than the previous window."
	case stats.FocusTime > prev.FocusTime:
		return "Focus is improving compared to the previous window."
	}
	return ""
}

// BuildPrompt produces a state-appropriate prompt for the generation backend.
func BuildPrompt(current types.UserState, context string) string {
	switch current {
	case types.StateFlow:
		return fmt.Sprintf(`The user is in a flow state. %s
Respond with brief encouragement (max 20 words). Acknowledge their focus.
No suggestions or interruptions, just positive reinforcement.`, context)
	case types.StateNudge:
		return fmt.Sprintf(`%s
The user might be stuck or distracted. Provide:
1) Acknowledge what you see without judgment
2) One specific, tiny next action they could take
3) Encouragement that any progress is good progress
Keep it under 40 words, warm and supportive.`, context)
	case types.StateWorking:
		return fmt.Sprintf(`The user is working steadily. %s
Provide a brief acknowledgment of their progress.
Keep it to one supportive sentence, max 20 words.`, context)
	case types.StateAway:
		return `The user just returned to their computer. Welcome them back warmly and ask what they'd like to focus on next. Max 20 words.`
	default:
		return fmt.Sprintf(`%s
Provide brief, encouraging feedback about their current activity. Max 20 words.`, context)
	}
}

func dominantApp(records []types.ActivityRecord) (string, time.Duration) {
	totals := make(map[string]time.Duration)
	for _, r := range records {
		totals[r.App] += r.Duration
	}
	var best string
	var bestDur time.Duration
	for app, d := range totals {
		if d > bestDur {
			best, bestDur = app, d
		}
	}
	return best, bestDur
}
