package llm

import (
	"strings"
	"testing"
	"time"

	"github.com/HandsomeHarry/companion-cube/internal/pattern"
	"github.com/HandsomeHarry/companion-cube/internal/types"
)

func TestBuildContext(t *testing.T) {
	records := []types.ActivityRecord{
		{App: "goland", Duration: 20 * time.Minute, InferredTask: "Programming"},
		{App: "chrome", Duration: 5 * time.Minute, InferredTask: "Research/learning"},
	}
	stats := pattern.Stats{AppSwitches: 7, Distraction: 12 * time.Minute}

	ctx := BuildContext(records, stats, pattern.Stats{}, types.StateWorking)
	for _, want := range []string{
		"Currently using goland for 20.0 minutes.",
		"Working on: Research/learning.",
		"High context switching (7 switches).",
		"Distraction time: 12 minutes.",
	} {
		if !strings.Contains(ctx, want) {
			t.Errorf("context missing %q:\n%s", want, ctx)
		}
	}
}

func TestBuildContextAway(t *testing.T) {
	ctx := BuildContext(nil, pattern.Stats{}, pattern.Stats{}, types.StateAway)
	if !strings.Contains(ctx, "away from keyboard") {
		t.Errorf("context = %q", ctx)
	}
}

func TestBuildContextTrend(t *testing.T) {
	records := []types.ActivityRecord{{App: "chrome", Duration: 10 * time.Minute}}

	tests := []struct {
		name  string
		stats pattern.Stats
		prev  pattern.Stats
		want  string
	}{
		{
			name:  "distraction rising",
			stats: pattern.Stats{Records: 4, Distraction: 10 * time.Minute},
			prev:  pattern.Stats{Records: 4, Distraction: 2 * time.Minute},
			want:  "Distraction is rising",
		},
		{
			name:  "distraction falling",
			stats: pattern.Stats{Records: 4, Distraction: time.Minute},
			prev:  pattern.Stats{Records: 4, Distraction: 8 * time.Minute},
			want:  "Distraction is lower",
		},
		{
			name:  "focus improving",
			stats: pattern.Stats{Records: 4, FocusTime: 20 * time.Minute},
			prev:  pattern.Stats{Records: 4, FocusTime: 5 * time.Minute},
			want:  "Focus is improving",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := BuildContext(records, tt.stats, tt.prev, types.StateWorking)
			if !strings.Contains(ctx, tt.want) {
				t.Errorf("context missing %q:\n%s", tt.want, ctx)
			}
		})
	}
}

func TestBuildContextNoTrendWithoutHistory(t *testing.T) {
	records := []types.ActivityRecord{{App: "chrome", Duration: 10 * time.Minute}}
	stats := pattern.Stats{Records: 4, Distraction: 10 * time.Minute}

	ctx := BuildContext(records, stats, pattern.Stats{}, types.StateWorking)
	if strings.Contains(ctx, "previous window") {
		t.Errorf("trend emitted with no prior-window data:\n%s", ctx)
	}
}

func TestBuildPromptPerState(t *testing.T) {
	tests := []struct {
		state types.UserState
		want  string
	}{
		{types.StateFlow, "flow state"},
		{types.StateNudge, "tiny next action"},
		{types.StateWorking, "working steadily"},
		{types.StateAway, "Welcome them back"},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			prompt := BuildPrompt(tt.state, "some context")
			if !strings.Contains(prompt, tt.want) {
				t.Errorf("prompt for %s missing %q:\n%s", tt.state, tt.want, prompt)
			}
		})
	}
}

func TestBuildPromptEmbedsContext(t *testing.T) {
	const marker = "Currently using goland"
	for _, state := range []types.UserState{types.StateFlow, types.StateNudge, types.StateWorking} {
		if !strings.Contains(BuildPrompt(state, marker), marker) {
			t.Errorf("prompt for %s dropped the context", state)
		}
	}
}
