package types

import "testing"

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want CompanionMode
		ok   bool
	}{
		{"study_buddy", ModeStudyBuddy, true},
		{"COACH", ModeCoach, true},
		{" ghost ", ModeGhost, true},
		{"weekend", ModeWeekend, true},
		{"vacation", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseMode(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseMode(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
