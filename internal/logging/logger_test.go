package logging

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"short string untouched", "hello", 10, "hello"},
		{"exact length untouched", "hello", 5, "hello"},
		{"long string cut with ellipsis", "hello world", 5, "hello..."},
		{"newlines collapsed", "line one\nline two", 20, "line one line two"},
		{"multibyte runes not split", "héllo wörld", 7, "héllo w..."},
		{"leading whitespace trimmed", "  padded  ", 20, "padded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.in, tt.maxLen); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestForTagsSubsystem(t *testing.T) {
	entry := For("test")
	if entry.Data["subsystem"] != "test" {
		t.Errorf("subsystem field = %v", entry.Data["subsystem"])
	}
}
