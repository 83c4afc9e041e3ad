package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var root = logrus.New()

func init() {
	root.SetOutput(os.Stderr)
	root.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "01-02 15:04:05",
	})
	if os.Getenv("DEBUG") == "true" {
		root.SetLevel(logrus.DebugLevel)
	}
}

// SetLevel applies a level name from config ("debug", "info", "warn", "error").
// Unknown names are ignored and the current level kept.
func SetLevel(name string) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(name))
	if err != nil {
		return
	}
	root.SetLevel(lvl)
}

// For returns a logger entry tagged with the given subsystem name.
func For(subsystem string) *logrus.Entry {
	return root.WithField("subsystem", subsystem)
}

// Truncate shortens a string to maxLen runes for one-line logs and small
// displays, collapsing newlines and appending an ellipsis when cut.
func Truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
