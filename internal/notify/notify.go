package notify

import (
	"fmt"
	"io"
	"os"

	"github.com/HandsomeHarry/companion-cube/internal/types"
)

// Notifier is the user-facing notification surface. How a suggestion is
// rendered is outside the core; this interface is the boundary.
type Notifier interface {
	Notify(iv types.Intervention) error
}

// stateGlyph gives each state a small visual marker on the console.
var stateGlyph = map[types.UserState]string{
	types.StateFlow:    "🚀",
	types.StateWorking: "💪",
	types.StateNudge:   "💚",
	types.StateAway:    "👋",
}

// Console prints interventions to a terminal.
type Console struct {
	out io.Writer
}

// NewConsole creates a console notifier writing to stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleTo creates a console notifier with a custom writer, for tests.
func NewConsoleTo(w io.Writer) *Console {
	return &Console{out: w}
}

// Notify prints one intervention line.
func (c *Console) Notify(iv types.Intervention) error {
	glyph, ok := stateGlyph[iv.State]
	if !ok {
		glyph = "🧊"
	}
	_, err := fmt.Fprintf(c.out, "\n[%s] %s Companion: %s\n",
		iv.Timestamp.Local().Format("15:04"), glyph, iv.Text)
	return err
}

// Silent discards notifications; used when running headless with only the
// device attached.
type Silent struct{}

// Notify implements Notifier.
func (Silent) Notify(types.Intervention) error { return nil }
