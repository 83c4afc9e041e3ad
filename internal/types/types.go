package types

import (
	"strings"
	"time"
)

// EventCategory identifies which kind of watcher produced a raw event.
type EventCategory string

const (
	CategoryWindow EventCategory = "window" // foreground window samples
	CategoryIdle   EventCategory = "idle"   // AFK/not-AFK status samples
	CategoryWeb    EventCategory = "web"    // browser tab samples
)

// EventAttributes holds the known attributes of a raw event. Watchers attach
// different subsets: window events carry App+Title, idle events carry Status,
// web events carry URL+Title. Anything else the source sends lands in Extra.
type EventAttributes struct {
	App    string            `json:"app,omitempty"`
	Title  string            `json:"title,omitempty"`
	URL    string            `json:"url,omitempty"`
	Status string            `json:"status,omitempty"`
	Extra  map[string]string `json:"extra,omitempty"`
}

// RawEvent is a single timestamped sample from an event source. RawEvents are
// short-lived: they exist only between a fetch and the merge that consumes them.
type RawEvent struct {
	Timestamp  time.Time       `json:"timestamp"`
	Duration   time.Duration   `json:"duration"`
	Category   EventCategory   `json:"category"`
	Attributes EventAttributes `json:"attributes"`
}

// Bucket is one physical event stream exposed by a source, e.g. the window
// watcher on a particular host. When several hosts report to one source, the
// bucket with the newest LastUpdated is the active one for its category.
type Bucket struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Hostname    string    `json:"hostname"`
	LastUpdated time.Time `json:"last_updated"`
}

// ActivityRecord is the canonical unit of observed activity. Records are
// created by the merger, may be enriched once by a web event, and are
// append-only afterwards.
type ActivityRecord struct {
	ID           string        `json:"id"`
	Timestamp    time.Time     `json:"timestamp"`
	App          string        `json:"app"`
	WindowTitle  string        `json:"window_title"`
	Duration     time.Duration `json:"duration"`
	InferredTask string        `json:"inferred_task,omitempty"`
	State        UserState     `json:"state"`
}

// UserState is the coarse behavioral state inferred from activity.
type UserState string

const (
	StateFlow    UserState = "flow"        // deep focus, never interrupt
	StateWorking UserState = "working"     // steady work, interruptible
	StateNudge   UserState = "needs_nudge" // distracted or stuck
	StateAway    UserState = "afk"         // away from keyboard
)

// ValidStates lists every user state, in rough order of engagement.
var ValidStates = []UserState{StateFlow, StateWorking, StateNudge, StateAway}

// CompanionMode governs intervention cadence and tone. It is configured
// externally and read-only to the engine.
type CompanionMode string

const (
	ModeStudyBuddy CompanionMode = "study_buddy"
	ModeGhost      CompanionMode = "ghost"
	ModeCoach      CompanionMode = "coach"
	ModeWeekend    CompanionMode = "weekend"
)

// ParseMode converts a config string into a CompanionMode.
func ParseMode(s string) (CompanionMode, bool) {
	switch CompanionMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeStudyBuddy:
		return ModeStudyBuddy, true
	case ModeGhost:
		return ModeGhost, true
	case ModeCoach:
		return ModeCoach, true
	case ModeWeekend:
		return ModeWeekend, true
	}
	return "", false
}

// TriggerKind identifies what caused an intervention, for cooldown bookkeeping.
type TriggerKind string

const (
	TriggerNudge      TriggerKind = "nudge"      // dual-confirmed stuck/nudge path
	TriggerSuggestion TriggerKind = "suggestion" // mode-cadence suggestion path
)

// Intervention is an outward-facing suggestion or signal produced by the
// scheduler after cooldown and flow-protection checks passed.
type Intervention struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Trigger   TriggerKind   `json:"trigger"`
	State     UserState     `json:"state"`
	Mode      CompanionMode `json:"mode"`
	Text      string        `json:"text"`
	Fallback  bool          `json:"fallback"` // true when the LLM was unavailable
}

// DevicePayload is what the device collaborator accepts: a state to render,
// a short display text, and a brightness level.
type DevicePayload struct {
	State      UserState `json:"state"`
	Text       string    `json:"text"`
	Brightness int       `json:"brightness"`
}
