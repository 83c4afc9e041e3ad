package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/HandsomeHarry/companion-cube/internal/logging"
	"github.com/HandsomeHarry/companion-cube/internal/types"
)

var log = logging.For("device")

// DisplayBudget is how many characters the device can render.
const DisplayBudget = 20

// brightnessByState maps each user state to a lamp brightness. Flow is dim so
// the device itself never pulls attention during deep focus.
var brightnessByState = map[types.UserState]int{
	types.StateFlow:    20,
	types.StateWorking: 60,
	types.StateNudge:   100,
	types.StateAway:    10,
}

// Cube drives the companion device over a websocket. Every failure is
// non-fatal: the connection is marked stale and the engine keeps running
// without a device. Reconnection is an external concern; this adapter only
// dials once per Send after going stale.
type Cube struct {
	url         string
	dialTimeout time.Duration

	mu    sync.Mutex
	conn  *websocket.Conn
	stale bool
}

// New creates an adapter for the device endpoint, e.g.
// "ws://localhost:8321/device".
func New(url string) *Cube {
	return &Cube{url: url, dialTimeout: 5 * time.Second, stale: true}
}

// Connected reports whether the last exchange with the device succeeded.
func (c *Cube) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.stale
}

// Show renders a state on the device: brightness from the state, text
// truncated to the display budget.
func (c *Cube) Show(state types.UserState, text string) error {
	payload := types.DevicePayload{
		State:      state,
		Text:       logging.Truncate(text, DisplayBudget),
		Brightness: brightnessByState[state],
	}
	return c.send(payload)
}

// Close shuts the connection down.
func (c *Cube) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.stale = true
}

func (c *Cube) send(payload types.DevicePayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.stale {
		if err := c.dialLocked(); err != nil {
			return err
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteJSON(payload); err != nil {
		c.stale = true
		c.conn.Close()
		c.conn = nil
		return fmt.Errorf("device write: %w", err)
	}
	return nil
}

func (c *Cube) dialLocked() error {
	dialer := websocket.Dialer{HandshakeTimeout: c.dialTimeout}
	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		c.stale = true
		return fmt.Errorf("device dial %s: %w", c.url, err)
	}
	c.conn = conn
	c.stale = false
	log.Infof("connected to device at %s", c.url)
	return nil
}
