package device

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/HandsomeHarry/companion-cube/internal/types"
)

// deviceServer accepts one websocket connection and forwards every received
// payload on the returned channel.
func deviceServer(t *testing.T) (*Cube, chan types.DevicePayload) {
	t.Helper()
	received := make(chan types.DevicePayload, 8)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for {
			var p types.DevicePayload
			if err := conn.ReadJSON(&p); err != nil {
				return
			}
			received <- p
		}
	}))
	t.Cleanup(srv.Close)

	cube := New("ws" + strings.TrimPrefix(srv.URL, "http"))
	t.Cleanup(cube.Close)
	return cube, received
}

func TestShowSendsPayload(t *testing.T) {
	cube, received := deviceServer(t)

	if err := cube.Show(types.StateNudge, "take a tiny break"); err != nil {
		t.Fatalf("Show: %v", err)
	}

	select {
	case p := <-received:
		if p.State != types.StateNudge {
			t.Errorf("State = %v", p.State)
		}
		if p.Brightness != 100 {
			t.Errorf("Brightness = %d, want 100", p.Brightness)
		}
		if p.Text != "take a tiny break" {
			t.Errorf("Text = %q", p.Text)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("device never received the payload")
	}

	if !cube.Connected() {
		t.Error("cube should report connected after a successful send")
	}
}

func TestShowTruncatesToDisplayBudget(t *testing.T) {
	cube, received := deviceServer(t)

	long := strings.Repeat("focus ", 10)
	if err := cube.Show(types.StateWorking, long); err != nil {
		t.Fatalf("Show: %v", err)
	}

	select {
	case p := <-received:
		if len([]rune(strings.TrimSuffix(p.Text, "..."))) > DisplayBudget {
			t.Errorf("text over display budget: %q", p.Text)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("device never received the payload")
	}
}

func TestShowFailsWithoutDevice(t *testing.T) {
	cube := New("ws://127.0.0.1:1/device")
	cube.dialTimeout = 200 * time.Millisecond

	if err := cube.Show(types.StateWorking, "hello"); err == nil {
		t.Error("expected dial error")
	}
	if cube.Connected() {
		t.Error("cube must stay disconnected")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	cube, _ := deviceServer(t)
	if err := cube.Show(types.StateAway, "bye"); err != nil {
		t.Fatalf("Show: %v", err)
	}
	cube.Close()
	cube.Close()
	if cube.Connected() {
		t.Error("closed cube reports connected")
	}
}
