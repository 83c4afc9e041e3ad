package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func awServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/0/buckets/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"aw-watcher-window_host": {
				"id": "aw-watcher-window_host",
				"type": "currentwindow",
				"hostname": "host",
				"last_updated": "2025-06-02T09:00:00Z"
			}
		}`))
	})
	mux.HandleFunc("/api/0/buckets/aw-watcher-window_host/events", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") == "" || r.URL.Query().Get("end") == "" {
			http.Error(w, "missing range", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{
				"timestamp": "2025-06-02T09:00:00Z",
				"duration": 12.5,
				"data": {"app": "vim", "title": "notes.md", "pid": 42, "monitor": "primary"}
			}
		]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestActivityWatchBuckets(t *testing.T) {
	srv := awServer(t)
	c := NewActivityWatch(srv.URL)

	buckets, err := c.Buckets(context.Background())
	if err != nil {
		t.Fatalf("Buckets: %v", err)
	}
	if len(buckets) != 1 {
		t.Fatalf("got %d buckets", len(buckets))
	}
	b := buckets[0]
	if b.ID != "aw-watcher-window_host" || b.Category != "currentwindow" || b.Hostname != "host" {
		t.Errorf("bucket = %+v", b)
	}
}

func TestActivityWatchEvents(t *testing.T) {
	srv := awServer(t)
	c := NewActivityWatch(srv.URL)

	start := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	events, err := c.Events(context.Background(), "aw-watcher-window_host", start, start.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	ev := events[0]
	if ev.Duration != 12500*time.Millisecond {
		t.Errorf("Duration = %v, want 12.5s", ev.Duration)
	}
	if ev.Attributes.App != "vim" || ev.Attributes.Title != "notes.md" {
		t.Errorf("attributes = %+v", ev.Attributes)
	}
	// Non-string values are dropped, unknown strings land in Extra.
	if _, ok := ev.Attributes.Extra["pid"]; ok {
		t.Error("numeric data value leaked into Extra")
	}
	if ev.Attributes.Extra["monitor"] != "primary" {
		t.Errorf("Extra = %v", ev.Attributes.Extra)
	}
}

func TestActivityWatchCheckConnection(t *testing.T) {
	srv := awServer(t)
	c := NewActivityWatch(srv.URL)
	if err := c.CheckConnection(context.Background()); err != nil {
		t.Errorf("CheckConnection: %v", err)
	}

	srv.Close()
	if err := c.CheckConnection(context.Background()); err == nil {
		t.Error("expected error after server shutdown")
	}
}

func TestActivityWatchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewActivityWatch(srv.URL)
	if _, err := c.Buckets(context.Background()); err == nil {
		t.Error("expected error on 500")
	}
}

func TestParseAttributesStatus(t *testing.T) {
	attrs := parseAttributes(map[string]any{"status": "afk"})
	if attrs.Status != "afk" {
		t.Errorf("Status = %q", attrs.Status)
	}
}
