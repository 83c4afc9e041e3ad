package store

import (
	"testing"
	"time"

	"github.com/HandsomeHarry/companion-cube/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(id string, ts time.Time) types.ActivityRecord {
	return types.ActivityRecord{
		ID:           id,
		Timestamp:    ts,
		App:          "vim",
		WindowTitle:  "notes.md",
		Duration:     30 * time.Second,
		InferredTask: "Programming",
		State:        types.StateWorking,
	}
}

func TestSaveAndLoadRecords(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	err := s.SaveRecords([]types.ActivityRecord{
		sampleRecord("a", base),
		sampleRecord("b", base.Add(time.Minute)),
	})
	if err != nil {
		t.Fatalf("SaveRecords: %v", err)
	}

	got, err := s.RecordsSince(base)
	if err != nil {
		t.Fatalf("RecordsSince: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	r := got[0]
	if r.ID != "a" || r.App != "vim" || r.Duration != 30*time.Second || r.State != types.StateWorking {
		t.Errorf("round-trip mismatch: %+v", r)
	}

	// The cutoff is inclusive and filters out older rows.
	later, err := s.RecordsSince(base.Add(time.Minute))
	if err != nil {
		t.Fatalf("RecordsSince: %v", err)
	}
	if len(later) != 1 || later[0].ID != "b" {
		t.Errorf("cutoff query returned %d records", len(later))
	}
}

func TestSaveRecordsUpsertsOnSameID(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	rec := sampleRecord("a", base)
	if err := s.SaveRecords([]types.ActivityRecord{rec}); err != nil {
		t.Fatal(err)
	}
	rec.WindowTitle = "notes.md - updated"
	if err := s.SaveRecords([]types.ActivityRecord{rec}); err != nil {
		t.Fatal(err)
	}

	got, err := s.RecordsSince(base)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("upsert duplicated the row: %d records", len(got))
	}
	if got[0].WindowTitle != "notes.md - updated" {
		t.Errorf("title = %q", got[0].WindowTitle)
	}
}

func TestInterventionRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ts := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	iv := types.Intervention{
		ID:        "iv-1",
		Timestamp: ts,
		Trigger:   types.TriggerNudge,
		State:     types.StateNudge,
		Mode:      types.ModeCoach,
		Text:      "pick one small thing",
		Fallback:  true,
	}
	if err := s.SaveIntervention(iv, map[string]int{"switches": 11}); err != nil {
		t.Fatalf("SaveIntervention: %v", err)
	}

	got, err := s.InterventionsSince(ts.Add(-time.Hour))
	if err != nil {
		t.Fatalf("InterventionsSince: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d interventions", len(got))
	}
	g := got[0]
	if g.Trigger != types.TriggerNudge || g.Mode != types.ModeCoach || !g.Fallback {
		t.Errorf("round-trip mismatch: %+v", g)
	}
}

func TestInterventionHistoryCapped(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 1010; i++ {
		iv := types.Intervention{
			ID:        time.Duration(i).String() + "-iv",
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Trigger:   types.TriggerSuggestion,
			State:     types.StateWorking,
			Mode:      types.ModeCoach,
			Text:      "x",
		}
		if err := s.SaveIntervention(iv, nil); err != nil {
			t.Fatalf("SaveIntervention %d: %v", i, err)
		}
	}

	got, err := s.InterventionsSince(base)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) > 1000 {
		t.Errorf("history not capped: %d rows", len(got))
	}
	// The newest entries survive the trim.
	found := false
	for _, iv := range got {
		if iv.Timestamp.Equal(base.Add(1009 * time.Second)) {
			found = true
		}
	}
	if !found {
		t.Error("newest intervention was trimmed")
	}
}

func TestSaveDailySummary(t *testing.T) {
	s := openTestStore(t)
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	summary := map[string]any{"active_minutes": 250.0}
	if err := s.SaveDailySummary(date, summary); err != nil {
		t.Fatalf("SaveDailySummary: %v", err)
	}
	// Same date overwrites, no constraint error.
	if err := s.SaveDailySummary(date, summary); err != nil {
		t.Fatalf("second SaveDailySummary: %v", err)
	}
}
