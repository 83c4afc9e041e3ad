package merge

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/HandsomeHarry/companion-cube/internal/catalog"
	"github.com/HandsomeHarry/companion-cube/internal/state"
	"github.com/HandsomeHarry/companion-cube/internal/types"
)

// WebProximity is how close a web event must be to an existing window record
// to enrich it instead of becoming its own record.
const WebProximity = 5 * time.Second

// Merger joins window, idle, and web events into canonical ActivityRecords.
type Merger struct {
	idleOverlap time.Duration
}

// New creates a merger. idleOverlap is the AFK proximity window handed to the
// per-record classifier.
func New(idleOverlap time.Duration) *Merger {
	return &Merger{idleOverlap: idleOverlap}
}

// Merge normalizes one poll's events into ActivityRecords sorted by ascending
// timestamp. Window events missing an app or title are dropped, not defaulted.
// The result is idempotent over re-merging the same raw window: record
// identity follows the event timestamps, so overlapping polls are safe to
// recompute.
func (m *Merger) Merge(window, idle, web []types.RawEvent) []types.ActivityRecord {
	records := make([]types.ActivityRecord, 0, len(window)+len(web))

	for _, ev := range window {
		app, title := ev.Attributes.App, ev.Attributes.Title
		if app == "" || title == "" {
			continue // malformed: required attributes missing
		}
		records = append(records, types.ActivityRecord{
			ID:           recordID(ev.Timestamp, app),
			Timestamp:    ev.Timestamp,
			App:          app,
			WindowTitle:  title,
			Duration:     ev.Duration,
			InferredTask: catalog.TaskForApp(app, title),
			State:        state.ClassifyRecord(app, title, idle, ev.Timestamp, m.idleOverlap),
		})
	}

	for _, ev := range web {
		if ev.Attributes.URL == "" {
			continue
		}
		domain := catalog.Domain(ev.Attributes.URL)
		task := catalog.TaskForDomain(domain, ev.Attributes.Title)

		if rec := nearestWithin(records, ev.Timestamp, WebProximity); rec != nil {
			// Enrich the window record: page title extends the window title,
			// and the domain-based task wins over the app-based guess.
			if ev.Attributes.Title != "" && !strings.Contains(rec.WindowTitle, ev.Attributes.Title) {
				rec.WindowTitle = rec.WindowTitle + " - " + ev.Attributes.Title
			}
			if task != "" {
				rec.InferredTask = task
			}
			if catalog.IsDistractionDomain(domain) && rec.State == types.StateWorking {
				rec.State = state.ClassifyRecord(rec.App, rec.WindowTitle, idle, rec.Timestamp, m.idleOverlap)
			}
			continue
		}

		// No nearby window record: attribute the activity to the browser via
		// its domain.
		title := ev.Attributes.Title
		if title == "" {
			title = domain
		}
		records = append(records, types.ActivityRecord{
			ID:           recordID(ev.Timestamp, domain),
			Timestamp:    ev.Timestamp,
			App:          browserAppName(domain),
			WindowTitle:  title,
			Duration:     ev.Duration,
			InferredTask: task,
			State:        state.ClassifyRecord(browserAppName(domain), title, idle, ev.Timestamp, m.idleOverlap),
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return records
}

// nearestWithin finds the record closest in time to ts, if any lies within
// the proximity window.
func nearestWithin(records []types.ActivityRecord, ts time.Time, within time.Duration) *types.ActivityRecord {
	var best *types.ActivityRecord
	var bestGap time.Duration
	for i := range records {
		gap := records[i].Timestamp.Sub(ts)
		if gap < 0 {
			gap = -gap
		}
		if gap > within {
			continue
		}
		if best == nil || gap < bestGap {
			best = &records[i]
			bestGap = gap
		}
	}
	return best
}

// recordID derives a stable identity from the event timestamp and subject, so
// re-merging the same raw window reproduces the same records.
func recordID(ts time.Time, subject string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%d|%s", ts.UnixNano(), strings.ToLower(subject)))).String()
}

// browserAppName labels a synthesized web record, e.g. "browser:youtube.com".
func browserAppName(domain string) string {
	return "browser:" + domain
}
