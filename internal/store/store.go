package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/HandsomeHarry/companion-cube/internal/logging"
	"github.com/HandsomeHarry/companion-cube/internal/types"
)

var log = logging.For("store")

// Store is the durable side of the engine: finalized activity records,
// emitted interventions, and daily summaries land here. The engine never
// reads records back for analysis; it keeps its own in-memory window.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the companion database under statePath.
func Open(statePath string) (*Store, error) {
	dbPath := filepath.Join(statePath, "companion.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS activity_records (
	id TEXT PRIMARY KEY,
	ts INTEGER NOT NULL,
	app TEXT NOT NULL,
	window_title TEXT NOT NULL,
	duration_sec REAL NOT NULL,
	inferred_task TEXT,
	state TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_ts ON activity_records(ts);

CREATE TABLE IF NOT EXISTS interventions (
	id TEXT PRIMARY KEY,
	ts INTEGER NOT NULL,
	trigger_kind TEXT NOT NULL,
	state TEXT NOT NULL,
	mode TEXT NOT NULL,
	text TEXT NOT NULL,
	fallback INTEGER NOT NULL,
	snapshot TEXT
);
CREATE INDEX IF NOT EXISTS idx_interventions_ts ON interventions(ts);

CREATE TABLE IF NOT EXISTS daily_summaries (
	date TEXT PRIMARY KEY,
	summary TEXT NOT NULL
);`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// SaveRecords upserts a batch of activity records. Record IDs are stable
// across re-merges of the same raw window, so overlapping polls are harmless.
func (s *Store) SaveRecords(records []types.ActivityRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO activity_records
		(id, ts, app, window_title, duration_sec, inferred_task, state)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.ID, r.Timestamp.UnixMilli(), r.App, r.WindowTitle,
			r.Duration.Seconds(), r.InferredTask, string(r.State)); err != nil {
			return fmt.Errorf("insert record %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// RecordsSince returns the stored records with timestamps at or after t, in
// ascending timestamp order. Used by the daily summary job.
func (s *Store) RecordsSince(t time.Time) ([]types.ActivityRecord, error) {
	rows, err := s.db.Query(`SELECT id, ts, app, window_title, duration_sec, inferred_task, state
		FROM activity_records WHERE ts >= ? ORDER BY ts ASC`, t.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []types.ActivityRecord
	for rows.Next() {
		var r types.ActivityRecord
		var ts int64
		var durationSec float64
		var state string
		if err := rows.Scan(&r.ID, &ts, &r.App, &r.WindowTitle, &durationSec, &r.InferredTask, &state); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Timestamp = time.UnixMilli(ts).UTC()
		r.Duration = time.Duration(durationSec * float64(time.Second))
		r.State = types.UserState(state)
		out = append(out, r)
	}
	return out, rows.Err()
}

// interventionCap bounds the interaction history, mirroring the engine's
// bounded in-memory structures.
const interventionCap = 1000

// SaveIntervention persists an emitted intervention together with an optional
// activity snapshot for later review.
func (s *Store) SaveIntervention(iv types.Intervention, snapshot any) error {
	var snapJSON []byte
	if snapshot != nil {
		var err error
		if snapJSON, err = json.Marshal(snapshot); err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
	}

	fallback := 0
	if iv.Fallback {
		fallback = 1
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO interventions
		(id, ts, trigger_kind, state, mode, text, fallback, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		iv.ID, iv.Timestamp.UnixMilli(), string(iv.Trigger), string(iv.State),
		string(iv.Mode), iv.Text, fallback, string(snapJSON))
	if err != nil {
		return fmt.Errorf("insert intervention: %w", err)
	}

	// Trim the history to the cap; losing old interactions is fine.
	if _, err := s.db.Exec(`DELETE FROM interventions WHERE id NOT IN
		(SELECT id FROM interventions ORDER BY ts DESC LIMIT ?)`, interventionCap); err != nil {
		log.Warnf("trim interventions: %v", err)
	}
	return nil
}

// InterventionsSince returns interventions emitted at or after t.
func (s *Store) InterventionsSince(t time.Time) ([]types.Intervention, error) {
	rows, err := s.db.Query(`SELECT id, ts, trigger_kind, state, mode, text, fallback
		FROM interventions WHERE ts >= ? ORDER BY ts ASC`, t.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query interventions: %w", err)
	}
	defer rows.Close()

	var out []types.Intervention
	for rows.Next() {
		var iv types.Intervention
		var ts int64
		var trigger, state, mode string
		var fallback int
		if err := rows.Scan(&iv.ID, &ts, &trigger, &state, &mode, &iv.Text, &fallback); err != nil {
			return nil, fmt.Errorf("scan intervention: %w", err)
		}
		iv.Timestamp = time.UnixMilli(ts).UTC()
		iv.Trigger = types.TriggerKind(trigger)
		iv.State = types.UserState(state)
		iv.Mode = types.CompanionMode(mode)
		iv.Fallback = fallback == 1
		out = append(out, iv)
	}
	return out, rows.Err()
}

// summaryKeep is how many daily summaries are retained.
const summaryKeep = 30

// SaveDailySummary stores one day's summary as JSON, keyed by date
// (YYYY-MM-DD), and prunes entries beyond the retention window.
func (s *Store) SaveDailySummary(date time.Time, summary any) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	key := date.Format("2006-01-02")
	if _, err := s.db.Exec(`INSERT OR REPLACE INTO daily_summaries (date, summary) VALUES (?, ?)`,
		key, string(data)); err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM daily_summaries WHERE date NOT IN
		(SELECT date FROM daily_summaries ORDER BY date DESC LIMIT ?)`, summaryKeep); err != nil {
		log.Warnf("trim summaries: %v", err)
	}
	return nil
}
