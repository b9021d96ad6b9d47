package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/swatchmatch/diag"
)

const schema = `
CREATE TABLE IF NOT EXISTS scans (
	scan_id    TEXT PRIMARY KEY,
	page_url   TEXT NOT NULL,
	started_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS scan_events (
	event_id   TEXT PRIMARY KEY,
	scan_id    TEXT NOT NULL REFERENCES scans(scan_id),
	kind       TEXT NOT NULL,
	phase      TEXT,
	tier       INTEGER,
	distance   REAL,
	reason     TEXT,
	payload    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scan_events_scan ON scan_events(scan_id, kind);
`

// Store persists diagnostic events to SQLite for offline inspection of
// which phase and tier carried each page. The association core never
// touches it; hosts attach it as one more sink.
type Store struct {
	db     *sql.DB
	scanID string
}

// OpenStore opens (creating if needed) the event database at path and
// registers a new scan for pageURL. Import a driver first:
//
//	import _ "modernc.org/sqlite"
func OpenStore(path, pageURL string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sink: open store: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sink: %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sink: create schema: %w", err)
	}

	scanID := uuid.Must(uuid.NewV7()).String()
	_, err = db.Exec(`INSERT INTO scans (scan_id, page_url, started_at) VALUES (?,?,?)`,
		scanID, pageURL, time.Now().Unix())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sink: register scan: %w", err)
	}
	return &Store{db: db, scanID: scanID}, nil
}

// ScanID returns the identifier of the current scan.
func (s *Store) ScanID() string { return s.scanID }

// Emit records one event.
func (s *Store) Emit(ctx context.Context, ev diag.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("sink: marshal event: %w", err)
	}
	var distance any
	if ev.Distance != nil {
		distance = *ev.Distance
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scan_events (event_id, scan_id, kind, phase, tier, distance, reason, payload, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		uuid.Must(uuid.NewV7()).String(), s.scanID, string(ev.Kind), ev.Phase, ev.Tier,
		distance, ev.Reason, string(payload), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sink: insert event: %w", err)
	}
	return nil
}

// Cleanup deletes scans and their events older than the retention window.
// Zero or negative days means no cleanup.
func (s *Store) Cleanup(ctx context.Context, days int) error {
	if days <= 0 {
		return nil
	}
	cutoff := time.Now().Unix() - int64(days)*86400
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM scan_events WHERE scan_id IN (SELECT scan_id FROM scans WHERE started_at < ?)`, cutoff); err != nil {
		return fmt.Errorf("sink: cleanup events: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE started_at < ?`, cutoff); err != nil {
		return fmt.Errorf("sink: cleanup scans: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
