// Package ledger implements the durable, append-only submission ledger using
// SQLite. Entries record the terminal outcome of every submission attempt and
// are never mutated after append. The ledger is the single source of truth
// for rate limiting and batch dedup: weekly/daily counts are always derived
// from entry timestamps, never stored.
//
// The database assumes a single writer. Concurrent processes against one
// ledger require external mutual exclusion.
package ledger

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kstephens0331/carsub/internal/logging"
	"github.com/kstephens0331/carsub/internal/types"
)

// ErrWrite marks a failed ledger write. Callers must treat it as fatal for
// the triggering step: proceeding as if an unrecorded submission succeeded
// risks duplicate submissions on retry.
var ErrWrite = errors.New("ledger write failed")

// Store is the sqlite-backed ledger.
type Store struct {
	db    *sql.DB
	mu    sync.RWMutex
	path  string
	stats types.LedgerStats
}

// Open initializes the ledger database at the given path, creating the
// schema on first use. client names the campaign owner and is recorded once.
func Open(path, client string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryLedger, "Open")
	defer timer.Stop()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	// Single writer, single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.LedgerDebug("failed to set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.LedgerDebug("failed to set journal_mode=WAL: %v", err)
	}
	// NORMAL is safe with WAL and much faster than FULL.
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.LedgerDebug("failed to set synchronous=NORMAL: %v", err)
	}

	s := &Store{db: db, path: path}
	if err := s.initialize(client); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.recomputeStats(); err != nil {
		db.Close()
		return nil, err
	}

	logging.Ledger("ledger open at %s (%d entries recorded)", path, s.stats.Total())
	return s, nil
}

func (s *Store) initialize(client string) error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		status TEXT NOT NULL,
		ts INTEGER NOT NULL,
		notes TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_entries_url ON entries(url);
	CREATE INDEX IF NOT EXISTS idx_entries_ts ON entries(ts);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initialize ledger schema: %w", err)
	}

	// created and client are recorded once; later opens never overwrite.
	if _, err := s.db.Exec(
		`INSERT OR IGNORE INTO meta(key, value) VALUES('created', ?)`,
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("record created: %w", err)
	}
	if client != "" {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO meta(key, value) VALUES('client', ?)`, client,
		); err != nil {
			return fmt.Errorf("record client: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Append durably records one entry and recomputes aggregate stats. A failure
// here is ErrWrite-wrapped and must never be swallowed by callers.
func (s *Store) Append(entry types.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO entries(url, status, ts, notes) VALUES(?, ?, ?, ?)`,
		entry.URL, string(entry.Status), entry.Timestamp.Unix(), entry.Notes,
	)
	if err != nil {
		return fmt.Errorf("%w: append %s/%s: %v", ErrWrite, entry.URL, entry.Status, err)
	}

	// O(n) per append; fine at campaign scale (tens of entries a week).
	if err := s.recomputeStats(); err != nil {
		return fmt.Errorf("%w: recompute stats: %v", ErrWrite, err)
	}
	logging.Ledger("append %s %s (%s)", entry.Status, entry.URL, entry.Notes)
	return nil
}

func (s *Store) recomputeStats() error {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM entries GROUP BY status`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var stats types.LedgerStats
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return err
		}
		switch types.EntryStatus(status) {
		case types.StatusSubmitted:
			stats.Submitted = n
		case types.StatusPendingVerification:
			stats.Pending = n
		case types.StatusFailed:
			stats.Failed = n
		case types.StatusSkipped:
			stats.Skipped = n
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	s.stats = stats
	return nil
}

// Stats returns the aggregate counters recomputed at last append.
func (s *Store) Stats() (types.LedgerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats, nil
}

// IsDone reports whether the latest entry for url is a terminal success
// (submitted or pending_verification). Such URLs are permanently excluded
// from future batches.
func (s *Store) IsDone(url string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var status string
	err := s.db.QueryRow(
		`SELECT status FROM entries WHERE url = ? ORDER BY id DESC LIMIT 1`, url,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query latest entry for %s: %w", url, err)
	}
	return types.EntryStatus(status).IsTerminalSuccess(), nil
}

// CompletedSet returns the set of URLs whose latest entry is a terminal
// success.
func (s *Store) CompletedSet() (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Latest entry per URL wins.
	rows, err := s.db.Query(`
		SELECT url, status FROM entries
		WHERE id IN (SELECT MAX(id) FROM entries GROUP BY url)`)
	if err != nil {
		return nil, fmt.Errorf("query completed set: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var url, status string
		if err := rows.Scan(&url, &status); err != nil {
			return nil, err
		}
		if types.EntryStatus(status).IsTerminalSuccess() {
			done[url] = true
		}
	}
	return done, rows.Err()
}

// Entries returns all entries in append order.
func (s *Store) Entries() ([]types.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryEntries(`SELECT url, status, ts, notes FROM entries ORDER BY id`)
}

// EntriesBetween returns entries with start <= Timestamp < end.
func (s *Store) EntriesBetween(start, end time.Time) ([]types.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryEntries(
		`SELECT url, status, ts, notes FROM entries WHERE ts >= ? AND ts < ? ORDER BY id`,
		start.Unix(), end.Unix(),
	)
}

func (s *Store) queryEntries(query string, args ...interface{}) ([]types.LedgerEntry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []types.LedgerEntry
	for rows.Next() {
		var e types.LedgerEntry
		var status string
		var ts int64
		if err := rows.Scan(&e.URL, &status, &ts, &e.Notes); err != nil {
			return nil, err
		}
		e.Status = types.EntryStatus(status)
		e.Timestamp = time.Unix(ts, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

// CampaignStart returns the persisted campaign start, if any. The value is
// write-once; see SetCampaignStart.
func (s *Store) CampaignStart() (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'campaign_start'`).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query campaign start: %w", err)
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse campaign start %q: %w", value, err)
	}
	return t, true, nil
}

// SetCampaignStart persists the campaign start exactly once. A later call
// with a different time is a no-op: recomputing the start would corrupt week
// numbering for a resumed campaign.
func (s *Store) SetCampaignStart(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO meta(key, value) VALUES('campaign_start', ?)`,
		t.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: campaign start: %v", ErrWrite, err)
	}
	return nil
}

// Export renders the ledger's logical schema for human inspection:
// {created, client, stats, entries} plus campaign metadata.
type Export struct {
	Created       string              `json:"created"`
	Client        string              `json:"client,omitempty"`
	CampaignStart string              `json:"campaign_start,omitempty"`
	Stats         types.LedgerStats   `json:"stats"`
	Entries       []types.LedgerEntry `json:"entries"`
}

// ExportJSON serializes the full logical ledger.
func (s *Store) ExportJSON() ([]byte, error) {
	entries, err := s.Entries()
	if err != nil {
		return nil, err
	}
	stats, _ := s.Stats()

	s.mu.RLock()
	var created, client, start string
	_ = s.db.QueryRow(`SELECT value FROM meta WHERE key = 'created'`).Scan(&created)
	_ = s.db.QueryRow(`SELECT value FROM meta WHERE key = 'client'`).Scan(&client)
	_ = s.db.QueryRow(`SELECT value FROM meta WHERE key = 'campaign_start'`).Scan(&start)
	s.mu.RUnlock()

	return json.MarshalIndent(Export{
		Created:       created,
		Client:        client,
		CampaignStart: start,
		Stats:         stats,
		Entries:       entries,
	}, "", "  ")
}
