// Package audit keeps a queryable history of grants and revocations.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Actions recorded by the allowlist.
const (
	ActionGrant  = "grant"
	ActionRevoke = "revoke"
	ActionExpire = "expire"
)

// DefaultRetentionDays is used when the configured retention is not positive.
const DefaultRetentionDays = 90

// Event is a single audit log entry.
type Event struct {
	ID        int64     `json:"id"`
	OpID      string    `json:"opId"`
	Time      time.Time `json:"time"`
	Action    string    `json:"action"`
	Zone      string    `json:"zone"`
	Source    string    `json:"source"`
	Client    string    `json:"client,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Filter narrows a Query. Zero fields match everything.
type Filter struct {
	Zone   string
	Source string
	Action string
	Since  time.Time
	Limit  int
}

// Store provides persistent storage for audit events.
type Store struct {
	mu            sync.RWMutex
	db            *sql.DB
	retentionDays int
}

// NewStore opens (or creates) the audit database at dbPath.
func NewStore(dbPath string, retentionDays int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			op_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			action TEXT NOT NULL,
			zone TEXT NOT NULL,
			source TEXT NOT NULL,
			client TEXT,
			success INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			expires_at INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_events(ts);
		CREATE INDEX IF NOT EXISTS idx_audit_zone_source ON audit_events(zone, source);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create audit table: %w", err)
	}

	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}

	return &Store{
		db:            db,
		retentionDays: retentionDays,
	}, nil
}

// Write persists an audit event.
func (s *Store) Write(evt Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}
	var expires sql.NullInt64
	if !evt.ExpiresAt.IsZero() {
		expires = sql.NullInt64{Int64: evt.ExpiresAt.UnixMilli(), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO audit_events (op_id, ts, action, zone, source, client, success, error, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, evt.OpID, evt.Time.UnixMilli(), evt.Action, evt.Zone, evt.Source, evt.Client, evt.Success, evt.Error, expires)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Record satisfies the allowlist recorder interface.
func (s *Store) Record(evt Event) error {
	return s.Write(evt)
}

// Query returns events matching f, newest first.
func (s *Store) Query(ctx context.Context, f Filter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any
	if f.Zone != "" {
		where = append(where, "zone = ?")
		args = append(args, f.Zone)
	}
	if f.Source != "" {
		where = append(where, "source = ?")
		args = append(args, f.Source)
	}
	if f.Action != "" {
		where = append(where, "action = ?")
		args = append(args, f.Action)
	}
	if !f.Since.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, f.Since.UnixMilli())
	}

	query := `SELECT id, op_id, ts, action, zone, source, client, success, error, expires_at FROM audit_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts DESC, id DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			evt     Event
			ts      int64
			client  sql.NullString
			errText sql.NullString
			expires sql.NullInt64
		)
		if err := rows.Scan(&evt.ID, &evt.OpID, &ts, &evt.Action, &evt.Zone, &evt.Source,
			&client, &evt.Success, &errText, &expires); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		evt.Time = time.UnixMilli(ts)
		evt.Client = client.String
		evt.Error = errText.String
		if expires.Valid {
			evt.ExpiresAt = time.UnixMilli(expires.Int64)
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

// Prune removes events older than the retention period relative to now.
func (s *Store) Prune(now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.AddDate(0, 0, -s.retentionDays)
	result, err := s.db.Exec("DELETE FROM audit_events WHERE ts < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune audit events: %w", err)
	}
	return result.RowsAffected()
}

// Count returns the total number of events in the store.
func (s *Store) Count() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	err := s.db.QueryRow("SELECT COUNT(*) FROM audit_events").Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
