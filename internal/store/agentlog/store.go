// Package agentlog archives the agent's activity stream in SQLite. The
// in-memory ring stays authoritative for the API; this copy survives
// restarts for offline inspection.
package agentlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tickbot/internal/agent"
	"tickbot/internal/agent/engine"

	_ "modernc.org/sqlite"
)

// Store appends and queries archived log entries.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	ownsDB bool
}

// LogRow is one archived entry as stored.
type LogRow struct {
	ID         int64  `json:"id"`
	RingID     int64  `json:"ring_id"`
	TS         int64  `json:"ts"`
	Kind       string `json:"type"`
	Action     string `json:"action,omitempty"`
	Text       string `json:"text"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// NewStore opens the SQLite archive at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("agent log path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path, ownsDB: true}, nil
}

// UseExternalDB reuses a connection initialized elsewhere (for example the
// Gorm store's), keeping a single SQLite connection pool per file.
func (s *Store) UseExternalDB(db *sql.DB) error {
	if s == nil {
		return fmt.Errorf("agent log store not initialized")
	}
	if db == nil {
		return fmt.Errorf("external db cannot be nil")
	}
	if err := ensureSchema(db); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownsDB && s.db != nil && s.db != db {
		_ = s.db.Close()
	}
	s.db = db
	s.ownsDB = false
	return nil
}

// Close closes the underlying DB if this store owns it.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	if !s.ownsDB {
		s.db = nil
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS agent_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ring_id INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			kind TEXT NOT NULL,
			action TEXT,
			text TEXT NOT NULL,
			duration_ms INTEGER,
			created_at INTEGER NOT NULL
		);
		`,
		`CREATE INDEX IF NOT EXISTS idx_agent_logs_ts ON agent_logs(ts);`,
		`CREATE INDEX IF NOT EXISTS idx_agent_logs_kind_ts ON agent_logs(kind, ts DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_agent_logs_action ON agent_logs(action);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Append archives one entry.
func (s *Store) Append(ctx context.Context, e engine.LogEntry) error {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return fmt.Errorf("agent log store closed")
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO agent_logs (ring_id, ts, kind, action, text, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UnixMilli(), string(e.Kind), string(e.Action), e.Text, e.DurationMs, time.Now().Unix())
	return err
}

// Recent returns up to limit of the newest archived entries, oldest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]LogRow, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return nil, fmt.Errorf("agent log store closed")
	}
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, ring_id, ts, kind, action, text, duration_ms
		 FROM agent_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LogRow
	for rows.Next() {
		var r LogRow
		var action sql.NullString
		var dur sql.NullInt64
		if err := rows.Scan(&r.ID, &r.RingID, &r.TS, &r.Kind, &action, &r.Text, &dur); err != nil {
			return nil, err
		}
		r.Action = action.String
		r.DurationMs = dur.Int64
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// CountByKind returns how many archived entries carry the given kind.
func (s *Store) CountByKind(ctx context.Context, kind agent.LogKind) (int64, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return 0, fmt.Errorf("agent log store closed")
	}
	var n int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agent_logs WHERE kind = ?`, string(kind)).Scan(&n)
	return n, err
}
