// Package audit keeps a persistent log of dispatched command lines in a
// SQLite database.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultMaxEntries bounds the log when Open is given no limit.
const DefaultMaxEntries = 10000

const schema = `
CREATE TABLE IF NOT EXISTS commands (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	at         TEXT    NOT NULL,
	session_id TEXT    NOT NULL,
	remote     TEXT    NOT NULL,
	command    TEXT    NOT NULL,
	params     TEXT    NOT NULL,
	ok         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_commands_at ON commands(at);
`

// Entry is one dispatched command line.
type Entry struct {
	Time    time.Time
	Session string
	Remote  string
	Command string
	Params  []string
	OK      bool
}

// Store is a SQLite-backed command log. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	max int
	mu  sync.Mutex
}

// Open opens or creates the log at path, keeping at most maxEntries
// rows (DefaultMaxEntries when <= 0). Use ":memory:" for a throwaway
// log.
func Open(path string, maxEntries int) (*Store, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping audit log: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init audit schema: %w", err)
	}
	return &Store{db: db, max: maxEntries}, nil
}

// Record appends e and prunes the oldest rows beyond the limit.
func (s *Store) Record(ctx context.Context, e Entry) error {
	params, err := json.Marshal(e.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	if e.Params == nil {
		params = []byte("[]")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO commands (at, session_id, remote, command, params, ok) VALUES (?, ?, ?, ?, ?, ?)`,
		e.Time.UTC().Format(time.RFC3339Nano), e.Session, e.Remote, e.Command, string(params), e.OK,
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM commands WHERE id <= (SELECT MAX(id) FROM commands) - ?`, s.max)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	return tx.Commit()
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT at, session_id, remote, command, params, ok FROM commands ORDER BY id DESC`
	var args []any
	if n > 0 {
		query += ` LIMIT ?`
		args = append(args, n)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			at     string
			params string
		)
		if err := rows.Scan(&at, &e.Session, &e.Remote, &e.Command, &params, &e.OK); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.Time, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse time %q: %w", at, err)
		}
		if err := json.Unmarshal([]byte(params), &e.Params); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM commands`).Scan(&n)
	return n, err
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
