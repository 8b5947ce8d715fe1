// Package history persists executed queries to a local SQLite database so
// the shell can recall them across sessions.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

const schema = `
CREATE TABLE IF NOT EXISTS queries (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	result     TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	err        TEXT NOT NULL DEFAULT '',
	elapsed_ms INTEGER NOT NULL,
	ran_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_queries_ran_at ON queries(ran_at DESC);
`

// Entry is one recorded query execution.
type Entry struct {
	ID         string
	Source     string
	ResultType string
	RowCount   uint64
	Err        string
	Elapsed    time.Duration
	RanAt      time.Time
}

// Store records query executions in a SQLite file.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record persists one execution. A zero ID gets a fresh UUID; a zero RanAt
// gets the current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.RanAt.IsZero() {
		e.RanAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO queries (id, source, result, row_count, err, elapsed_ms, ran_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Source, e.ResultType, int64(e.RowCount), e.Err,
		e.Elapsed.Milliseconds(), e.RanAt)
	if err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, result, row_count, err, elapsed_ms, ran_at
		 FROM queries ORDER BY ran_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		var rowCount, elapsedMS int64
		if err := rows.Scan(&e.ID, &e.Source, &e.ResultType, &rowCount,
			&e.Err, &elapsedMS, &e.RanAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.RowCount = uint64(rowCount)
		e.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Sources returns up to limit distinct query texts, newest first, for
// shell history navigation.
func (s *Store) Sources(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, MAX(ran_at) AS last
		 FROM queries GROUP BY source ORDER BY last DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var src, last string
		if err := rows.Scan(&src, &last); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
