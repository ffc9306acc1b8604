// Package state provides SQLite-based persistence for banana-slides
// projects and their slides. The on-disk state is always a valid
// checkpoint the orchestrator can rebuild a task graph from.
package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound indicates the requested project does not exist.
var ErrNotFound = errors.New("project not found")

// StoreError wraps a persistence failure. Store errors are fatal to the
// current run; the run aborts without touching slide statuses so a later
// resume starts from the last committed checkpoint.
type StoreError struct {
	// Op describes the store operation that failed.
	Op string
	// Err is the underlying database error.
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error in %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsStoreError reports whether err is a persistence failure.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// DB wraps an SQLite database connection with project-store operations.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultDBPath returns the path to the banana-slides database.
func DefaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "banana-slides", "projects.db")
}

// Open opens an SQLite database at the given path, creating parent
// directories if needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Projects},
		{2, migrationV2Slides},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Projects = `
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	prompt TEXT NOT NULL,
	language TEXT NOT NULL DEFAULT 'auto',
	requested_pages INTEGER NOT NULL DEFAULT 0,
	template_ref TEXT,
	status TEXT NOT NULL DEFAULT 'planning',
	failed_slides INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
CREATE INDEX IF NOT EXISTS idx_projects_created_at ON projects(created_at);
`

const migrationV2Slides = `
CREATE TABLE IF NOT EXISTS slides (
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	slide_index INTEGER NOT NULL,
	title TEXT NOT NULL,
	intent TEXT NOT NULL DEFAULT '',
	content TEXT,
	image_path TEXT,
	review_count INTEGER NOT NULL DEFAULT 0,
	feedback TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	last_error TEXT,
	PRIMARY KEY (project_id, slide_index)
);

CREATE INDEX IF NOT EXISTS idx_slides_status ON slides(status);
`

// Exec executes a query that doesn't return rows.
func (db *DB) Exec(query string, args ...any) (sql.Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Exec(query, args...)
}

// Query executes a query that returns rows.
func (db *DB) Query(query string, args ...any) (*sql.Rows, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn.Query(query, args...)
}

// QueryRow executes a query that returns at most one row.
func (db *DB) QueryRow(query string, args ...any) *sql.Row {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn.QueryRow(query, args...)
}

// Transaction runs the given function within a transaction.
func (db *DB) Transaction(fn func(tx *sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
