// Package store persists the novel workspace in a single SQLite file:
// characters and their relationships, chapters with nested scenes, arcs,
// items, techniques, antagonists, world-bible entries, and an append-only
// analysis log where trust scores and transition verdicts are recorded for
// audit.
//
// The consistency engine itself never touches the database; callers load a
// full in-memory snapshot with Snapshot and hand that to the analysis
// packages.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default workspace location.
const DefaultDBPath = "~/.jadehall/novel.db"

// Config holds configuration for Open.
type Config struct {
	DBPath string
}

// Store is the SQLite-backed novel workspace.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens (creating if needed) the workspace database.
// Pass ":memory:" for in-memory databases (testing).
func Open(cfg Config) (*Store, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = expandPath(DefaultDBPath)
	}

	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, dbPath: cfg.DBPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Vacuum runs VACUUM on the database. Manual only.
func (s *Store) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// DBPath returns the path the store was opened with.
func (s *Store) DBPath() string { return s.dbPath }

// expandPath expands ~ to the home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
