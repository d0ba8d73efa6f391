// Package sqlite provides a SQLite-backed implementation of the
// storage.DocumentStore interface. It doubles as the embedded backend
// for single-machine use and as the fixture store in tests.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/fundwise/fundwise/internal/auth"
	"github.com/fundwise/fundwise/internal/storage"
)

// Ensure Store satisfies both consumer-facing contracts.
var (
	_ storage.DocumentStore = (*Store)(nil)
	_ auth.UserStore        = (*Store)(nil)
)

// Store implements storage.DocumentStore using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a Store at the given database path. It creates the parent
// directories and runs migrations automatically.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
