// Copyright © 2025 Waylight contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: store/store.go
// Summary: SQLite-backed persistence for window geometry and session data.

package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Geometry is a persisted window size for an application.
type Geometry struct {
	Width   float64
	Height  float64
	SavedAt time.Time
}

// Store persists per-application window geometry between sessions.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS install (
    id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS window_geometry (
    app_id   TEXT PRIMARY KEY,
    width    REAL NOT NULL,
    height   REAL NOT NULL,
    saved_at INTEGER NOT NULL
);
`

// Open opens or creates the store at the given path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=temp_store(MEMORY)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.Exec("INSERT OR IGNORE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to record schema version: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureInstallID(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureInstallID() error {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM install").Scan(&count); err != nil {
		return fmt.Errorf("failed to query install id: %w", err)
	}
	if count > 0 {
		return nil
	}
	_, err := s.db.Exec("INSERT INTO install (id) VALUES (?)", uuid.NewString())
	if err != nil {
		return fmt.Errorf("failed to write install id: %w", err)
	}
	return nil
}

// InstallID returns the stable random identifier for this installation.
func (s *Store) InstallID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id string
	err := s.db.QueryRow("SELECT id FROM install LIMIT 1").Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to read install id: %w", err)
	}
	return id, nil
}

// SaveGeometry records the last known window size for an application.
func (s *Store) SaveGeometry(appID string, width, height float64) error {
	if appID == "" || width <= 0 || height <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO window_geometry (app_id, width, height, saved_at) VALUES (?, ?, ?, ?)",
		appID, width, height, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save geometry for %q: %w", appID, err)
	}
	return nil
}

// Geometry returns the persisted window size for an application.
// The second return value reports whether a size was found.
func (s *Store) Geometry(appID string) (Geometry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var g Geometry
	var tsNano int64
	err := s.db.QueryRow(
		"SELECT width, height, saved_at FROM window_geometry WHERE app_id = ?",
		appID,
	).Scan(&g.Width, &g.Height, &tsNano)
	if err == sql.ErrNoRows {
		return Geometry{}, false, nil
	}
	if err != nil {
		return Geometry{}, false, fmt.Errorf("failed to read geometry for %q: %w", appID, err)
	}
	g.SavedAt = time.Unix(0, tsNano)
	return g, true, nil
}

// Forget removes the persisted geometry for an application.
func (s *Store) Forget(appID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM window_geometry WHERE app_id = ?", appID)
	if err != nil {
		return fmt.Errorf("failed to forget geometry for %q: %w", appID, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
