// Package store persists the sync engine's state (devices, preferences,
// offline queue, pending conflicts, backup metadata) in SQLite. All state
// is keyed by user id, and mutual exclusion is per user so operations for
// different users never contend.
package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Store wraps the engine database connection.
type Store struct {
	conn *sql.DB
	path string

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// Open opens the engine database and runs any pending migrations.
// If the database file does not exist, it is created and initialized.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")
	conn.Exec("PRAGMA foreign_keys=ON")

	if _, err := conn.Exec(engineSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{conn: conn, path: dbPath, users: make(map[string]*sync.Mutex)}

	if _, err := s.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return s, nil
}

// Ping checks the database connection is alive.
func (s *Store) Ping() error {
	return s.conn.Ping()
}

// Close checkpoints the WAL and closes the database connection.
func (s *Store) Close() error {
	s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.conn.Close()
}

// RunMigrations runs any pending database migrations.
func (s *Store) RunMigrations() (int, error) {
	if _, err := s.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_info (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return 0, fmt.Errorf("create schema_info: %w", err)
	}

	currentVersion := s.getSchemaVersion()
	if currentVersion >= EngineSchemaVersion {
		return 0, nil
	}

	migrationsRun := 0
	for _, m := range Migrations {
		if m.Version > currentVersion {
			if _, err := s.conn.Exec(m.SQL); err != nil {
				return migrationsRun, fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
			}
			if err := s.setSchemaVersion(m.Version); err != nil {
				return migrationsRun, fmt.Errorf("set version %d: %w", m.Version, err)
			}
			migrationsRun++
		}
	}

	if currentVersion == 0 {
		if err := s.setSchemaVersion(EngineSchemaVersion); err != nil {
			return migrationsRun, fmt.Errorf("set current version: %w", err)
		}
	}

	return migrationsRun, nil
}

func (s *Store) getSchemaVersion() int {
	var v int
	err := s.conn.QueryRow(`SELECT CAST(value AS INTEGER) FROM schema_info WHERE key = 'version'`).Scan(&v)
	if err != nil {
		return 0
	}
	return v
}

func (s *Store) setSchemaVersion(v int) error {
	_, err := s.conn.Exec(
		`INSERT INTO schema_info (key, value) VALUES ('version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, v)
	return err
}

// UserLock returns the mutex guarding one user's state. Sessions, queue
// drains and backups for the same user serialize on it; different users
// never share a lock.
func (s *Store) UserLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.users[userID]
	if !ok {
		m = &sync.Mutex{}
		s.users[userID] = m
	}
	return m
}

// WithUserLock runs fn while holding the user's lock.
func (s *Store) WithUserLock(userID string, fn func() error) error {
	m := s.UserLock(userID)
	m.Lock()
	defer m.Unlock()
	return fn()
}

// GenerateID creates a prefixed ID with 8 random hex chars.
func GenerateID(prefix string) (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return prefix + hex.EncodeToString(b), nil
}
