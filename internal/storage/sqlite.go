package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SQLiteStore keeps blobs in a single-table SQLite database. Preferred over
// the JSON-file backend for rosters shared between several local processes:
// WAL mode gives concurrent readers without torn blobs.
type SQLiteStore struct {
	conn      *sql.DB
	namespace string
}

// OpenSQLite opens (creating if needed) the database at path and scopes all
// keys to namespace. The caller must Close the store when done.
func OpenSQLite(path, namespace string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL for concurrent reads; busy timeout so a second process blocks
	// briefly instead of failing.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS blobs (
		namespace TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (datetime('now')),
		PRIMARY KEY (namespace, key)
	);`
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{conn: conn, namespace: namespace}, nil
}

// Put implements Store.
func (s *SQLiteStore) Put(key string, data []byte) error {
	_, err := s.conn.Exec(`
		INSERT INTO blobs (namespace, key, value, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		s.namespace, key, data)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(key string) ([]byte, bool, error) {
	var data []byte
	err := s.conn.QueryRow(
		`SELECT value FROM blobs WHERE namespace = ? AND key = ?`,
		s.namespace, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, true, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.conn.Exec(
		`DELETE FROM blobs WHERE namespace = ? AND key = ?`,
		s.namespace, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close checkpoints the WAL and closes the connection.
func (s *SQLiteStore) Close() error {
	if s.conn == nil {
		return nil
	}
	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.conn = nil
	return nil
}
