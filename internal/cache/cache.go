// Package cache memoizes per-file analysis results across scans, keyed by
// relative path and content hash, via SQLite (spec §4.12). A cache miss
// degrades to full analysis — the cache is never a correctness dependency.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store persists one JSON payload per (relative path, content hash) pair.
type Store struct {
	db *sql.DB
}

// Open creates or opens the SQLite cache file at path, initializing its
// schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	store := &Store{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) init() error {
	schema := `
		CREATE TABLE IF NOT EXISTS file_cache (
			path         TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			payload      TEXT NOT NULL,
			PRIMARY KEY (path, content_hash)
		);
		CREATE INDEX IF NOT EXISTS idx_file_cache_path ON file_cache(path);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create cache schema: %w", err)
	}
	return nil
}

// Hash returns the content hash used as the cache key's second component.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached payload for (path, hash), and whether it was
// found. A missing entry is reported as ("", false, nil); any other lookup
// failure is returned as an error.
func (s *Store) Get(path, hash string) (string, bool, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM file_cache WHERE path = ? AND content_hash = ?`, path, hash).Scan(&payload)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache lookup failed: %w", err)
	}
	return payload, true, nil
}

// Put stores payload for (path, hash), replacing any prior entry for path
// under a different hash (the file changed, so its stale entries are
// pruned).
func (s *Store) Put(path, hash, payload string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM file_cache WHERE path = ? AND content_hash != ?`, path, hash); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("cache prune failed: %w", err)
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO file_cache (path, content_hash, payload) VALUES (?, ?, ?)`, path, hash, payload); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("cache write failed: %w", err)
	}
	return tx.Commit()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
