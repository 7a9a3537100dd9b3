// Package store persists workspace state in a local SQLite database: the
// loaded spec and its source, independently versioned state entries, per
// endpoint test data and the execution history.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	DBFile = "speclens.db"

	secureFileMode = 0600
	secureDirMode  = 0700
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

// OpenDir opens (creating if needed) the database inside dataDir.
func OpenDir(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, secureDirMode); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return Open(filepath.Join(dataDir, DBFile))
}

func Open(path string) (*Store, error) {
	if err := ensureSecureFile(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// a single connection serializes writers and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ensureSecureFile creates the file owner-only, or tightens the mode of an
// existing one.
func ensureSecureFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, secureFileMode)
		if err != nil {
			return fmt.Errorf("creating database file: %w", err)
		}
		return f.Close()
	}
	if err != nil {
		return fmt.Errorf("stat database file: %w", err)
	}
	if info.Mode().Perm() != secureFileMode {
		if err := os.Chmod(path, secureFileMode); err != nil {
			return fmt.Errorf("setting database file permissions: %w", err)
		}
	}
	return nil
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS specs (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		source_id TEXT NOT NULL,
		source_type TEXT NOT NULL,
		name TEXT NOT NULL,
		etag TEXT DEFAULT '',
		last_modified TEXT DEFAULT '',
		loaded_at INTEGER NOT NULL,
		refreshed_at INTEGER,
		data BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS state (
		key TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS test_data (
		source_id TEXT NOT NULL,
		endpoint_key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (source_id, endpoint_key)
	);

	CREATE TABLE IF NOT EXISTS history (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT UNIQUE NOT NULL,
		timestamp INTEGER NOT NULL,
		method TEXT NOT NULL,
		url TEXT NOT NULL,
		request TEXT NOT NULL,
		response TEXT,
		error TEXT,
		duration_ms INTEGER
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}
