package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mohamedkhairy/session-range-stats/pkg/logger"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS orb_records (
		symbol          TEXT    NOT NULL,
		session         TEXT    NOT NULL,
		opening_minutes INTEGER NOT NULL,
		date            TEXT    NOT NULL,
		record          TEXT    NOT NULL,
		updated_at      DATETIME NOT NULL,
		PRIMARY KEY (symbol, session, opening_minutes, date)
	);
`

// SQLiteStore implements TableStorage on a local SQLite file
type SQLiteStore struct {
	*tableStore
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the database file and its schema
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between concurrent saves
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Info("Opened SQLite table store", logger.String("path", path))
	return &SQLiteStore{
		tableStore: &tableStore{db: db, dialect: sqliteDialect, retry: RetryConfig{MaxRetries: 1}, now: time.Now},
		db:         db,
		path:       path,
	}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
