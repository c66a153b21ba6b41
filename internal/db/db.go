package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// TimeLayout is the canonical format for every timestamp column. All values
// are UTC; the fixed width keeps string comparison against stored values
// consistent with chronological order.
const TimeLayout = time.RFC3339

// Open opens (creating if necessary) the SQLite database at path. WAL mode is
// enabled for read concurrency; foreign keys and a busy timeout are set so
// cascades work and concurrent writers back off instead of failing.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := database.Exec(pragma); err != nil {
			database.Close()
			return nil, fmt.Errorf("pragma %s: %w", pragma, err)
		}
	}

	if err := database.Ping(); err != nil {
		database.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return database, nil
}

// OpenMemory opens a private in-memory database limited to a single
// connection, so every statement sees the same store. Used by tests.
func OpenMemory() (*sql.DB, error) {
	database, err := Open(":memory:")
	if err != nil {
		return nil, err
	}
	database.SetMaxOpenConns(1)
	return database, nil
}

// FormatTime renders t for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime reads a stored timestamp back. Zero time on empty input.
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(TimeLayout, value)
}

// ParseNullTime converts a nullable timestamp column.
func ParseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := time.Parse(TimeLayout, value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
