// Package sqlite provides the SQLite connection pool and embedded migrations for GenHub.
// Uses modernc.org/sqlite, a pure-Go driver, so the desktop build needs no CGO toolchain.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// MemoryPath opens a private in-memory database. Used by tests.
const MemoryPath = ":memory:"

// NewDB opens (or creates) the chat database at path:
//   - WAL journal mode so the message list can be read while a turn is writing
//   - foreign keys ON (message_blocks cascade with their message)
//   - 5s busy timeout; concurrent turns queue on the writer lock instead of failing with SQLITE_BUSY
//
// The parent directory is created when missing.
func NewDB(path string) (*sql.DB, error) {
	if path != MemoryPath {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("sqlite.NewDB: create parent directory %q: %w", dir, err)
		}
	}

	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(ON)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=temp_store(MEMORY)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite.NewDB: open %q: %w", path, err)
	}

	// Every storage call acquires and releases its own connection; writers are serialized by SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	if path == MemoryPath {
		// :memory: databases are per-connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.NewDB: ping %q: %w", path, err)
	}

	return db, nil
}

// IsUniqueViolation reports whether err is a PRIMARY KEY or UNIQUE constraint failure.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlitedrv.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
