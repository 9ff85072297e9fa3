package sqlite_test

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matiasleandrokruk/genhub/internal/infra/sqlite"
)

func TestNewDB_Pragmas(t *testing.T) {
	t.Parallel()

	db := mustOpenDB(t)

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode scan error = %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q; want %q", mode, "wal")
	}

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("PRAGMA foreign_keys scan error = %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d; want 1", fk)
	}

	var timeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("PRAGMA busy_timeout scan error = %v", err)
	}
	if timeout < 5000 {
		t.Errorf("busy_timeout = %d; want >= 5000", timeout)
	}
}

func TestNewDB_InMemory(t *testing.T) {
	t.Parallel()

	db, err := sqlite.NewDB(sqlite.MemoryPath)
	if err != nil {
		t.Fatalf("NewDB(:memory:) error = %v", err)
	}
	defer db.Close()

	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("MaxOpenConnections = %d; want 1 for :memory:", got)
	}
}

func TestNewDB_CreatesParentDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "genhub", "chats.db")

	db, err := sqlite.NewDB(path)
	if err != nil {
		t.Fatalf("NewDB(%q) error = %v", path, err)
	}
	defer db.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected DB file %q to exist: %v", path, err)
	}
}

func TestNewDB_ParentIsFile(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	db, err := sqlite.NewDB(filepath.Join(blocker, "chats.db"))
	if err == nil {
		db.Close()
		t.Fatal("NewDB under a regular file = nil error; want error")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	db := mustOpenDBWithMigrations(t)

	insert := func() error {
		_, err := db.Exec(`INSERT INTO providers (provider_name, display_name) VALUES ('dup', 'Dup')`)
		return err
	}
	if err := insert(); err != nil {
		t.Fatalf("first insert error = %v", err)
	}
	err := insert()
	if err == nil {
		t.Fatal("second insert = nil error; want unique violation")
	}
	if !sqlite.IsUniqueViolation(err) {
		t.Errorf("IsUniqueViolation(%v) = false; want true", err)
	}

	if sqlite.IsUniqueViolation(nil) {
		t.Error("IsUniqueViolation(nil) = true")
	}
	if sqlite.IsUniqueViolation(errors.New("disk I/O error")) {
		t.Error("IsUniqueViolation(other) = true")
	}
}

// --- helpers ---

func mustOpenDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("sqlite.NewDB error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
