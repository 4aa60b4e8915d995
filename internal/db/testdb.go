package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// NewTestDB opens a fresh in-memory database with the schema applied.
// It holds a single connection, so transactions never overlap.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return openTestDB(t, ":memory:")
}

// NewTestFileDB opens a fresh database file in a temporary directory. Unlike
// NewTestDB it has a full connection pool, for tests that exercise
// concurrent transactions.
func NewTestFileDB(t *testing.T) *sql.DB {
	t.Helper()
	return openTestDB(t, filepath.Join(t.TempDir(), "zaloga.sqlite3"))
}

func openTestDB(t *testing.T, path string) *sql.DB {
	t.Helper()

	database, err := Open(path)
	if err != nil {
		t.Fatalf("opening test database %s: %v", path, err)
	}
	t.Cleanup(func() { database.Close() })

	if err := EnsureSchema(database); err != nil {
		t.Fatalf("applying schema to test database: %v", err)
	}
	return database
}
