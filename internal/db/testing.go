package db

import (
	"path/filepath"
	"testing"

	"github.com/vibegraph/vibegraph/internal/db/driver"
)

// OpenTest opens a throwaway SQLite store for tests.
func OpenTest(t *testing.T) *Store {
	t.Helper()

	store, err := Open(driver.Config{
		Dialect: driver.DialectSQLite,
		DSN:     filepath.Join(t.TempDir(), "vibegraph.db"),
	}, nil)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
