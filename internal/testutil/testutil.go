// Package testutil sets up throwaway stores and document roots for tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starford/recruitflow/internal/storage"
	"github.com/starford/recruitflow/internal/store"
)

// TestDB opens a migrated SQLite store in a per-test directory. The WAL and
// shared-memory files live next to it and go away with the directory.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recruitflow.db")

	db, err := store.Open(context.Background(), store.DriverSQLite, path)
	require.NoError(t, err, "open test store")
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestDocuments returns a fresh document root and the provider over it.
func TestDocuments(t *testing.T) (string, *storage.FS) {
	t.Helper()
	docs, err := storage.NewFS(filepath.Join(t.TempDir(), "documents"))
	require.NoError(t, err, "create document root")
	return docs.Root(), docs
}
