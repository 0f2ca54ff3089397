// Package testutil provides shared test helpers for setting up board stores and databases.
package testutil

import (
	"os"
	"testing"

	"github.com/erland/pwa-whiteboard-sub000/internal/index"
	"github.com/erland/pwa-whiteboard-sub000/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "whiteboard-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestBoards creates a temporary board directory backed by storage.FS.
func TestBoards(t *testing.T, opts ...storage.FSOption) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}
