// Package testutil provides shared test helpers for setting up ledgers and databases.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/starford/nspace/internal/checksum"
	"github.com/starford/nspace/internal/ledger"
	"github.com/starford/nspace/internal/records"
	"github.com/starford/nspace/internal/storage"
)

// TestDB creates a temporary SQLite record store that is automatically cleaned up.
func TestDB(t *testing.T) *records.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "nspace-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := records.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLedger creates a temporary ledger directory with a storage.Provider.
func TestLedger(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Seed parses a YAML ledger document and imports it into db as path.
func Seed(t *testing.T, db *records.DB, path, doc string) {
	t.Helper()
	b, err := ledger.Parse(path, []byte(doc))
	if err != nil {
		t.Fatalf("seed %s: %v", path, err)
	}
	if err := db.ReplaceSource(context.Background(), path, checksum.Sum([]byte(doc)), b); err != nil {
		t.Fatalf("seed %s: %v", path, err)
	}
}
