// Package testutil provides shared test helpers for setting up vaults and
// search indexes.
package testutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/StevenGann/ObsidianDB/internal/index"
	"github.com/StevenGann/ObsidianDB/internal/storage"
	"github.com/StevenGann/ObsidianDB/internal/vault"
)

// Logger returns a quiet structured logger for tests.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestIndex creates a temporary SQLite search index that is automatically
// cleaned up.
func TestIndex(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "obsidiandb-test-*.db")
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

// TestVault creates a temporary vault directory with a registry over it.
func TestVault(t *testing.T) (string, *vault.Vault) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir, ".md")
	if err != nil {
		t.Fatal(err)
	}
	return dir, vault.New(store, Logger(), nil)
}
