package vault

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/StevenGann/ObsidianDB/internal/storage"
)

// Shared helpers for the package tests. testutil cannot be used here because
// it imports this package.

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestVault(t *testing.T) (string, *Vault) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir, ".md")
	if err != nil {
		t.Fatal(err)
	}
	return dir, New(store, testLogger(), nil)
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
