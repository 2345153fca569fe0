package testfixtures

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/court-rotation/internal/persistence"
	"github.com/example/court-rotation/internal/persistence/sqlite"
	"github.com/example/court-rotation/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides snapshot storage backed by a temporary SQLite file
// for integration-style tests.
type SQLiteHarness struct {
	Snapshots persistence.SnapshotRepository
	Store     *sqlite.Store
	Path      string

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a store in a temporary directory. The
// store is closed automatically when tb finishes.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "rotation.db")
	store, err := sqlite.Open(context.Background(), migration.TempFileTestSQLiteConfig(path), slog.New(slog.DiscardHandler))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	harness := &SQLiteHarness{
		Snapshots: store,
		Store:     store,
		Path:      path,
		cleanup: func() {
			_ = store.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}
