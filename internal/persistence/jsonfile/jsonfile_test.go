package jsonfile

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/example/court-rotation/internal/persistence"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "state", "rotation.json"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	store.now = func() time.Time { return time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC) }
	return store
}

func sampleSnapshot() persistence.Snapshot {
	played := time.Date(2024, 5, 1, 17, 40, 0, 0, time.UTC)
	return persistence.Snapshot{
		Players: []persistence.PlayerRecord{
			{ID: "p1", Name: "Ada", Status: "playing", CourtID: "court-1", GamesPlayed: 2, LastGameTime: &played, SkillLevel: 3},
			{ID: "p2", Name: "Grace", Status: "nogames", SkillLevel: 1},
		},
		Courts: map[string]persistence.CourtRecord{
			"court-1": {ID: "court-1", Status: "empty", Players: []string{"p1"}, Queue: []string{}},
		},
		GameHistory: []persistence.GameRecord{
			{ID: "g1", Timestamp: played, CourtID: "court-1", TeamA: []string{"p1", "p2"}, TeamB: []string{"p3", "p4"}},
		},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.LoadSnapshot(ctx); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before first save, got %v", err)
	}

	want := sampleSnapshot()
	if err := store.SaveSnapshot(ctx, want); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	got, err := store.LoadSnapshot(ctx)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}

	if err := store.DeleteSnapshot(ctx); err != nil {
		t.Fatalf("DeleteSnapshot failed: %v", err)
	}
	if _, err := store.LoadSnapshot(ctx); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteSnapshot(ctx); err != nil {
		t.Fatalf("second DeleteSnapshot should be a no-op, got %v", err)
	}
}

func TestStoreDetectsTampering(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.SaveSnapshot(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("failed to read snapshot file: %v", err)
	}
	tampered := bytes.Replace(data, []byte("Grace"), []byte("Gr4ce"), 1)
	if bytes.Equal(data, tampered) {
		t.Fatal("expected the player name inside the envelope")
	}
	if err := os.WriteFile(store.Path(), tampered, 0o644); err != nil {
		t.Fatalf("failed to rewrite snapshot file: %v", err)
	}

	if _, err := store.LoadSnapshot(ctx); !errors.Is(err, persistence.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestStoreRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := os.WriteFile(store.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to write garbage: %v", err)
	}
	if _, err := store.LoadSnapshot(ctx); !errors.Is(err, persistence.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}

	if err := os.WriteFile(store.Path(), []byte("  \n"), 0o644); err != nil {
		t.Fatalf("failed to write blank file: %v", err)
	}
	if _, err := store.LoadSnapshot(ctx); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a blank file, got %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
