package persistence_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/example/court-rotation/internal/persistence"
	"github.com/example/court-rotation/internal/persistence/jsonfile"
	"github.com/example/court-rotation/internal/persistence/memory"
	"github.com/example/court-rotation/internal/persistence/sqlite"
	"github.com/example/court-rotation/internal/persistence/sqlite/migration"
)

type backend struct {
	name string
	open func(t *testing.T) persistence.SnapshotRepository
}

func backends() []backend {
	return []backend{
		{name: "memory", open: func(t *testing.T) persistence.SnapshotRepository {
			return memory.Open()
		}},
		{name: "jsonfile", open: func(t *testing.T) persistence.SnapshotRepository {
			store, err := jsonfile.Open(filepath.Join(t.TempDir(), "rotation.json"))
			if err != nil {
				t.Fatalf("failed to open json store: %v", err)
			}
			return store
		}},
		{name: "sqlite", open: func(t *testing.T) persistence.SnapshotRepository {
			store, err := sqlite.Open(context.Background(), migration.TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "rotation.db")), nil)
			if err != nil {
				t.Fatalf("failed to open sqlite store: %v", err)
			}
			t.Cleanup(func() { _ = store.Close() })
			return store
		}},
	}
}

func snapshotFixture() persistence.Snapshot {
	started := time.Date(2024, 5, 1, 19, 0, 0, 0, time.UTC)
	return persistence.Snapshot{
		Players: []persistence.PlayerRecord{
			{ID: "p1", Name: "Alice", Status: "waiting", CourtID: "court-1", GamesPlayed: 1, LastGameTime: &started, SkillLevel: 4},
			{ID: "p2", Name: "Bob", Status: "nogames", SkillLevel: 1},
		},
		Courts: map[string]persistence.CourtRecord{
			"court-1": {ID: "court-1", Status: "active", Players: []string{"p1"}, Queue: []string{}},
		},
		GameHistory: []persistence.GameRecord{
			{ID: "g1", Timestamp: started, CourtID: "court-1", TeamA: []string{"p1", "p2"}, TeamB: []string{"p3", "p4"}},
		},
	}
}

func TestSnapshotRepositoryContract(t *testing.T) {
	t.Parallel()

	for _, b := range backends() {
		b := b
		t.Run(b.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			repo := b.open(t)

			if _, err := repo.LoadSnapshot(ctx); !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected ErrNotFound before first save, got %v", err)
			}

			want := snapshotFixture()
			if err := repo.SaveSnapshot(ctx, want); err != nil {
				t.Fatalf("SaveSnapshot failed: %v", err)
			}

			// Mutating the caller's copy must not leak into the store.
			want.Players[0].Name = "Mallory"
			want.Courts["court-1"].Players[0] = "p9"

			got, err := repo.LoadSnapshot(ctx)
			if err != nil {
				t.Fatalf("LoadSnapshot failed: %v", err)
			}
			if diff := cmp.Diff(snapshotFixture(), got); diff != "" {
				t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
			}

			if err := repo.DeleteSnapshot(ctx); err != nil {
				t.Fatalf("DeleteSnapshot failed: %v", err)
			}
			if _, err := repo.LoadSnapshot(ctx); !errors.Is(err, persistence.ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestSnapshotClone(t *testing.T) {
	t.Parallel()

	original := snapshotFixture()
	clone := original.Clone()
	*clone.Players[0].LastGameTime = clone.Players[0].LastGameTime.Add(time.Hour)
	clone.GameHistory[0].TeamA[0] = "p9"

	if diff := cmp.Diff(snapshotFixture(), original); diff != "" {
		t.Fatalf("clone shares memory with the original (-want +got):\n%s", diff)
	}
	if !(persistence.Snapshot{}).Empty() || original.Empty() {
		t.Fatal("unexpected Empty result")
	}
}
