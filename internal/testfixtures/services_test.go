package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/example/court-rotation/internal/application"
	"github.com/example/court-rotation/internal/domain"
)

func TestEngineFactoryNewEngine(t *testing.T) {
	factory := NewEngineFactory(WithIDGenerator(NewIDGenerator("player")))
	set := factory.NewEngine(EngineDeps{})

	ctx := context.Background()
	player, err := set.Engine.AddPlayer(ctx, "ana")
	if err != nil {
		t.Fatalf("AddPlayer returned error: %v", err)
	}
	if player.ID != "player-1" {
		t.Fatalf("expected generated ID player-1, got %q", player.ID)
	}
	if got := len(set.Engine.Courts(ctx)); got != 2 {
		t.Fatalf("expected two default courts, got %d", got)
	}

	state, err := set.Store.Load(ctx)
	if err != nil {
		t.Fatalf("expected stored state, got %v", err)
	}
	if len(state.Players) != 1 {
		t.Fatalf("expected the new player to be persisted, got %+v", state.Players)
	}
}

func TestEngineFactoryUsesClock(t *testing.T) {
	clock := NewClock(time.Time{})
	factory := NewEngineFactory(WithClock(clock))
	set := factory.NewEngine(EngineDeps{})
	ctx := context.Background()

	if _, err := set.Engine.ImportPlayers(ctx, "ana\nben\ncara\ndan"); err != nil {
		t.Fatalf("ImportPlayers returned error: %v", err)
	}
	if _, err := set.Engine.HandleMagicQueue(ctx, "court-1"); err != nil {
		t.Fatalf("HandleMagicQueue returned error: %v", err)
	}
	clock.AdvanceMinutes(20)
	record, err := set.Engine.CompleteGame(ctx, "court-1")
	if err != nil {
		t.Fatalf("CompleteGame returned error: %v", err)
	}
	if !record.Timestamp.Equal(ReferenceTime().Add(20 * time.Minute)) {
		t.Fatalf("expected record at clock time, got %v", record.Timestamp)
	}
}

func TestSQLiteHarnessRestoresEngine(t *testing.T) {
	harness := NewSQLiteHarness(t)
	ctx := context.Background()

	if err := harness.Snapshots.SaveSnapshot(ctx, NewSnapshot()); err != nil {
		t.Fatalf("SaveSnapshot returned error: %v", err)
	}

	set := NewEngineFactory().NewEngine(EngineDeps{Store: application.NewSnapshotStore(harness.Snapshots)})
	if err := set.Engine.Restore(ctx); err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}

	court, err := set.Engine.Court(ctx, "court-1")
	if err != nil {
		t.Fatalf("Court returned error: %v", err)
	}
	if court.Status != domain.CourtInProgress {
		t.Fatalf("expected running court, got %v", court.Status)
	}
	if diff := cmp.Diff([]string{"p1", "p2", "p3", "p4"}, court.Players); diff != "" {
		t.Fatalf("unexpected court players (-want +got):\n%s", diff)
	}

	player, err := set.Engine.Player(ctx, "p5")
	if err != nil {
		t.Fatalf("Player returned error: %v", err)
	}
	if player.Status != domain.StatusResting || player.Attached() {
		t.Fatalf("expected unattached resting player, got %+v", player)
	}
	if got := len(set.Engine.History(ctx)); got != 1 {
		t.Fatalf("expected one game in history, got %d", got)
	}
}

func TestFixtures(t *testing.T) {
	clock := NewClock(time.Time{})
	players := NewRoster(4, WithSkill(12), WithGames(2, clock.Ago(15*time.Minute)))
	for _, p := range players {
		if p.SkillLevel != domain.MaxSkillLevel || p.Status != domain.StatusResting || p.GamesPlayed != 2 {
			t.Fatalf("unexpected fixture %+v", p)
		}
	}
	if ids := PlayerIDs(players); ids[0] == ids[1] {
		t.Fatalf("expected unique ids, got %v", ids)
	}

	court := NewCourtInProgress("court-1", players, clock.Now())
	if court.Status != domain.CourtInProgress || len(court.Players) != 4 {
		t.Fatalf("expected a running court, got %+v", court)
	}

	queued := NewPlayer(OnCourt("court-1", domain.StatusQueued), WithPlayerID("q1"))
	if queued.ID != "q1" || !queued.Attached() {
		t.Fatalf("expected attached queued player, got %+v", queued)
	}
}
