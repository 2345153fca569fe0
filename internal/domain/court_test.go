package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func fullCourt(t *testing.T, id string) Court {
	t.Helper()
	court := NewCourt(id)
	for i := 0; i < CourtCapacity; i++ {
		if err := court.AddPlayer(fmt.Sprintf("p%d", i)); err != nil {
			t.Fatalf("AddPlayer returned error: %v", err)
		}
	}
	return court
}

func TestCourt_AddPlayer(t *testing.T) {
	t.Run("status follows the number of players", func(t *testing.T) {
		court := NewCourt("court-1")
		if court.Status != CourtEmpty {
			t.Fatalf("expected empty court, got %s", court.Status)
		}
		for i := 1; i <= CourtCapacity; i++ {
			if err := court.AddPlayer(fmt.Sprintf("p%d", i)); err != nil {
				t.Fatalf("AddPlayer returned error: %v", err)
			}
			want := CourtFilling
			if i == CourtCapacity {
				want = CourtReady
			}
			if court.Status != want {
				t.Fatalf("after %d players expected %s, got %s", i, want, court.Status)
			}
		}
	})

	t.Run("rejects a fifth player without mutating", func(t *testing.T) {
		court := fullCourt(t, "court-1")
		err := court.AddPlayer("p5")

		var capErr *CapacityError
		if !errors.As(err, &capErr) {
			t.Fatalf("expected CapacityError, got %v", err)
		}
		if !errors.Is(err, ErrCapacity) {
			t.Fatalf("expected error to match ErrCapacity")
		}
		if len(court.Players) != CourtCapacity {
			t.Fatalf("expected players to stay at %d, got %d", CourtCapacity, len(court.Players))
		}
	})
}

func TestCourt_StartAndComplete(t *testing.T) {
	now := time.Date(2024, time.May, 1, 19, 0, 0, 0, time.UTC)

	t.Run("start requires four players", func(t *testing.T) {
		court := NewCourt("court-1")
		_ = court.AddPlayer("p1")
		if err := court.Start(now); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("complete without queue empties the court", func(t *testing.T) {
		court := fullCourt(t, "court-1")
		if err := court.Start(now); err != nil {
			t.Fatalf("Start returned error: %v", err)
		}
		if elapsed, ok := court.ElapsedTime(now.Add(90 * time.Second)); !ok || elapsed != 90*time.Second {
			t.Fatalf("unexpected elapsed time %s (%v)", elapsed, ok)
		}

		finished, drained, err := court.Complete()
		if err != nil {
			t.Fatalf("Complete returned error: %v", err)
		}
		if len(finished) != CourtCapacity || len(drained) != 0 {
			t.Fatalf("unexpected finished=%v drained=%v", finished, drained)
		}
		if court.Status != CourtEmpty || len(court.Players) != 0 || court.StartTime != nil {
			t.Fatalf("expected cleared court, got %+v", court)
		}
	})

	t.Run("complete drains one group and ignores a partial tail", func(t *testing.T) {
		court := fullCourt(t, "court-1")
		court.Enqueue("q1", "q2", "q3", "q4", "q5")
		_ = court.Start(now)

		_, drained, err := court.Complete()
		if err != nil {
			t.Fatalf("Complete returned error: %v", err)
		}
		if fmt.Sprint(drained) != "[q1 q2 q3 q4]" {
			t.Fatalf("unexpected drained players %v", drained)
		}
		if court.Status != CourtReady || !court.StartedFromQueue {
			t.Fatalf("expected ready court seeded from queue, got %+v", court)
		}
		if fmt.Sprint(court.Queue) != "[q5]" {
			t.Fatalf("expected remaining queue [q5], got %v", court.Queue)
		}
		if len(court.QueueGroups()) != 0 {
			t.Fatalf("partial tail must not form a queue group")
		}
	})

	t.Run("complete requires a running game", func(t *testing.T) {
		court := fullCourt(t, "court-1")
		if _, _, err := court.Complete(); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})
}

func TestCourt_Queue(t *testing.T) {
	court := NewCourt("court-2")
	court.Enqueue("a", "b", "c", "d", "e", "f", "g", "h")

	if got := court.QueuePosition("f"); got != 2 {
		t.Fatalf("expected f in group 2, got %d", got)
	}
	if got := court.QueuePosition("zz"); got != 0 {
		t.Fatalf("expected unknown player position 0, got %d", got)
	}

	removed, err := court.RemoveQueueGroup(0)
	if err != nil {
		t.Fatalf("RemoveQueueGroup returned error: %v", err)
	}
	if fmt.Sprint(removed) != "[a b c d]" || fmt.Sprint(court.Queue) != "[e f g h]" {
		t.Fatalf("unexpected removal %v, remaining %v", removed, court.Queue)
	}
	if _, err := court.RemoveQueueGroup(3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing group, got %v", err)
	}
}

func TestCourt_Normalize(t *testing.T) {
	court := Court{ID: "court-3", Status: CourtInProgress, Players: []string{"a", "b"}}
	court.Normalize()
	if court.Status != CourtFilling {
		t.Fatalf("expected filling status, got %s", court.Status)
	}

	start := time.Now()
	running := Court{ID: "court-4", Status: CourtInProgress, Players: []string{"a", "b", "c", "d"}, StartTime: &start}
	running.Normalize()
	if running.Status != CourtInProgress || running.StartTime == nil {
		t.Fatalf("expected running court untouched, got %+v", running)
	}
}
