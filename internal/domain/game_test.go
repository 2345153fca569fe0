package domain

import (
	"fmt"
	"testing"
	"time"
)

func TestGameLog_Append(t *testing.T) {
	base := time.Date(2024, time.June, 3, 18, 0, 0, 0, time.UTC)
	log := NewGameLog(3)
	for i := 0; i < 5; i++ {
		log.Append(GameRecord{
			ID:        fmt.Sprintf("g%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			TeamA:     []string{"a", "b"},
			TeamB:     []string{"c", "d"},
		})
	}

	records := log.Records()
	if len(records) != 3 {
		t.Fatalf("expected 3 retained records, got %d", len(records))
	}
	if records[0].ID != "g2" || records[2].ID != "g4" {
		t.Fatalf("expected oldest entries evicted, got %s..%s", records[0].ID, records[2].ID)
	}

	records[0].TeamA[0] = "mutated"
	if log.Records()[0].TeamA[0] != "a" {
		t.Fatalf("Records must return copies")
	}
}

func TestGameRecord_Partnered(t *testing.T) {
	game := GameRecord{TeamA: []string{"a", "b"}, TeamB: []string{"c", "d"}}
	if !game.Partnered("b", "a") || !game.Partnered("c", "d") {
		t.Fatalf("expected teammates to be reported as partners")
	}
	if game.Partnered("a", "c") {
		t.Fatalf("opponents are not partners")
	}
	if !game.Includes("d") || game.Includes("e") {
		t.Fatalf("unexpected Includes result")
	}
}

func TestPlayerStatus_Text(t *testing.T) {
	for status, name := range playerStatusNames {
		text, err := status.MarshalText()
		if err != nil || string(text) != name {
			t.Fatalf("MarshalText(%d) = %q, %v", status, text, err)
		}
		var parsed PlayerStatus
		if err := parsed.UnmarshalText([]byte(name)); err != nil || parsed != status {
			t.Fatalf("UnmarshalText(%q) = %v, %v", name, parsed, err)
		}
	}
	if _, err := ParsePlayerStatus("sleeping"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestSkillLevels(t *testing.T) {
	if ClampSkillLevel(0) != MinSkillLevel || ClampSkillLevel(42) != MaxSkillLevel || ClampSkillLevel(6) != 6 {
		t.Fatalf("ClampSkillLevel does not bound to [%d,%d]", MinSkillLevel, MaxSkillLevel)
	}
	if SkillLevelName(1) != "Novice" || SkillLevelName(10) != "Champion" || SkillLevelName(11) != "Unknown" {
		t.Fatalf("unexpected skill level names")
	}
}

func TestPlayer_Detach(t *testing.T) {
	fresh := NewPlayer("p1", "Ann")
	fresh.Status = StatusQueued
	fresh.CourtID = "court-1"
	fresh.Detach()
	if fresh.Status != StatusNoGames || fresh.Attached() {
		t.Fatalf("expected fresh player back to nogames, got %+v", fresh)
	}

	played := time.Now()
	veteran := Player{ID: "p2", GamesPlayed: 3, LastGameTime: &played, Status: StatusWaiting, CourtID: "court-2"}
	veteran.Detach()
	if veteran.Status != StatusResting {
		t.Fatalf("expected veteran back to resting, got %s", veteran.Status)
	}
}
