package testfixtures

import "testing"

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("player")

	first := gen.Next()
	second := gen.Next()

	if first != "player-1" || second != "player-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if gen.Issued() != 2 {
		t.Fatalf("expected 2 issued, got %d", gen.Issued())
	}
}

func TestIDGeneratorCanReset(t *testing.T) {
	gen := NewIDGenerator("")
	_ = gen.Next()
	gen.Reset("game")

	if next := gen.Next(); next != "game-1" {
		t.Fatalf("expected game-1 after reset, got %q", next)
	}
}
