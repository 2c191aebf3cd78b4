package chess

import "testing"

func mustGameState(t *testing.T, fen string, moves ...string) *GameState {
	t.Helper()
	g, err := NewGameState(fen, moves)
	if err != nil {
		t.Fatalf("NewGameState: %v", err)
	}
	return g
}

func TestGameStatePositions(t *testing.T) {
	g := mustGameState(t, "", "e2e4", "e7e5")
	positions := g.Positions()
	if len(positions) != 3 {
		t.Fatalf("len(positions) = %d, want 3", len(positions))
	}
	if !positions[0].IsStartPosition() {
		t.Error("root position should be startpos")
	}
	cur := g.CurrentPosition()
	if !cur.WhiteToMove() {
		t.Error("after e2e4 e7e5 it should be white to move")
	}
}

func TestGameStateRejectsIllegalMove(t *testing.T) {
	if _, err := NewGameState("", []string{"e2e5"}); err == nil {
		t.Error("expected error for illegal move")
	}
}

func TestComputeGameResultCheckmate(t *testing.T) {
	// Fool's mate: white is checkmated.
	g := mustGameState(t, "", "f2f3", "e7e5", "g2g4", "d8h4")
	h := NewHistory(g.Positions())
	if got := h.ComputeGameResult(); got != BlackWon {
		t.Errorf("ComputeGameResult() = %v, want black won", got)
	}
}

func TestComputeGameResultStalemate(t *testing.T) {
	b, err := ParseFEN("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	h := NewHistory([]Board{b})
	if got := h.ComputeGameResult(); got != Draw {
		t.Errorf("ComputeGameResult() = %v, want draw", got)
	}
}

func TestComputeGameResultRule50(t *testing.T) {
	b, err := ParseFEN("4k3/8/8/8/8/8/4R3/4K3 w - - 100 80")
	if err != nil {
		t.Fatal(err)
	}
	h := NewHistory([]Board{b})
	if got := h.ComputeGameResult(); got != Draw {
		t.Errorf("ComputeGameResult() = %v, want draw", got)
	}
}

func TestComputeGameResultRepetition(t *testing.T) {
	// Shuffle the knights back and forth until the position repeats twice.
	g := mustGameState(t, "",
		"g1f3", "g8f6", "f3g1", "f6g8",
		"g1f3", "g8f6", "f3g1", "f6g8")
	h := NewHistory(g.Positions())
	if got := h.ComputeGameResult(); got != Draw {
		t.Errorf("ComputeGameResult() = %v, want draw by repetition", got)
	}
}

func TestHistoryAppendPop(t *testing.T) {
	h := NewHistory([]Board{NewBoard()})
	m, _ := ParseMove("e2e4")
	h.Append(m)
	if len(h.Positions()) != 2 {
		t.Fatalf("len = %d after Append, want 2", len(h.Positions()))
	}
	if h.Last().WhiteToMove() {
		t.Error("after e2e4 it should be black to move")
	}
	h.Pop()
	if len(h.Positions()) != 1 {
		t.Fatalf("len = %d after Pop, want 1", len(h.Positions()))
	}
	if !h.Last().IsStartPosition() {
		t.Error("Pop should restore the start position")
	}
}
