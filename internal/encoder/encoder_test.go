package encoder

import (
	"testing"

	"github.com/kestrelchess/kestrel/internal/chess"
)

const rank2 = uint64(0xFF00)

func TestEncodeStartpos(t *testing.T) {
	planes, transform := Encode([]chess.Board{chess.NewBoard()}, FillNo)
	if transform != TransformNone {
		t.Fatalf("transform = %v, want none", transform)
	}
	if planes[0].Mask != rank2 {
		t.Errorf("own pawn plane = %#x, want %#x", planes[0].Mask, rank2)
	}
	// Constant plane is always set.
	if planes[TotalPlanes-1].Mask != ^uint64(0) || planes[TotalPlanes-1].Value != 1 {
		t.Error("constant plane not set")
	}
	// All four castling planes set at startpos.
	base := HistorySteps * PlanesPerStep
	for i := 0; i < 4; i++ {
		if planes[base+i].Mask == 0 {
			t.Errorf("castling plane %d empty at startpos", i)
		}
	}
}

func TestEncodeBlackToMoveFlips(t *testing.T) {
	g, err := chess.NewGameState("", []string{"e2e4"})
	if err != nil {
		t.Fatal(err)
	}
	planes, transform := Encode(g.Positions(), FillNo)
	if transform != TransformFlip {
		t.Fatalf("transform = %v, want flip", transform)
	}
	// Black's pawns, mirrored, sit on rank 2 of the transformed board.
	if planes[0].Mask != rank2 {
		t.Errorf("own pawn plane = %#x, want %#x", planes[0].Mask, rank2)
	}
}

func TestEncodeHistoryFill(t *testing.T) {
	start := chess.NewBoard()
	fromFEN, err := chess.ParseFEN("4k3/8/8/8/8/8/4R3/4K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}

	secondStep := func(p *Planes) Plane { return p[PlanesPerStep] }

	// FillNo: only the current step is populated.
	p, _ := Encode([]chess.Board{start}, FillNo)
	if secondStep(p).Mask != 0 {
		t.Error("FillNo: second history step should be empty")
	}

	// FillAlways repeats the oldest position.
	p, _ = Encode([]chess.Board{start}, FillAlways)
	if secondStep(p).Mask != rank2 {
		t.Error("FillAlways: second history step should repeat startpos pawns")
	}

	// FillFENOnly: no fill from startpos, fill from an arbitrary FEN.
	p, _ = Encode([]chess.Board{start}, FillFENOnly)
	if secondStep(p).Mask != 0 {
		t.Error("FillFENOnly: should not fill when the game starts from startpos")
	}
	p, _ = Encode([]chess.Board{fromFEN}, FillFENOnly)
	if secondStep(p).Mask == 0 {
		t.Error("FillFENOnly: should fill when the game starts from a FEN")
	}
}

func TestEncodeRepetitionPlane(t *testing.T) {
	g, err := chess.NewGameState("", []string{"g1f3", "g8f6", "f3g1", "f6g8"})
	if err != nil {
		t.Fatal(err)
	}
	planes, _ := Encode(g.Positions(), FillNo)
	// The current position repeats the start position.
	if planes[12].Mask != ^uint64(0) {
		t.Error("repetition plane not set for a repeated position")
	}
}

func TestMoveToNetworkIndex(t *testing.T) {
	e2e4, _ := chess.ParseMove("e2e4")
	if got, want := MoveToNetworkIndex(e2e4, TransformNone), 12*64+28; got != want {
		t.Errorf("index(e2e4) = %d, want %d", got, want)
	}
	// Flip maps e7e5 onto the same index as e2e4.
	e7e5, _ := chess.ParseMove("e7e5")
	if got := MoveToNetworkIndex(e7e5, TransformFlip); got != MoveToNetworkIndex(e2e4, TransformNone) {
		t.Errorf("flipped index(e7e5) = %d, want index(e2e4)", got)
	}
}

func TestMoveToNetworkIndexPromotions(t *testing.T) {
	queen, _ := chess.ParseMove("e7e8q")
	if got, want := MoveToNetworkIndex(queen, TransformNone), 52*64+60; got != want {
		t.Errorf("queen promotion index = %d, want plain from/to %d", got, want)
	}
	knight, _ := chess.ParseMove("e7e8n")
	got := MoveToNetworkIndex(knight, TransformNone)
	if got < 64*64 || got >= PolicyOutputs {
		t.Errorf("underpromotion index %d outside the underpromotion block", got)
	}
	// Distinct underpromotions map to distinct indices.
	rook, _ := chess.ParseMove("e7e8r")
	if MoveToNetworkIndex(rook, TransformNone) == got {
		t.Error("rook and knight underpromotions share an index")
	}
	// A black underpromotion under flip lands in the same block.
	blackKnight, _ := chess.ParseMove("e2e1n")
	if MoveToNetworkIndex(blackKnight, TransformFlip) != got {
		t.Error("flipped black underpromotion should match the white index")
	}
}

func TestDense(t *testing.T) {
	planes, _ := Encode([]chess.Board{chess.NewBoard()}, FillNo)
	dense := planes.Dense()
	if len(dense) != InputSize {
		t.Fatalf("len(dense) = %d, want %d", len(dense), InputSize)
	}
	// e2 pawn: plane 0, square 12.
	if dense[12] != 1 {
		t.Error("e2 pawn missing from dense input")
	}
	if dense[0] != 0 {
		t.Error("a1 should be empty on the pawn plane")
	}
}
