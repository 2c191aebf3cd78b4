// Package encoder turns a position history into network input planes and
// maps moves to policy output indices.
//
// The network always sees the position from the side to move: when black is
// to move every bitboard is mirrored vertically and the colors are swapped.
// The mirror is reported as a Transform so that callers can map legal moves
// to the policy indices of the transformed board.
package encoder

import (
	"fmt"
	"math/bits"

	"github.com/kestrelchess/kestrel/internal/chess"
)

const (
	// HistorySteps is the fixed history depth fed to the network.
	HistorySteps = 8
	// PlanesPerStep is 12 piece planes plus one repetition plane.
	PlanesPerStep = 13
	// AuxPlanes cover castling rights, the fifty-move counter, two reserved
	// planes and a constant plane.
	AuxPlanes = 8

	// TotalPlanes is the full input depth.
	TotalPlanes = HistorySteps*PlanesPerStep + AuxPlanes
	// InputSize is the flattened input length for dense networks.
	InputSize = TotalPlanes * 64

	// PolicyOutputs is the size of the policy head: 64*64 from/to pairs plus
	// an underpromotion block (8 files x 3 directions x 3 pieces).
	PolicyOutputs = 64*64 + 8*3*3
)

// Transform is the symmetry applied while encoding.
type Transform uint8

const (
	// TransformNone leaves the board as is (white to move).
	TransformNone Transform = iota
	// TransformFlip mirrors the board vertically (black to move).
	TransformFlip
)

// HistoryFill controls how missing history positions are encoded.
type HistoryFill int

const (
	// FillNo leaves missing history planes empty.
	FillNo HistoryFill = iota
	// FillFENOnly repeats the oldest position, but only when the game did
	// not start from the standard initial position.
	FillFENOnly
	// FillAlways repeats the oldest position unconditionally.
	FillAlways
)

// ParseHistoryFill parses the configuration spelling of a fill policy.
func ParseHistoryFill(s string) (HistoryFill, error) {
	switch s {
	case "no":
		return FillNo, nil
	case "fen_only":
		return FillFENOnly, nil
	case "always":
		return FillAlways, nil
	}
	return 0, fmt.Errorf("unknown history fill %q (want no, fen_only or always)", s)
}

func (f HistoryFill) String() string {
	switch f {
	case FillNo:
		return "no"
	case FillFENOnly:
		return "fen_only"
	case FillAlways:
		return "always"
	}
	return "unknown"
}

// Plane is one 8x8 input channel: a square mask and the value written to the
// masked squares.
type Plane struct {
	Mask  uint64
	Value float32
}

// Planes is a full network input.
type Planes [TotalPlanes]Plane

// Dense expands the planes into a flat float64 vector for dense networks.
func (p *Planes) Dense() []float64 {
	out := make([]float64, InputSize)
	for i := range p {
		if p[i].Mask == 0 {
			continue
		}
		v := float64(p[i].Value)
		for m := p[i].Mask; m != 0; m &= m - 1 {
			out[i*64+bits.TrailingZeros64(m)] = v
		}
	}
	return out
}

const allSquares = ^uint64(0)

// Encode builds the input planes for the last position of history, looking
// back up to HistorySteps plies. It returns the transform that was applied.
// The history slice is only borrowed for the duration of the call.
func Encode(history []chess.Board, fill HistoryFill) (*Planes, Transform) {
	if len(history) == 0 {
		panic("encoder: empty history")
	}
	cur := &history[len(history)-1]
	transform := TransformNone
	if !cur.WhiteToMove() {
		transform = TransformFlip
	}

	fillHistory := fill == FillAlways ||
		(fill == FillFENOnly && !history[0].IsStartPosition())

	planes := &Planes{}
	for step := 0; step < HistorySteps; step++ {
		idx := len(history) - 1 - step
		if idx < 0 {
			if !fillHistory {
				continue
			}
			idx = 0
		}
		encodeStep(planes, step, &history[idx], transform, repetitions(history, idx))
	}

	encodeAux(planes, cur, transform)
	return planes, transform
}

// encodeStep writes the 13 planes of one history position. Piece planes are
// ordered side-to-move first, pawn through king.
func encodeStep(planes *Planes, step int, b *chess.Board, transform Transform, reps int) {
	ourWhite := transform == TransformNone
	us := b.Bitboards(ourWhite)
	them := b.Bitboards(!ourWhite)

	base := step * PlanesPerStep
	for piece := 0; piece < 6; piece++ {
		planes[base+piece] = Plane{Mask: transformBits(us[piece], transform), Value: 1}
		planes[base+6+piece] = Plane{Mask: transformBits(them[piece], transform), Value: 1}
	}
	if reps > 0 {
		planes[base+12] = Plane{Mask: allSquares, Value: 1}
	}
}

func encodeAux(planes *Planes, cur *chess.Board, transform Transform) {
	base := HistorySteps * PlanesPerStep
	wk, wq, bk, bq := cur.CastlingRights()
	if transform == TransformFlip {
		wk, bk = bk, wk
		wq, bq = bq, wq
	}
	for i, right := range []bool{wk, wq, bk, bq} {
		if right {
			planes[base+i] = Plane{Mask: allSquares, Value: 1}
		}
	}
	planes[base+4] = Plane{Mask: allSquares, Value: float32(cur.Rule50())}
	// base+5 and base+6 stay empty.
	planes[base+7] = Plane{Mask: allSquares, Value: 1}
}

func transformBits(bb uint64, t Transform) uint64 {
	if t == TransformFlip {
		return bits.ReverseBytes64(bb)
	}
	return bb
}

func repetitions(history []chess.Board, idx int) int {
	n := 0
	hash := history[idx].Hash()
	for j := 0; j < idx; j++ {
		if history[j].Hash() == hash {
			n++
		}
	}
	return n
}

// MoveToNetworkIndex maps a legal move of the untransformed board to its
// policy output index under the given transform. Queen promotions share the
// plain from/to index; underpromotions get their own block above 4096.
func MoveToNetworkIndex(m chess.Move, t Transform) int {
	if t == TransformFlip {
		m = m.Mirror()
	}
	if m.Promotion != chess.NoPiece && m.Promotion != chess.Queen {
		// After the transform a promotion always moves from rank 7 to rank 8.
		fromFile := int(m.From % 8)
		dir := int(m.To%8) - fromFile + 1 // 0=capture left, 1=push, 2=capture right
		var piece int
		switch m.Promotion {
		case chess.Knight:
			piece = 0
		case chess.Bishop:
			piece = 1
		case chess.Rook:
			piece = 2
		}
		return 64*64 + (fromFile*3+dir)*3 + piece
	}
	return int(m.From)*64 + int(m.To)
}
