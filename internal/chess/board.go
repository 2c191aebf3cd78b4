// Package chess wraps the dragontoothmg move generator with the move and
// position types the rest of the engine works in: a compact Move that can be
// mirrored between board perspectives, a Board with game-result helpers, and
// a position History for network input encoding.
package chess

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/dylhunn/dragontoothmg"
)

// Square is a 0-63 board index, a1=0, h8=63.
type Square = uint8

// Piece identifies a piece kind, reusing the generator's encoding
// (Pawn=1 .. King=6, 0 means none).
type Piece = dragontoothmg.Piece

const (
	NoPiece = dragontoothmg.Nothing
	Pawn    = dragontoothmg.Pawn
	Knight  = dragontoothmg.Knight
	Bishop  = dragontoothmg.Bishop
	Rook    = dragontoothmg.Rook
	Queen   = dragontoothmg.Queen
	King    = dragontoothmg.King
)

// StartFEN is the standard initial position.
const StartFEN = dragontoothmg.Startpos

// Move is a from/to square pair plus an optional promotion piece.
//
// Moves are plain values; equality comparison is meaningful. The zero Move is
// "no move".
type Move struct {
	From      Square
	To        Square
	Promotion Piece
}

// IsZero reports whether m is the "no move" value.
func (m Move) IsZero() bool { return m == Move{} }

// Mirror returns the move with both squares flipped vertically (a1<->a8).
// Mirror is its own inverse.
func (m Move) Mirror() Move {
	m.From ^= 56
	m.To ^= 56
	return m
}

// String renders the move in UCI coordinate notation, e.g. "e2e4", "e7e8q".
func (m Move) String() string {
	if m.IsZero() {
		return "0000"
	}
	s := squareName(m.From) + squareName(m.To)
	switch m.Promotion {
	case Knight:
		s += "n"
	case Bishop:
		s += "b"
	case Rook:
		s += "r"
	case Queen:
		s += "q"
	}
	return s
}

func squareName(sq Square) string {
	return string([]byte{'a' + sq%8, '1' + sq/8})
}

// ParseMove parses UCI coordinate notation. It does not check legality.
func ParseMove(s string) (Move, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "0000" {
		return Move{}, nil
	}
	if len(s) < 4 || len(s) > 5 {
		return Move{}, fmt.Errorf("invalid move %q", s)
	}
	from, err := parseSquare(s[0:2])
	if err != nil {
		return Move{}, fmt.Errorf("invalid move %q: %w", s, err)
	}
	to, err := parseSquare(s[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("invalid move %q: %w", s, err)
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		switch s[4] {
		case 'n':
			m.Promotion = Knight
		case 'b':
			m.Promotion = Bishop
		case 'r':
			m.Promotion = Rook
		case 'q':
			m.Promotion = Queen
		default:
			return Move{}, fmt.Errorf("invalid promotion in %q", s)
		}
	}
	return m, nil
}

func parseSquare(s string) (Square, error) {
	if s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return 0, fmt.Errorf("bad square %q", s)
	}
	return Square(s[0]-'a') + 8*Square(s[1]-'1'), nil
}

// Board is a chess position. It is a value type; copying it copies the
// position.
type Board struct {
	dt dragontoothmg.Board
}

// NewBoard returns the standard initial position.
func NewBoard() Board {
	return Board{dt: dragontoothmg.ParseFen(StartFEN)}
}

// ParseFEN parses a FEN string into a Board.
func ParseFEN(fen string) (Board, error) {
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return Board{}, fmt.Errorf("invalid FEN %q: expected at least 4 fields, got %d", fen, len(fields))
	}
	return Board{dt: dragontoothmg.ParseFen(fen)}, nil
}

// FEN renders the position as a FEN string.
func (b *Board) FEN() string { return b.dt.ToFen() }

// WhiteToMove reports whether it is white's turn.
func (b *Board) WhiteToMove() bool { return b.dt.Wtomove }

// Hash returns the Zobrist hash of the position.
func (b *Board) Hash() uint64 { return b.dt.Hash() }

// Rule50 returns the halfmove clock used for the fifty-move rule.
func (b *Board) Rule50() int { return int(b.dt.Halfmoveclock) }

// InCheck reports whether the side to move is in check.
func (b *Board) InCheck() bool { return b.dt.OurKingInCheck() }

// IsStartPosition reports whether the position is the standard initial one.
func (b *Board) IsStartPosition() bool {
	start := NewBoard()
	return b.Hash() == start.Hash()
}

// LegalMoves generates all legal moves in the generator's enumeration order.
func (b *Board) LegalMoves() []Move {
	dtMoves := b.dt.GenerateLegalMoves()
	moves := make([]Move, len(dtMoves))
	for i, dm := range dtMoves {
		moves[i] = Move{From: dm.From(), To: dm.To(), Promotion: dm.Promote()}
	}
	return moves
}

// Apply plays a legal move in place. It panics if the move is not legal in
// this position; callers are expected to pass moves from LegalMoves.
func (b *Board) Apply(m Move) {
	for _, dm := range b.dt.GenerateLegalMoves() {
		if dm.From() == m.From && dm.To() == m.To && dm.Promote() == m.Promotion {
			b.dt.Apply(dm)
			return
		}
	}
	panic(fmt.Sprintf("chess: illegal move %s in %s", m, b.FEN()))
}

// Bitboards returns the piece occupancy for one side, indexed
// [Pawn-1 .. King-1].
func (b *Board) Bitboards(white bool) [6]uint64 {
	var bb dragontoothmg.Bitboards
	if white {
		bb = b.dt.White
	} else {
		bb = b.dt.Black
	}
	return [6]uint64{bb.Pawns, bb.Knights, bb.Bishops, bb.Rooks, bb.Queens, bb.Kings}
}

// CastlingRights returns the four castling flags (white O-O, white O-O-O,
// black O-O, black O-O-O), recovered from the FEN castling field.
func (b *Board) CastlingRights() (wk, wq, bk, bq bool) {
	fields := strings.Fields(b.dt.ToFen())
	if len(fields) < 3 {
		return
	}
	for _, c := range fields[2] {
		switch c {
		case 'K':
			wk = true
		case 'Q':
			wq = true
		case 'k':
			bk = true
		case 'q':
			bq = true
		}
	}
	return
}

// HasMatingMaterial reports whether either side could still deliver mate.
// Bare kings, or king plus a single minor piece, cannot.
func (b *Board) HasMatingMaterial() bool {
	w, bl := b.dt.White, b.dt.Black
	if w.Pawns|bl.Pawns|w.Rooks|bl.Rooks|w.Queens|bl.Queens != 0 {
		return true
	}
	minors := bits.OnesCount64(w.Knights|w.Bishops) + bits.OnesCount64(bl.Knights|bl.Bishops)
	return minors > 1
}
