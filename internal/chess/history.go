package chess

import "fmt"

// GameResult is the outcome of a finished game, or Undecided.
type GameResult int

const (
	Undecided GameResult = iota
	Draw
	WhiteWon
	BlackWon
)

func (r GameResult) String() string {
	switch r {
	case Undecided:
		return "undecided"
	case Draw:
		return "draw"
	case WhiteWon:
		return "white won"
	case BlackWon:
		return "black won"
	}
	return "unknown"
}

// History is an ordered sequence of positions, oldest first. The last
// position is the current one. Append and Pop support one-ply lookahead
// without copying the whole history.
type History struct {
	positions []Board
}

// NewHistory builds a history from the given positions. The slice is copied.
func NewHistory(positions []Board) *History {
	h := &History{positions: make([]Board, len(positions))}
	copy(h.positions, positions)
	return h
}

// Positions returns the underlying positions, oldest first. The returned
// slice is only valid until the next Append or Pop.
func (h *History) Positions() []Board { return h.positions }

// Last returns the current position.
func (h *History) Last() *Board { return &h.positions[len(h.positions)-1] }

// Append plays a move on a copy of the current position and pushes the
// resulting position.
func (h *History) Append(m Move) {
	next := *h.Last()
	next.Apply(m)
	h.positions = append(h.positions, next)
}

// Pop removes the most recent position.
func (h *History) Pop() {
	h.positions = h.positions[:len(h.positions)-1]
}

// ComputeGameResult determines whether the current position ends the game:
// checkmate or stalemate, the fifty-move rule, threefold repetition within
// this history, or insufficient mating material.
func (h *History) ComputeGameResult() GameResult {
	cur := h.Last()
	if len(cur.LegalMoves()) == 0 {
		if !cur.InCheck() {
			return Draw
		}
		if cur.WhiteToMove() {
			return BlackWon
		}
		return WhiteWon
	}
	if cur.Rule50() >= 100 {
		return Draw
	}
	if !cur.HasMatingMaterial() {
		return Draw
	}
	if h.repetitions(len(h.positions)-1) >= 2 {
		return Draw
	}
	return Undecided
}

// repetitions counts how many earlier positions match the one at index i.
func (h *History) repetitions(i int) int {
	n := 0
	hash := h.positions[i].Hash()
	for j := 0; j < i; j++ {
		if h.positions[j].Hash() == hash {
			n++
		}
	}
	return n
}

// GameState is the game as set up by the protocol layer: a root position and
// the moves played from it.
type GameState struct {
	root  Board
	moves []Move
}

// NewGameState builds a game state from a root FEN (empty means the standard
// start position) and a list of UCI move strings. Each move must be legal in
// the position it is played from.
func NewGameState(fen string, moves []string) (*GameState, error) {
	var root Board
	if fen == "" {
		root = NewBoard()
	} else {
		var err error
		root, err = ParseFEN(fen)
		if err != nil {
			return nil, err
		}
	}
	g := &GameState{root: root}
	pos := root
	for _, ms := range moves {
		m, err := ParseMove(ms)
		if err != nil {
			return nil, err
		}
		if !legal(&pos, m) {
			return nil, fmt.Errorf("illegal move %s in %s", m, pos.FEN())
		}
		pos.Apply(m)
		g.moves = append(g.moves, m)
	}
	return g, nil
}

func legal(b *Board, m Move) bool {
	for _, lm := range b.LegalMoves() {
		if lm == m {
			return true
		}
	}
	return false
}

// Positions returns every position of the game, oldest first.
func (g *GameState) Positions() []Board {
	positions := make([]Board, 0, len(g.moves)+1)
	positions = append(positions, g.root)
	pos := g.root
	for _, m := range g.moves {
		pos.Apply(m)
		positions = append(positions, pos)
	}
	return positions
}

// CurrentPosition returns the position after all moves.
func (g *GameState) CurrentPosition() Board {
	positions := g.Positions()
	return positions[len(positions)-1]
}
