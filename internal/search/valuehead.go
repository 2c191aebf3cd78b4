package search

import (
	"context"
	"slices"

	"github.com/kestrelchess/kestrel/internal/backend"
	"github.com/kestrelchess/kestrel/internal/chess"
)

// NewValueHead builds the strategy that plays the move whose one-ply
// successor the value head likes least for the opponent. All non-terminal
// successors share a single computation, so the whole lookahead costs one
// network round trip.
func NewValueHead(b backend.Backend, r Responder) Search {
	v := &valueHead{backend: backend.NewBatchSplitting(b), responder: r}
	return newInstant(r, v.pick)
}

type valueHead struct {
	backend   backend.Backend
	responder Responder
}

// score ranks a successor. negQ is the opponent's value after the move, so
// lower is better for the mover. A mate marker outranks any evaluation;
// among mates fewer plies wins; draw probability breaks value ties.
type score struct {
	mate int // 0 means none
	negQ float32
	d    float32
}

// ranksAbove reports whether s strictly outranks o.
func (s score) ranksAbove(o score) bool {
	if (s.mate > 0) != (o.mate > 0) {
		return s.mate > 0
	}
	if s.mate > 0 && s.mate != o.mate {
		return s.mate < o.mate
	}
	if s.negQ != o.negQ {
		return s.negQ < o.negQ
	}
	return s.d < o.d
}

func (v *valueHead) pick(ctx context.Context, g *chess.GameState) (chess.Move, error) {
	history := g.Positions()
	cur := history[len(history)-1]
	moves := cur.LegalMoves()

	scores := make([]score, len(moves))
	c := v.backend.NewComputation()
	for i, m := range moves {
		child := cur
		child.Apply(m)
		childHistory := append(slices.Clone(history), child)

		switch chess.NewHistory(childHistory).ComputeGameResult() {
		case chess.Undecided:
			c.AddInput(
				backend.EvalPosition{History: childHistory},
				backend.EvalResultPtr{Q: &scores[i].negQ, D: &scores[i].d},
			)
		case chess.Draw:
			scores[i] = score{negQ: 0, d: 1}
		default:
			// A legal move into a decisive terminal mates the opponent.
			scores[i] = score{mate: 1, negQ: -1, d: 0}
		}
	}
	if err := c.ComputeBlocking(ctx); err != nil {
		return chess.Move{}, err
	}

	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i].ranksAbove(scores[best]) {
			best = i
		}
	}

	info := &ThinkingInfo{Depth: 1, SelDepth: 1, Nodes: len(moves)}
	if scores[best].mate > 0 {
		mate := scores[best].mate
		info.Mate = &mate
	} else {
		q := -scores[best].negQ
		cp := centipawns(q)
		wdl := winDrawLoss(q, scores[best].d)
		info.Score = &cp
		info.WDL = &wdl
	}
	v.responder.OutputThinkingInfo(info)

	move := moves[best]
	if !cur.WhiteToMove() {
		move = move.Mirror()
	}
	return move, nil
}
