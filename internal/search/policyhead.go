package search

import (
	"context"

	"github.com/kestrelchess/kestrel/internal/backend"
	"github.com/kestrelchess/kestrel/internal/chess"
)

// NewPolicyHead builds the strategy that plays the argmax of the decoded
// policy distribution: one evaluation of the current position, full policy
// plus q and d.
func NewPolicyHead(b backend.Backend, r Responder) Search {
	p := &policyHead{backend: backend.NewBatchSplitting(b), responder: r}
	return newInstant(r, p.pick)
}

type policyHead struct {
	backend   backend.Backend
	responder Responder
}

func (p *policyHead) pick(ctx context.Context, g *chess.GameState) (chess.Move, error) {
	history := g.Positions()
	cur := history[len(history)-1]
	moves := cur.LegalMoves()

	var q, d float32
	policy := make([]float32, len(moves))
	c := p.backend.NewComputation()
	c.AddInput(
		backend.EvalPosition{History: history, Moves: moves},
		backend.EvalResultPtr{Q: &q, D: &d, P: policy},
	)
	if err := c.ComputeBlocking(ctx); err != nil {
		return chess.Move{}, err
	}

	// First-encountered maximum wins ties, in legal-move order.
	best := 0
	for i, v := range policy {
		if v > policy[best] {
			best = i
		}
	}

	score := centipawns(q)
	wdl := winDrawLoss(q, d)
	p.responder.OutputThinkingInfo(&ThinkingInfo{
		Depth:    1,
		SelDepth: 1,
		Nodes:    1,
		Score:    &score,
		WDL:      &wdl,
	})

	move := moves[best]
	if !cur.WhiteToMove() {
		move = move.Mirror()
	}
	return move, nil
}
