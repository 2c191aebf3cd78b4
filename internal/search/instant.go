package search

import (
	"context"
	"errors"
	"sync"

	"github.com/kestrelchess/kestrel/internal/chess"
)

// pickFunc is the single strategy-specific piece of an instant search: pick
// one move for the last position of the game, reporting thinking info along
// the way. The returned move is expressed from the mover's perspective
// (mirrored when black is to move); the announcer converts it back to the
// wire convention.
type pickFunc func(ctx context.Context, g *chess.GameState) (chess.Move, error)

// instant is the shared lifecycle of both strategies. Selection runs
// synchronously inside StartSearch; the state machine only arbitrates who
// announces: natural completion, StopSearch or AbortSearch. A single guard
// flag keeps the announcement to exactly one regardless of the path.
type instant struct {
	responder Responder
	pick      pickFunc

	mu        sync.Mutex
	game      *chess.GameState
	best      chess.Move
	haveBest  bool
	announced bool
	done      chan struct{}
}

func newInstant(r Responder, pick pickFunc) *instant {
	return &instant{responder: r, pick: pick}
}

func (s *instant) NewGame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.game = nil
	s.haveBest = false
	s.announced = false
	s.done = nil
}

func (s *instant) SetPosition(g *chess.GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.game = g
}

func (s *instant) StartSearch(params GoParams) error {
	s.mu.Lock()
	if s.game == nil {
		s.mu.Unlock()
		return errors.New("search: no position set")
	}
	g := s.game
	s.best = chess.Move{}
	s.haveBest = false
	s.announced = false
	s.done = make(chan struct{})
	s.mu.Unlock()

	move, err := s.pick(context.Background(), g)
	if err != nil {
		s.AbortSearch()
		return err
	}

	s.mu.Lock()
	s.best = move
	s.haveBest = true
	s.mu.Unlock()

	// Infinite and ponder searches hold the result until stop.
	if !params.Infinite && !params.Ponder {
		s.announce()
	}
	return nil
}

func (s *instant) WaitSearch() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return
	}
	<-done
}

func (s *instant) StopSearch() {
	s.announce()
}

func (s *instant) AbortSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishLocked()
}

// finishLocked marks the announcement as spent and releases waiters.
func (s *instant) finishLocked() bool {
	if s.announced {
		return false
	}
	s.announced = true
	if s.done != nil {
		close(s.done)
	}
	return true
}

func (s *instant) announce() {
	s.mu.Lock()
	first := s.finishLocked()
	best, have, g := s.best, s.haveBest, s.game
	s.mu.Unlock()
	if !first || !have {
		return
	}

	// Selection runs from the mover's perspective; flip back to board
	// coordinates for the wire.
	// TODO: carry board-space moves end to end and drop this flip.
	info := BestMoveInfo{Best: best}
	cur := g.CurrentPosition()
	if !cur.WhiteToMove() {
		info.Best = info.Best.Mirror()
	} else if !info.Ponder.IsZero() {
		info.Ponder = info.Ponder.Mirror()
	}
	s.responder.OutputBestMove(&info)
}
