// Package search implements instant move selection on top of a backend:
// one-shot strategies that pick a move directly from raw network outputs,
// without a tree. The policy-head strategy plays the argmax of the decoded
// policy; the value-head strategy evaluates every one-ply successor in a
// single batch.
package search

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kestrelchess/kestrel/internal/backend"
	"github.com/kestrelchess/kestrel/internal/chess"
)

// GoParams are the recognized parameters of a search start request.
type GoParams struct {
	Infinite bool
	Ponder   bool
}

// WDL is a win/draw/loss probability triple on a 0-1000 scale.
type WDL struct {
	W, D, L int
}

// ThinkingInfo is one progress report. Exactly one of Score+WDL or Mate is
// populated.
type ThinkingInfo struct {
	Depth    int
	SelDepth int
	Nodes    int
	Score    *int // centipawns
	Mate     *int // moves to forced mate
	WDL      *WDL
}

// BestMoveInfo is the final announcement of a search.
type BestMoveInfo struct {
	Best   chess.Move
	Ponder chess.Move // zero when absent
}

// Responder receives search output. Implementations write the UCI wire
// format; tests capture the structs.
type Responder interface {
	OutputThinkingInfo(info *ThinkingInfo)
	OutputBestMove(info *BestMoveInfo)
}

// Search is a running strategy bound to one backend and responder. A search
// announces its best move exactly once per StartSearch, whichever of the
// natural completion, StopSearch or AbortSearch paths gets there first.
type Search interface {
	NewGame()
	SetPosition(g *chess.GameState)
	StartSearch(params GoParams) error
	// WaitSearch blocks until the current search has announced or aborted.
	WaitSearch()
	// StopSearch forces the announcement if it has not happened yet.
	StopSearch()
	// AbortSearch suppresses a pending announcement without output.
	AbortSearch()
}

// Factory builds a named search strategy. The backend handed in is the
// plain one; strategies wrap it for batch splitting themselves.
type Factory func(b backend.Backend, r Responder) Search

var (
	registryMu sync.Mutex
	registry   = make(map[string]Factory)
	defaults   sync.Once
)

// Register adds a named strategy. Duplicate names panic.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("search: duplicate registration of %q", name))
	}
	registry[name] = f
}

// RegisterDefaults registers the built-in strategies. Safe to call more
// than once.
func RegisterDefaults() {
	defaults.Do(func() {
		Register("policyhead", NewPolicyHead)
		Register("valuehead", NewValueHead)
	})
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("search: unknown search %q (have %v)", name, names())
	}
	return f, nil
}

// Names lists the registered strategies in sorted order.
func Names() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	return names()
}

func names() []string {
	ns := make([]string, 0, len(registry))
	for name := range registry {
		ns = append(ns, name)
	}
	sort.Strings(ns)
	return ns
}

// centipawns converts a value-head output to the centipawn scale.
func centipawns(q float32) int {
	return int(math.Round(90 * math.Tan(1.5637541897*float64(q))))
}

// winDrawLoss converts q and d to per-mille win/draw/loss probabilities.
func winDrawLoss(q, d float32) WDL {
	return WDL{
		W: int(math.Round(float64(500 * (1 + q - d)))),
		D: int(math.Round(float64(1000 * d))),
		L: int(math.Round(float64(500 * (1 - q - d)))),
	}
}
