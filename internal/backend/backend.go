// Package backend turns an opaque network into a uniform, batchable
// evaluation service. A Backend is long-lived and rebuilt when its weights
// or backend options change; a Computation accumulates evaluation requests
// from any number of goroutines, runs the forward pass once, and decodes
// the raw outputs back into caller-owned result slots.
package backend

import (
	"context"

	"github.com/kestrelchess/kestrel/internal/chess"
	"github.com/kestrelchess/kestrel/internal/config"
)

// Option keys recognized by Factory.Create and UpdateConfiguration.
const (
	OptWeightsPath       = "weights"
	OptBackendOptions    = "backend-opts"
	OptPolicySoftmaxTemp = "policy-softmax-temp"
	OptHistoryFill       = "history-fill"
)

// EvalPosition is one evaluation request: the game history ending at the
// position to evaluate, plus its legal moves. Both slices are borrowed for
// the duration of the AddInput call only.
type EvalPosition struct {
	History []chess.Board
	Moves   []chess.Move
}

// EvalResultPtr carries caller-owned output slots. Nil scalar slots and an
// empty policy slice are never written. When P is non-empty its length must
// equal the legal-move count; P[i] receives the decoded probability of
// Moves[i] and the decoded values sum to 1.
type EvalResultPtr struct {
	Q *float32
	D *float32
	M *float32
	P []float32
}

// Attributes describes a backend's capabilities. Fixed at construction.
type Attributes struct {
	HasWDL               bool
	HasMLH               bool
	RunsOnCPU            bool
	SuggestedThreads     int
	RecommendedBatchSize int
	MaximumBatchSize     int
}

// UpdateResult is the outcome of a live reconfiguration attempt.
type UpdateResult int

const (
	// UpdateOK means the change was applied in place.
	UpdateOK UpdateResult = iota
	// NeedRestart means weights or backend options changed; the caller must
	// discard this backend and build a new one from the factory.
	NeedRestart
)

func (r UpdateResult) String() string {
	if r == NeedRestart {
		return "need-restart"
	}
	return "ok"
}

// Computation is a single-use batch: fill it with AddInput, run
// ComputeBlocking exactly once, then discard it.
type Computation interface {
	// AddInput enqueues one request and returns its stable batch index.
	// Safe for concurrent use. Panics when the batch would exceed the
	// backend's maximum batch size.
	AddInput(pos EvalPosition, res EvalResultPtr) int

	// ComputeBlocking runs the forward pass over every accumulated entry
	// and writes the decoded results into the callers' slots. It must
	// happen strictly after all AddInput calls for this batch. A canceled
	// context stops result delivery, never the forward pass itself.
	ComputeBlocking(ctx context.Context) error

	BatchSize() int
}

// Backend is a configured network ready to serve evaluations.
type Backend interface {
	Attributes() Attributes
	NewComputation() Computation

	// UpdateConfiguration applies compatible option changes in place and
	// reports NeedRestart when the weights path or backend-options string
	// differs from the values the backend was built with. It must not run
	// concurrently with an active computation.
	UpdateConfiguration(opts *config.Options) (UpdateResult, error)
}
