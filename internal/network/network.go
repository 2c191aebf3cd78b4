// Package network defines the opaque neural-network interface the backend
// layer batches over, a name-to-constructor registry, and two concrete
// implementations: a go-deep MLP loaded from a weight file and a
// deterministic pseudo-random network for tests and smoke runs.
package network

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kestrelchess/kestrel/internal/config"
	"github.com/kestrelchess/kestrel/internal/encoder"
)

// Capabilities describes what heads a network provides.
type Capabilities struct {
	HasWDL bool
	HasMLH bool
}

// Network is a loaded neural network. Implementations must tolerate
// concurrent computations; a network that cannot run forward passes in
// parallel serializes them internally.
type Network interface {
	Capabilities() Capabilities
	NewComputation() Computation
	RunsOnCPU() bool
	SuggestedThreads() int
	RecommendedBatchSize() int
}

// Computation is one forward pass over a batch of inputs. Inputs are added
// one by one, evaluated together by ComputeBlocking, and read back by entry
// index afterwards.
type Computation interface {
	AddInput(planes *encoder.Planes)
	ComputeBlocking() error
	BatchSize() int

	// QVal is the expected outcome in [-1, 1] from the mover's perspective.
	QVal(i int) float32
	// DVal is the draw probability in [0, 1].
	DVal(i int) float32
	// MVal is the moves-left estimate.
	MVal(i int) float32
	// PVal is the raw policy logit for one policy output index.
	PVal(i, policyIdx int) float32
}

// Constructor builds a network from an optional weight container and its
// backend-specific options.
type Constructor func(w *Weights, opts *config.Options) (Network, error)

var (
	registryMu sync.Mutex
	registry   = make(map[string]Constructor)
	defaults   sync.Once
)

// Register adds a named constructor. Registration happens during start-up,
// not from init side effects; registering the same name twice panics.
func Register(name string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("network: duplicate registration of %q", name))
	}
	registry[name] = ctor
}

// RegisterDefaults registers the built-in networks. Safe to call more than
// once.
func RegisterDefaults() {
	defaults.Do(func() {
		Register("godeep", newGodeepNetwork)
		Register("random", newRandomNetwork)
	})
}

// Lookup returns the constructor registered under name.
func Lookup(name string) (Constructor, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("network: unknown network %q (have %v)", name, names())
	}
	return ctor, nil
}

// Names lists the registered networks in sorted order.
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
