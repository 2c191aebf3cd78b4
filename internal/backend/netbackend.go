package backend

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync/atomic"

	"github.com/kestrelchess/kestrel/internal/chess"
	"github.com/kestrelchess/kestrel/internal/config"
	"github.com/kestrelchess/kestrel/internal/encoder"
	"github.com/kestrelchess/kestrel/internal/network"
)

// maximumBatchSize bounds one computation regardless of the network's
// recommended size.
const maximumBatchSize = 1024

// Factory builds backends around one registered network.
type Factory struct {
	name string
}

// NewFactory returns a factory for the named network. The name is resolved
// against the network registry at Create time.
func NewFactory(name string) Factory {
	return Factory{name: name}
}

// Name returns the network name this factory builds.
func (f Factory) Name() string { return f.name }

// Create loads the weight file named by the options, parses the
// backend-options string into a nested dictionary, constructs the network
// and wraps it in a Backend. Unconsumed network options are a configuration
// error.
func (f Factory) Create(opts *config.Options) (Backend, error) {
	ctor, err := network.Lookup(f.name)
	if err != nil {
		return nil, err
	}

	path := opts.GetString(OptWeightsPath, "")
	weights, err := network.LoadWeights(path)
	if err != nil {
		return nil, err
	}

	rawOpts := opts.GetString(OptBackendOptions, "")
	netOpts, err := config.ParseSubdict(f.name, rawOpts)
	if err != nil {
		return nil, err
	}

	net, err := ctor(weights, netOpts)
	if err != nil {
		return nil, fmt.Errorf("create backend %s: %w", f.name, err)
	}
	if err := netOpts.CheckAllConsumed(); err != nil {
		return nil, err
	}

	b := &netBackend{
		name:        f.name,
		net:         net,
		weightsPath: path,
		backendOpts: rawOpts,
	}
	if err := b.applyTunables(opts); err != nil {
		return nil, err
	}
	return b, nil
}

// netBackend serves evaluations from one loaded network. The softmax
// temperature and history-fill policy are the only mutable state; both are
// stored atomically so UpdateConfiguration can adjust them between
// computations without a lock.
type netBackend struct {
	name        string
	net         network.Network
	weightsPath string
	backendOpts string

	invTemp atomic.Uint32 // float32 bits of 1/temperature
	fill    atomic.Int32  // encoder.HistoryFill
}

func (b *netBackend) applyTunables(opts *config.Options) error {
	temp, err := opts.GetFloat(OptPolicySoftmaxTemp, 1.0)
	if err != nil {
		return err
	}
	if temp <= 0 {
		return fmt.Errorf("backend %s: %s must be positive, got %v", b.name, OptPolicySoftmaxTemp, temp)
	}
	fillStr := opts.GetString(OptHistoryFill, encoder.FillFENOnly.String())
	fill, err := encoder.ParseHistoryFill(fillStr)
	if err != nil {
		return fmt.Errorf("backend %s: %w", b.name, err)
	}
	b.invTemp.Store(math.Float32bits(float32(1 / temp)))
	b.fill.Store(int32(fill))
	return nil
}

func (b *netBackend) Attributes() Attributes {
	caps := b.net.Capabilities()
	return Attributes{
		HasWDL:               caps.HasWDL,
		HasMLH:               caps.HasMLH,
		RunsOnCPU:            b.net.RunsOnCPU(),
		SuggestedThreads:     b.net.SuggestedThreads(),
		RecommendedBatchSize: b.net.RecommendedBatchSize(),
		MaximumBatchSize:     maximumBatchSize,
	}
}

func (b *netBackend) UpdateConfiguration(opts *config.Options) (UpdateResult, error) {
	if opts.GetString(OptWeightsPath, "") != b.weightsPath ||
		opts.GetString(OptBackendOptions, "") != b.backendOpts {
		return NeedRestart, nil
	}
	if err := b.applyTunables(opts); err != nil {
		return UpdateOK, err
	}
	return UpdateOK, nil
}

func (b *netBackend) NewComputation() Computation {
	return &netComputation{
		backend: b,
		comp:    b.net.NewComputation(),
		entries: NewAtomicVector[entry](maximumBatchSize),
	}
}

// entry is one accumulated request.
type entry struct {
	planes    *encoder.Planes
	transform encoder.Transform
	moves     []chess.Move
	res       EvalResultPtr
}

type netComputation struct {
	backend *netBackend
	comp    network.Computation
	entries *AtomicVector[entry]
}

func (c *netComputation) AddInput(pos EvalPosition, res EvalResultPtr) int {
	planes, transform := encoder.Encode(pos.History, encoder.HistoryFill(c.backend.fill.Load()))
	return c.entries.Append(entry{
		planes:    planes,
		transform: transform,
		moves:     slices.Clone(pos.Moves),
		res:       res,
	})
}

func (c *netComputation) BatchSize() int { return c.entries.Len() }

func (c *netComputation) ComputeBlocking(ctx context.Context) error {
	n := c.entries.Len()
	for i := 0; i < n; i++ {
		c.comp.AddInput(c.entries.Get(i).planes)
	}
	if err := c.comp.ComputeBlocking(); err != nil {
		return err
	}
	recordEvaluation(ctx, c.backend.name, n)

	// The forward pass is never cancelled; a dead context only stops the
	// results from being delivered.
	if err := ctx.Err(); err != nil {
		return err
	}

	invTemp := math.Float32frombits(c.backend.invTemp.Load())
	for i := 0; i < n; i++ {
		e := c.entries.Get(i)
		if e.res.Q != nil {
			*e.res.Q = c.comp.QVal(i)
		}
		if e.res.D != nil {
			*e.res.D = c.comp.DVal(i)
		}
		if e.res.M != nil {
			*e.res.M = c.comp.MVal(i)
		}
		if len(e.res.P) > 0 {
			c.decodePolicy(i, e, invTemp)
		}
	}
	return nil
}

// decodePolicy runs the masked softmax over the entry's legal moves. The
// maximum logit is subtracted before exponentiation for numerical
// stability; a zero total falls back to unit scale instead of dividing by
// zero.
func (c *netComputation) decodePolicy(i int, e *entry, invTemp float32) {
	max := float32(math.Inf(-1))
	for j, m := range e.moves {
		logit := c.comp.PVal(i, encoder.MoveToNetworkIndex(m, e.transform))
		e.res.P[j] = logit
		if logit > max {
			max = logit
		}
	}

	var total float32
	for j := range e.moves {
		v := float32(math.Exp(float64((e.res.P[j] - max) * invTemp)))
		e.res.P[j] = v
		total += v
	}

	scale := float32(1)
	if total > 0 {
		scale = 1 / total
	}
	for j := range e.moves {
		e.res.P[j] *= scale
	}
}
