package network

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync"

	deep "github.com/patrikeh/go-deep"

	"github.com/kestrelchess/kestrel/internal/config"
	"github.com/kestrelchess/kestrel/internal/encoder"
)

// godeepOutputs is the width of the network's single output layer:
// value q, draw probability d, moves-left m, then one logit per policy
// output.
const godeepOutputs = 3 + encoder.PolicyOutputs

// godeepSpec is the JSON weight-file layout. Weights follow go-deep's
// Dump() layout: [layer][neuron][input].
type godeepSpec struct {
	Name         string        `json:"name"`
	HiddenLayers []int         `json:"hidden_layers"`
	Weights      [][][]float64 `json:"weights"`
}

// godeepNetwork wraps a go-deep multilayer perceptron. go-deep reuses
// per-neuron scratch state across Predict calls, so forward passes are
// serialized behind a mutex; batch throughput comes from the splitting
// backend running several computations at once instead.
type godeepNetwork struct {
	mu      sync.Mutex
	net     *deep.Neural
	name    string
	threads int
	batch   int
}

func newGodeepNetwork(w *Weights, opts *config.Options) (Network, error) {
	if w == nil {
		return nil, errors.New("godeep: a weights file is required")
	}
	var spec godeepSpec
	if err := json.Unmarshal(w.Data, &spec); err != nil {
		return nil, fmt.Errorf("godeep: parse weights %s: %w", w.Path, err)
	}
	if len(spec.HiddenLayers) == 0 {
		return nil, fmt.Errorf("godeep: weights %s declare no hidden layers", w.Path)
	}

	threads, err := opts.GetInt("threads", runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	batch, err := opts.GetInt("batch", 32)
	if err != nil {
		return nil, err
	}
	if threads < 1 || batch < 1 {
		return nil, fmt.Errorf("godeep: threads=%d batch=%d must be positive", threads, batch)
	}

	layout := make([]int, 0, len(spec.HiddenLayers)+1)
	layout = append(layout, spec.HiddenLayers...)
	layout = append(layout, godeepOutputs)

	net := deep.NewNeural(&deep.Config{
		Inputs:     encoder.InputSize,
		Layout:     layout,
		Activation: deep.ActivationReLU,
		Mode:       deep.ModeRegression,
		Weight:     deep.NewNormal(0.0, 0.1),
		Bias:       true,
	})
	if spec.Weights != nil {
		net.ApplyWeights(spec.Weights)
	}

	return &godeepNetwork{net: net, name: spec.Name, threads: threads, batch: batch}, nil
}

func (n *godeepNetwork) Capabilities() Capabilities {
	return Capabilities{HasWDL: true, HasMLH: true}
}

func (n *godeepNetwork) NewComputation() Computation {
	return &godeepComputation{net: n}
}

func (n *godeepNetwork) RunsOnCPU() bool { return true }

func (n *godeepNetwork) SuggestedThreads() int { return n.threads }

func (n *godeepNetwork) RecommendedBatchSize() int { return n.batch }

// predict runs one serialized forward pass.
func (n *godeepNetwork) predict(in []float64) []float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.net.Predict(in)
}

type godeepComputation struct {
	net     *godeepNetwork
	inputs  [][]float64
	outputs [][]float64
}

func (c *godeepComputation) AddInput(planes *encoder.Planes) {
	c.inputs = append(c.inputs, planes.Dense())
}

func (c *godeepComputation) ComputeBlocking() error {
	c.outputs = make([][]float64, len(c.inputs))
	for i, in := range c.inputs {
		raw := c.net.predict(in)
		// Predict returns the output layer's backing slice; copy before
		// the next pass overwrites it.
		out := make([]float64, len(raw))
		copy(out, raw)
		if len(out) != godeepOutputs {
			return fmt.Errorf("godeep: network produced %d outputs, want %d", len(out), godeepOutputs)
		}
		c.outputs[i] = out
	}
	return nil
}

func (c *godeepComputation) BatchSize() int { return len(c.inputs) }

func (c *godeepComputation) QVal(i int) float32 {
	return clamp(float32(c.outputs[i][0]), -1, 1)
}

func (c *godeepComputation) DVal(i int) float32 {
	return clamp(float32(c.outputs[i][1]), 0, 1)
}

func (c *godeepComputation) MVal(i int) float32 {
	m := float32(c.outputs[i][2])
	if m < 0 {
		return 0
	}
	return m
}

func (c *godeepComputation) PVal(i, policyIdx int) float32 {
	return float32(c.outputs[i][3+policyIdx])
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
