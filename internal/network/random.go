package network

import (
	"math"

	"github.com/kestrelchess/kestrel/internal/config"
	"github.com/kestrelchess/kestrel/internal/encoder"
)

// randomNetwork produces deterministic pseudo-random evaluations derived
// from a hash of the input planes. The same position always evaluates the
// same way for a given seed, which makes it usable both as a weight-free
// default backend and as a fixture in tests.
type randomNetwork struct {
	seed uint64
}

func newRandomNetwork(_ *Weights, opts *config.Options) (Network, error) {
	seed, err := opts.GetInt("seed", 0)
	if err != nil {
		return nil, err
	}
	return &randomNetwork{seed: uint64(seed)}, nil
}

func (n *randomNetwork) Capabilities() Capabilities {
	return Capabilities{HasWDL: true, HasMLH: false}
}

func (n *randomNetwork) NewComputation() Computation {
	return &randomComputation{net: n}
}

func (n *randomNetwork) RunsOnCPU() bool { return true }

func (n *randomNetwork) SuggestedThreads() int { return 1 }

func (n *randomNetwork) RecommendedBatchSize() int { return 256 }

type randomComputation struct {
	net    *randomNetwork
	hashes []uint64
}

func (c *randomComputation) AddInput(planes *encoder.Planes) {
	h := c.net.seed
	for i := range planes {
		h = mix(h ^ planes[i].Mask)
		h = mix(h ^ uint64(math.Float32bits(planes[i].Value)))
	}
	c.hashes = append(c.hashes, h)
}

func (c *randomComputation) ComputeBlocking() error { return nil }

func (c *randomComputation) BatchSize() int { return len(c.hashes) }

func (c *randomComputation) QVal(i int) float32 {
	return 2*unit(mix(c.hashes[i]^0x51)) - 1
}

func (c *randomComputation) DVal(i int) float32 {
	q := c.QVal(i)
	max := 1 - float32(math.Abs(float64(q)))
	return max * unit(mix(c.hashes[i]^0xd1))
}

func (c *randomComputation) MVal(i int) float32 { return 0 }

func (c *randomComputation) PVal(i, policyIdx int) float32 {
	return unit(mix(c.hashes[i] ^ uint64(policyIdx)*0x9e3779b97f4a7c15))
}

// mix is the splitmix64 finalizer.
func mix(h uint64) uint64 {
	h += 0x9e3779b97f4a7c15
	h = (h ^ (h >> 30)) * 0xbf58476d1ce4e5b9
	h = (h ^ (h >> 27)) * 0x94d049bb133111eb
	return h ^ (h >> 31)
}

// unit maps a hash to [0, 1).
func unit(h uint64) float32 {
	return float32(h>>40) / float32(1<<24)
}
