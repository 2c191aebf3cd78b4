package backend

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kestrelchess/kestrel/internal/config"
)

// NewBatchSplitting wraps a backend so that one logical computation fans
// out across several inner computations, each capped at the inner
// backend's recommended batch size and run with at most SuggestedThreads
// forward passes in flight. Networks behind it must tolerate concurrent
// computations.
func NewBatchSplitting(inner Backend) Backend {
	return &splitBackend{inner: inner}
}

type splitBackend struct {
	inner Backend
}

func (b *splitBackend) Attributes() Attributes { return b.inner.Attributes() }

func (b *splitBackend) UpdateConfiguration(opts *config.Options) (UpdateResult, error) {
	return b.inner.UpdateConfiguration(opts)
}

func (b *splitBackend) NewComputation() Computation {
	attrs := b.inner.Attributes()
	chunk := attrs.RecommendedBatchSize
	if chunk < 1 {
		chunk = 1
	}
	threads := attrs.SuggestedThreads
	if threads < 1 {
		threads = 1
	}
	return &splitComputation{
		inner:   b.inner,
		chunk:   chunk,
		threads: threads,
		max:     attrs.MaximumBatchSize,
	}
}

type splitComputation struct {
	inner   Backend
	chunk   int
	threads int
	max     int

	mu    sync.Mutex
	comps []Computation
	total int
}

func (c *splitComputation) AddInput(pos EvalPosition, res EvalResultPtr) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.total >= c.max {
		panic("backend: batch overflow across split computations")
	}
	if c.total%c.chunk == 0 {
		c.comps = append(c.comps, c.inner.NewComputation())
	}
	idx := c.total
	c.total++
	c.comps[len(c.comps)-1].AddInput(pos, res)
	return idx
}

func (c *splitComputation) BatchSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

func (c *splitComputation) ComputeBlocking(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.threads)
	for _, comp := range c.comps {
		comp := comp
		g.Go(func() error {
			return comp.ComputeBlocking(ctx)
		})
	}
	return g.Wait()
}
