package backend

import (
	"fmt"
	"sync/atomic"
)

// AtomicVector is an append-only container with a fixed capacity. Each
// Append hands out a unique, stable index; the backing array never
// reallocates, so indices issued to concurrent writers stay valid. Reads
// must happen after the writes they observe (ComputeBlocking is the
// barrier in this package).
type AtomicVector[T any] struct {
	items []T
	next  atomic.Int64
}

// NewAtomicVector creates a vector holding at most capacity items.
func NewAtomicVector[T any](capacity int) *AtomicVector[T] {
	return &AtomicVector[T]{items: make([]T, capacity)}
}

// Append stores an item and returns its index. Exceeding the capacity is a
// caller error and panics.
func (v *AtomicVector[T]) Append(item T) int {
	idx := int(v.next.Add(1)) - 1
	if idx >= len(v.items) {
		panic(fmt.Sprintf("backend: batch overflow: capacity %d exceeded", len(v.items)))
	}
	v.items[idx] = item
	return idx
}

// Get returns a pointer to the item at index i.
func (v *AtomicVector[T]) Get(i int) *T {
	return &v.items[i]
}

// Len returns the number of appended items.
func (v *AtomicVector[T]) Len() int {
	n := int(v.next.Load())
	if n > len(v.items) {
		return len(v.items)
	}
	return n
}

// Cap returns the fixed capacity.
func (v *AtomicVector[T]) Cap() int {
	return len(v.items)
}
