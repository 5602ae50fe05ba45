// File: core/concurrency/ring.go
// Package concurrency implements lock-free queues for event delivery.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SPSCRing is a bounded single-producer/single-consumer ring with plain
// atomic head/tail cursors, padded to prevent false sharing. Every
// per-watch queue has exactly one producer (the dispatcher) and one
// consumer (the watcher), so the MPMC sequence-cell machinery is not
// needed here.
// Implements api.Ring for cross-package consistency.

package concurrency

import (
	"sync/atomic"

	"github.com/momentics/hioload-inotify/api"
)

const cacheLinePad = 64

// Ensure compile-time interface compliance.
var _ api.Ring[any] = (*SPSCRing[any])(nil)

// SPSCRing is a bounded single-producer/single-consumer ring buffer.
type SPSCRing[T any] struct {
	head atomic.Uint64 // consumer cursor
	_    [cacheLinePad]byte
	tail atomic.Uint64 // producer cursor
	_    [cacheLinePad]byte
	mask uint64
	size uint64
	buf  []T
}

// NewSPSCRing allocates a ring of power-of-two capacity.
func NewSPSCRing[T any](capacity int) *SPSCRing[T] {
	if capacity < 2 {
		capacity = 2
	}
	size := uint64(1)
	for size < uint64(capacity) {
		size <<= 1
	}
	return &SPSCRing[T]{
		mask: size - 1,
		size: size,
		buf:  make([]T, size),
	}
}

// Enqueue adds item; returns false if full. Producer side only.
func (r *SPSCRing[T]) Enqueue(item T) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() == r.size {
		return false // full
	}
	r.buf[tail&r.mask] = item
	r.tail.Store(tail + 1)
	return true
}

// Dequeue removes and returns the oldest item; ok false if empty.
// Consumer side only.
func (r *SPSCRing[T]) Dequeue() (T, bool) {
	head := r.head.Load()
	if head == r.tail.Load() {
		var zero T
		return zero, false // empty
	}
	item := r.buf[head&r.mask]
	var zero T
	r.buf[head&r.mask] = zero // release reference
	r.head.Store(head + 1)
	return item, true
}

// Len returns number of items currently in buffer.
func (r *SPSCRing[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Cap returns fixed buffer capacity.
func (r *SPSCRing[T]) Cap() int {
	return int(r.size)
}
