// Package objpool provides a fixed-capacity object pool addressed by dense
// handles. Free slots are tracked by a Lamport ring buffer, which makes the
// pool safe for one allocating and one releasing goroutine running
// concurrently without locks (in the reactor both roles belong to the
// driver).
package objpool

import "sync/atomic"

const cacheLine = 64

// Handle identifies an allocated slot. Handles are dense indices and fit
// the 64-bit user-data word of a submission queue entry.
type Handle uint32

type Pool[T any] struct {
	slots []T
	free  indexRing
}

// New creates a pool of at least capacity slots: capacity is rounded up to a
// power of two, and to no less than 2.
func New[T any](capacity uint32) *Pool[T] {
	capacity = ceilPow2(capacity)

	p := &Pool[T]{
		slots: make([]T, capacity),
	}
	p.free.init(capacity)

	return p
}

// Allocate reserves a slot and stores v in it. ok=false means the pool is
// momentarily exhausted; since the releaser returns slots promptly, callers
// retry.
func (p *Pool[T]) Allocate(v T) (Handle, bool) {
	idx, ok := p.free.dequeue()
	if !ok {
		return 0, false
	}

	p.slots[idx] = v

	return Handle(idx), true
}

// Get resolves a handle. The pointer stays valid until Release.
func (p *Pool[T]) Get(h Handle) *T {
	return &p.slots[h]
}

// Release clears the slot and returns it to the free list. Releasing a
// handle twice corrupts the pool.
func (p *Pool[T]) Release(h Handle) {
	var zero T
	p.slots[h] = zero
	p.free.enqueue(uint32(h))
}

// Capacity returns the real (rounded) number of slots.
func (p *Pool[T]) Capacity() uint32 {
	return uint32(len(p.slots))
}

// indexRing is a Lamport single-producer single-consumer ring of free slot
// indices. head/tail are only ever advanced by their own side; the cached
// counterpart avoids a cross-core load on every call.
type indexRing struct {
	head       atomic.Uint32
	cachedTail uint32
	_          [cacheLine - 8]byte

	// the releaser side needs no fullness check: the ring is as large as
	// the slot array, so it can never overflow
	tail atomic.Uint32
	_    [cacheLine - 4]byte

	buf  []uint32
	mask uint32
}

func (r *indexRing) init(capacity uint32) {
	r.buf = make([]uint32, capacity)
	r.mask = capacity - 1

	// every slot starts out free
	for i := uint32(0); i < capacity; i++ {
		r.buf[i] = i
	}
	r.tail.Store(capacity)
}

func (r *indexRing) enqueue(idx uint32) {
	tail := r.tail.Load()
	r.buf[tail&r.mask] = idx
	r.tail.Store(tail + 1)
}

func (r *indexRing) dequeue() (idx uint32, ok bool) {
	head := r.head.Load()
	if head == r.cachedTail {
		r.cachedTail = r.tail.Load()
		if head == r.cachedTail {
			return 0, false
		}
	}

	idx = r.buf[head&r.mask]
	r.head.Store(head + 1)

	return idx, true
}

func ceilPow2(v uint32) uint32 {
	if v < 2 {
		return 2
	}

	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16

	return v + 1
}
