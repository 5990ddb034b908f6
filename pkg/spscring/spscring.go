package spscring

import (
	"sync/atomic"

	"github.com/i5heu/GoByteQueue/internal/queue"
)

var _ = queue.Validate[*SPSCRing]

// SPSCRing is a lock‑free single‑producer/single‑consumer byte ring with padding to reduce false sharing.
// Append may be called from one goroutine and Drain/DrainAll from one other goroutine.
type SPSCRing struct {
	_pad0     [8]uint64   // padding to avoid false sharing
	tail      uint64      // next write position, written only by the producer
	_pad1     [7]uint64   // complete a cache line
	head      uint64      // next read position, written only by the consumer
	_pad2     [7]uint64   // additional padding
	buffer    []byte      // ring buffer
	mask      uint64      // fast modulo (len(buffer) - 1)
	capacity  uint64      // ceiling, may be smaller than len(buffer)
	destroyed atomic.Bool // set once by Destroy
}

// New creates a new SPSCRing holding at most capacity bytes (storage rounded up to a power of 2).
func New(capacity uint64) *SPSCRing {
	if capacity > queue.MaxCapacity {
		capacity = queue.MaxCapacity
	}
	size := queue.StorageSize(capacity)
	return &SPSCRing{
		buffer:   make([]byte, size),
		mask:     size - 1,
		capacity: capacity,
	}
}

// Append copies bytes from p into free slots and publishes them with one store.
func (q *SPSCRing) Append(p []byte) int {
	if q.destroyed.Load() {
		return 0
	}
	tail := q.tail // producer-owned
	head := atomic.LoadUint64(&q.head)
	free := q.capacity - (tail - head)
	n := uint64(len(p))
	if n > free {
		n = free
	}
	for i := uint64(0); i < n; i++ {
		q.buffer[(tail+i)&q.mask] = p[i]
	}
	atomic.StoreUint64(&q.tail, tail+n)
	return int(n)
}

// DrainAll removes every byte published at the time of the call.
func (q *SPSCRing) DrainAll() ([]byte, int) {
	if q.destroyed.Load() {
		return nil, 0
	}
	head := q.head // consumer-owned
	tail := atomic.LoadUint64(&q.tail)
	used := tail - head
	if used == 0 {
		return nil, 0
	}
	out := make([]byte, used)
	n := q.copyOut(head, tail, out)
	return out[:n], n
}

// Drain removes up to len(dst) published bytes into dst.
func (q *SPSCRing) Drain(dst []byte) int {
	if q.destroyed.Load() {
		return 0
	}
	return q.copyOut(q.head, atomic.LoadUint64(&q.tail), dst)
}

func (q *SPSCRing) copyOut(head, tail uint64, dst []byte) int {
	n := tail - head
	if n > uint64(len(dst)) {
		n = uint64(len(dst))
	}
	for i := uint64(0); i < n; i++ {
		dst[i] = q.buffer[(head+i)&q.mask]
	}
	atomic.StoreUint64(&q.head, head+n)
	return int(n)
}

// FreeSlots returns how many slots are free.
func (q *SPSCRing) FreeSlots() uint64 {
	if q.destroyed.Load() {
		return 0
	}
	// Approximate: capacity minus the number of used slots.
	return q.capacity - q.UsedSlots()
}

// UsedSlots returns an approximate count of used slots.
func (q *SPSCRing) UsedSlots() uint64 {
	// Load head first so the difference never goes negative.
	head := atomic.LoadUint64(&q.head)
	tail := atomic.LoadUint64(&q.tail)
	if used := tail - head; used < q.capacity {
		return used
	}
	return q.capacity
}

// Capacity returns the capacity limit.
func (q *SPSCRing) Capacity() uint64 {
	return q.capacity
}

// Destroy marks the ring unusable and releases its storage.
// Producer and consumer must have stopped before Destroy is called.
func (q *SPSCRing) Destroy() {
	if q.destroyed.Swap(true) {
		return
	}
	atomic.StoreUint64(&q.head, atomic.LoadUint64(&q.tail))
	q.buffer = nil
}
