package ringqueue

import (
	"sync"

	"github.com/i5heu/GoByteQueue/internal/queue"
)

var _ = queue.Validate[*RingQueue]

// RingQueue is a bounded FIFO byte queue backed by a fixed ring buffer.
type RingQueue struct {
	mu       sync.Mutex
	buffer   []byte
	mask     uint64 // fast modulo (len(buffer) - 1)
	capacity uint64 // ceiling, may be smaller than len(buffer)
	head     uint64 // next read position
	tail     uint64 // next write position
}

// New creates a new RingQueue holding at most capacity bytes.
// Storage is rounded up to a power of 2; the ceiling stays exactly capacity,
// up to queue.MaxCapacity.
func New(capacity uint64) *RingQueue {
	if capacity > queue.MaxCapacity {
		capacity = queue.MaxCapacity
	}
	size := queue.StorageSize(capacity)
	return &RingQueue{
		buffer:   make([]byte, size),
		mask:     size - 1,
		capacity: capacity,
	}
}

// used must be called with mu held.
func (q *RingQueue) used() uint64 {
	return q.tail - q.head
}

// Append copies bytes from p until p is consumed or the ceiling is reached.
func (q *RingQueue) Append(p []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.buffer == nil {
		return 0
	}
	free := q.capacity - q.used()
	n := uint64(len(p))
	if n > free {
		n = free
	}
	for i := uint64(0); i < n; i++ {
		q.buffer[(q.tail+i)&q.mask] = p[i]
	}
	q.tail += n
	q.check()
	return int(n)
}

// DrainAll removes and returns every queued byte.
func (q *RingQueue) DrainAll() ([]byte, int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	used := q.used()
	if used == 0 {
		return nil, 0
	}
	out := make([]byte, used)
	n := q.copyOut(out)
	return out, n
}

// Drain removes up to len(dst) bytes into dst.
func (q *RingQueue) Drain(dst []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.copyOut(dst)
}

// copyOut must be called with mu held.
func (q *RingQueue) copyOut(dst []byte) int {
	n := q.used()
	if n > uint64(len(dst)) {
		n = uint64(len(dst))
	}
	for i := uint64(0); i < n; i++ {
		dst[i] = q.buffer[(q.head+i)&q.mask]
	}
	q.head += n
	q.check()
	return int(n)
}

// FreeSlots returns how many bytes can still be appended.
func (q *RingQueue) FreeSlots() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.buffer == nil {
		return 0
	}
	return q.capacity - q.used()
}

// UsedSlots returns how many bytes are queued.
func (q *RingQueue) UsedSlots() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.used()
}

// Capacity returns the capacity limit.
func (q *RingQueue) Capacity() uint64 {
	return q.capacity
}

// Destroy drops the ring storage. The queue accepts no bytes afterwards.
func (q *RingQueue) Destroy() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buffer = nil
	q.head, q.tail = 0, 0
}

func (q *RingQueue) check() {
	if q.tail < q.head || q.used() > q.capacity {
		panic("ringqueue: occupied out of bounds")
	}
}
