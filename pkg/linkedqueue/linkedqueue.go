package linkedqueue

import (
	"sync"

	"github.com/i5heu/GoByteQueue/internal/queue"
)

var _ = queue.Validate[*LinkedQueue]

// node holds one queued byte. Each node is owned by its predecessor, the
// first one by the queue head.
type node struct {
	c    byte
	next *node
}

// LinkedQueue is a bounded FIFO byte queue backed by a singly linked node chain.
// A single mutex serializes Append and the drains.
type LinkedQueue struct {
	mu        sync.Mutex
	head      *node
	tail      *node
	capacity  uint64
	occupied  uint64
	destroyed bool
}

// New creates an empty LinkedQueue that holds at most capacity bytes.
func New(capacity uint64) *LinkedQueue {
	return &LinkedQueue{capacity: capacity}
}

// Append links one node per byte until p is consumed or the queue is full.
func (q *LinkedQueue) Append(p []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.destroyed {
		return 0
	}

	n := 0
	for n < len(p) && q.occupied < q.capacity {
		nd := &node{c: p[n]}
		// Link first, count second: a byte is either reachable and counted or neither.
		if q.tail == nil {
			q.head = nd
		} else {
			q.tail.next = nd
		}
		q.tail = nd
		q.occupied++
		n++
	}
	q.check()
	return n
}

// DrainAll unlinks every node from head to tail and returns the bytes.
func (q *LinkedQueue) DrainAll() ([]byte, int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.occupied == 0 {
		return nil, 0
	}
	out := make([]byte, q.occupied)
	n := q.popInto(out)
	q.check()
	return out[:n], n
}

// Drain unlinks up to len(dst) nodes into dst.
func (q *LinkedQueue) Drain(dst []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.popInto(dst)
	q.check()
	return n
}

// popInto must be called with mu held.
func (q *LinkedQueue) popInto(dst []byte) int {
	n := 0
	for n < len(dst) && q.head != nil {
		nd := q.head
		dst[n] = nd.c
		q.head = nd.next
		nd.next = nil
		q.occupied--
		n++
	}
	if q.head == nil {
		q.tail = nil
	}
	return n
}

// FreeSlots returns how many bytes can still be appended.
func (q *LinkedQueue) FreeSlots() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return 0
	}
	return q.capacity - q.occupied
}

// UsedSlots returns how many bytes are queued.
func (q *LinkedQueue) UsedSlots() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.occupied
}

// Capacity returns the capacity limit.
func (q *LinkedQueue) Capacity() uint64 {
	return q.capacity
}

// Destroy releases the chain node by node. The queue accepts no bytes afterwards.
func (q *LinkedQueue) Destroy() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for nd := q.head; nd != nil; {
		next := nd.next
		nd.next = nil
		nd = next
	}
	q.head, q.tail = nil, nil
	q.occupied = 0
	q.destroyed = true
}

// check panics if occupied drifted from the capacity bounds.
func (q *LinkedQueue) check() {
	if q.occupied > q.capacity {
		panic("linkedqueue: occupied exceeds capacity")
	}
	if (q.occupied == 0) != (q.head == nil) {
		panic("linkedqueue: occupied out of sync with node chain")
	}
}
