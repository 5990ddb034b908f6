package buffered

import (
	"sync"

	"github.com/i5heu/GoByteQueue/internal/queue"
)

var _ = queue.Validate[*BufferedQueue]

// BufferedQueue is a byte queue on top of a buffered channel.
// The mutex keeps the bytes of one Append contiguous and makes a drain observe a single snapshot.
type BufferedQueue struct {
	mu        sync.Mutex
	ch        chan byte
	destroyed bool
}

// New creates a BufferedQueue of bufferSize bytes.
// A zero bufferSize gives an unbuffered channel; since nobody ever blocks on
// a receive, no send can succeed and the queue behaves as a zero-capacity buffer.
func New(bufferSize uint64) *BufferedQueue {
	return &BufferedQueue{
		ch: make(chan byte, bufferSize),
	}
}

// Append sends bytes without blocking and stops at the first send that would block.
func (q *BufferedQueue) Append(p []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.destroyed {
		return 0
	}
	for i, c := range p {
		select {
		case q.ch <- c:
		default:
			return i
		}
	}
	return len(p)
}

// DrainAll receives until the channel is empty.
func (q *BufferedQueue) DrainAll() ([]byte, int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.ch)
	if n == 0 {
		return nil, 0
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = <-q.ch
	}
	return out, n
}

// Drain receives at most len(dst) bytes.
func (q *BufferedQueue) Drain(dst []byte) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range dst {
		select {
		case dst[i] = <-q.ch:
		default:
			return i
		}
	}
	return len(dst)
}

func (q *BufferedQueue) FreeSlots() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.destroyed {
		return 0
	}
	return uint64(cap(q.ch) - len(q.ch))
}

func (q *BufferedQueue) UsedSlots() uint64 {
	return uint64(len(q.ch))
}

func (q *BufferedQueue) Capacity() uint64 {
	return uint64(cap(q.ch))
}

// Destroy empties the channel and rejects further appends.
func (q *BufferedQueue) Destroy() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.destroyed = true
	for len(q.ch) > 0 {
		<-q.ch
	}
}
