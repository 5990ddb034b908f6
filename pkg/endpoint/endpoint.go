// Package endpoint exposes one shared byte queue through open/read/write/close
// callbacks. Every open sees the same queue; there is no per-handle buffer.
package endpoint

import (
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/i5heu/GoByteQueue/pkg/logger"
)

var (
	// ErrShortBuffer is returned by OnRead in ReadFullDrain mode when the
	// destination cannot hold every queued byte.
	ErrShortBuffer = errors.New("destination shorter than queued bytes")

	// ErrReleased is returned by every callback after Release.
	ErrReleased = errors.New("endpoint released")
)

// Queue is the part of a byte queue the endpoint drives.
type Queue interface {
	Append(p []byte) int
	DrainAll() ([]byte, int)
	Drain(dst []byte) int
	FreeSlots() uint64
	UsedSlots() uint64
	Destroy()
}

// ReadMode selects how OnRead treats a destination smaller than the queue.
type ReadMode int

const (
	// ReadBounded drains at most len(dst) bytes and leaves the rest queued.
	ReadBounded ReadMode = iota
	// ReadFullDrain drains everything or nothing: a short dst is rejected.
	ReadFullDrain
)

func (m ReadMode) String() string {
	switch m {
	case ReadBounded:
		return "bounded"
	case ReadFullDrain:
		return "full"
	default:
		return "unknown"
	}
}

// Option configures an Endpoint.
type Option func(*Endpoint)

// WithLogger sets the event sink.
func WithLogger(l *zap.Logger) Option {
	return func(e *Endpoint) { e.log = logger.For(l, logger.ComponentEndpoint) }
}

// WithReadMode sets the OnRead behavior.
func WithReadMode(m ReadMode) Option {
	return func(e *Endpoint) { e.mode = m }
}

// Endpoint dispatches byte-stream callbacks to a single queue.
type Endpoint struct {
	q        Queue
	log      *zap.Logger
	mode     ReadMode
	released atomic.Bool
}

// New wraps q. The endpoint takes ownership: Release destroys q.
func New(q Queue, opts ...Option) *Endpoint {
	e := &Endpoint{q: q, log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mode returns the configured read mode.
func (e *Endpoint) Mode() ReadMode {
	return e.mode
}

// OnOpen only logs.
func (e *Endpoint) OnOpen() error {
	if e.released.Load() {
		return ErrReleased
	}
	e.log.Info("opened")
	return nil
}

// OnClose only logs.
func (e *Endpoint) OnClose() error {
	if e.released.Load() {
		return ErrReleased
	}
	e.log.Info("closed")
	return nil
}

// OnRead moves queued bytes into dst and returns how many were written.
// An empty queue yields 0 and no error.
func (e *Endpoint) OnRead(dst []byte) (int, error) {
	if e.released.Load() {
		return 0, ErrReleased
	}
	available := e.q.UsedSlots()
	e.log.Info("read from", zap.Uint64("available", available))

	var n int
	switch e.mode {
	case ReadFullDrain:
		if uint64(len(dst)) < available {
			return 0, errors.Wrapf(ErrShortBuffer, "have %d bytes, destination holds %d", available, len(dst))
		}
		// dst holds everything queued at the check; bytes a writer adds
		// afterwards are taken only while they still fit.
		n = e.q.Drain(dst)
	default:
		n = e.q.Drain(dst)
	}
	e.log.Debug("read", zap.Int("bytes", n))
	return n, nil
}

// OnWrite appends src and returns how many bytes fit. A short count is not an error.
func (e *Endpoint) OnWrite(src []byte) (int, error) {
	if e.released.Load() {
		return 0, ErrReleased
	}
	e.log.Info("written to", zap.Uint64("free", e.q.FreeSlots()))
	n := e.q.Append(src)
	e.log.Debug("write", zap.Int("requested", len(src)), zap.Int("bytes", n))
	return n, nil
}

// ReadAll drains the whole queue into a new slice sized to fit.
func (e *Endpoint) ReadAll() ([]byte, error) {
	if e.released.Load() {
		return nil, ErrReleased
	}
	out, n := e.q.DrainAll()
	e.log.Debug("read", zap.Int("bytes", n))
	return out, nil
}

// Release destroys the queue. Calling it again does nothing.
func (e *Endpoint) Release() {
	if e.released.Swap(true) {
		return
	}
	e.q.Destroy()
}
