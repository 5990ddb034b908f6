package queue

// ByteQueueValidationInterface is a *type constraint* that ensures any type Q
// has these methods. We never store Q in a runtime interface here,
// we only use ByteQueueValidationInterface at compile time to ensure matching signatures.
type ByteQueueValidationInterface interface {
	// Append copies bytes from p to the tail of the queue until p is consumed
	// or the queue is full. It never blocks; bytes that do not fit are dropped.
	// It returns how many bytes were stored.
	Append(p []byte) int

	// DrainAll removes every queued byte and returns them in FIFO order along with their count.
	// If the queue is empty it should return nil and 0.
	DrainAll() ([]byte, int)

	// Drain removes up to len(dst) bytes in FIFO order, copies them into dst and
	// returns the count. Bytes that do not fit into dst stay queued.
	Drain(dst []byte) int

	// FreeSlots returns how many more bytes can be appended before the queue is full.
	FreeSlots() uint64

	// UsedSlots returns how many bytes are currently queued.
	UsedSlots() uint64

	// Capacity returns the fixed capacity limit set at construction.
	Capacity() uint64

	// Destroy releases all storage. It is safe to call more than once.
	Destroy()
}

// Validate is a compile-time check; call sites look like
//
//	var _ = queue.Validate[*Queue]
func Validate[Q ByteQueueValidationInterface](q Q) {}

// MaxCapacity is the largest configurable ceiling. The ring backends clamp larger requests.
const MaxCapacity uint64 = 1 << 32

// StorageSize returns the power of 2 ring storage needed to hold capacity bytes,
// clamped to MaxCapacity.
func StorageSize(capacity uint64) uint64 {
	if capacity > MaxCapacity {
		capacity = MaxCapacity
	}
	size := uint64(1)
	for size < capacity {
		size <<= 1
	}
	return size
}
