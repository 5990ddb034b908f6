package spscring

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSPSCRing_Basic(t *testing.T) {
	q := New(3)
	assert.Equal(t, 3, q.Append([]byte("abcde")))
	assert.Equal(t, uint64(3), q.UsedSlots())
	assert.Equal(t, 0, q.Append([]byte("z")))

	out, n := q.DrainAll()
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte("abc"), out)

	out, n = q.DrainAll()
	assert.Nil(t, out)
	assert.Zero(t, n)
}

// TestSPSCRing_ConcurrentOrder runs one writer goroutine against one reader
// and checks every byte arrives once and in order.
func TestSPSCRing_ConcurrentOrder(t *testing.T) {
	const total = 200000
	q := New(64)

	go func() {
		chunk := make([]byte, 7)
		next := 0
		for next < total {
			k := len(chunk)
			if total-next < k {
				k = total - next
			}
			for i := 0; i < k; i++ {
				chunk[i] = byte(next + i)
			}
			// Retry only what was dropped.
			n := q.Append(chunk[:k])
			if n == 0 {
				runtime.Gosched()
			}
			next += n
		}
	}()

	got := 0
	buf := make([]byte, 5)
	deadline := time.Now().Add(20 * time.Second)
	for got < total {
		require.True(t, time.Now().Before(deadline), "stalled at %d bytes", got)
		n := q.Drain(buf)
		if n == 0 {
			runtime.Gosched()
			continue
		}
		for i := 0; i < n; i++ {
			if buf[i] != byte(got) {
				t.Fatalf("order violation at byte %d: got %d want %d", got, buf[i], byte(got))
			}
			got++
		}
		assert.LessOrEqual(t, q.UsedSlots(), q.Capacity())
	}
}

func TestSPSCRing_Destroy(t *testing.T) {
	q := New(8)
	q.Append([]byte("abc"))
	q.Destroy()
	q.Destroy()

	assert.Equal(t, uint64(0), q.UsedSlots())
	assert.Equal(t, uint64(0), q.FreeSlots())
	assert.Equal(t, 0, q.Append([]byte("d")))
	out, n := q.DrainAll()
	assert.Nil(t, out)
	assert.Zero(t, n)
}
