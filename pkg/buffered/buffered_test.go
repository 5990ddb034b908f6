package buffered

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferedQueue_ZeroCapacityAcceptsNothing(t *testing.T) {
	q := New(0)
	assert.Equal(t, uint64(0), q.Capacity())
	assert.Equal(t, 0, q.Append([]byte("abc")))
	assert.Equal(t, 0, q.Drain(make([]byte, 3)))

	out, n := q.DrainAll()
	assert.Nil(t, out)
	assert.Zero(t, n)
}

func TestBufferedQueue_AppendStopsAtFull(t *testing.T) {
	q := New(4)
	assert.Equal(t, 4, q.Append([]byte("abcdef")))
	assert.Equal(t, uint64(0), q.FreeSlots())

	dst := make([]byte, 2)
	assert.Equal(t, 2, q.Drain(dst))
	assert.Equal(t, []byte("ab"), dst)

	out, n := q.DrainAll()
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte("cd"), out)
}

func TestBufferedQueue_Destroy(t *testing.T) {
	q := New(4)
	q.Append([]byte("ab"))
	q.Destroy()
	q.Destroy()

	assert.Equal(t, uint64(0), q.UsedSlots())
	assert.Equal(t, 0, q.Append([]byte("c")))
}
