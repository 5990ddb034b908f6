package registrar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOps struct{ name string }

func (stubOps) OnOpen() error                 { return nil }
func (stubOps) OnClose() error                { return nil }
func (stubOps) OnRead([]byte) (int, error)    { return 0, nil }
func (stubOps) OnWrite(p []byte) (int, error) { return len(p), nil }

func TestTable_DynamicAllocationCountsDown(t *testing.T) {
	tbl := NewTable(nil)

	first, err := tbl.Register(0, "fjr", stubOps{})
	require.NoError(t, err)
	assert.Equal(t, DynamicMax, first)

	second, err := tbl.Register(0, "fjr2", stubOps{})
	require.NoError(t, err)
	assert.Equal(t, DynamicMax-1, second)
	assert.Equal(t, 2, tbl.Len())
}

func TestTable_DynamicRangeExhausted(t *testing.T) {
	tbl := NewTable(nil)
	for i := DynamicMin; i <= DynamicMax; i++ {
		_, err := tbl.Register(0, "dev", stubOps{})
		require.NoError(t, err)
	}
	_, err := tbl.Register(0, "one-too-many", stubOps{})
	assert.ErrorIs(t, err, ErrBusy)
}

func TestTable_StaticMajor(t *testing.T) {
	tbl := NewTable(nil)

	major, err := tbl.Register(60, "a", stubOps{})
	require.NoError(t, err)
	assert.Equal(t, 60, major)

	_, err = tbl.Register(60, "b", stubOps{})
	assert.ErrorIs(t, err, ErrBusy)

	_, err = tbl.Register(MaxMajor+1, "c", stubOps{})
	assert.ErrorIs(t, err, ErrInvalidMajor)
	_, err = tbl.Register(-1, "c", stubOps{})
	assert.ErrorIs(t, err, ErrInvalidMajor)
}

func TestTable_DynamicSkipsStaticHolder(t *testing.T) {
	tbl := NewTable(nil)
	_, err := tbl.Register(DynamicMax, "static", stubOps{})
	require.NoError(t, err)

	major, err := tbl.Register(0, "dynamic", stubOps{})
	require.NoError(t, err)
	assert.Equal(t, DynamicMax-1, major)
}

func TestTable_LookupAndUnregister(t *testing.T) {
	tbl := NewTable(nil)
	ops := stubOps{name: "fjr"}
	major, err := tbl.Register(0, "fjr", ops)
	require.NoError(t, err)

	got, ok := tbl.Lookup(major)
	require.True(t, ok)
	assert.Equal(t, ops, got)

	assert.ErrorIs(t, tbl.Unregister(major, "other"), ErrNotRegistered)
	require.NoError(t, tbl.Unregister(major, "fjr"))
	assert.ErrorIs(t, tbl.Unregister(major, "fjr"), ErrNotRegistered)

	_, ok = tbl.Lookup(major)
	assert.False(t, ok)

	// The number is free again.
	again, err := tbl.Register(0, "fjr", ops)
	require.NoError(t, err)
	assert.Equal(t, major, again)
}

func TestTable_NilOperations(t *testing.T) {
	_, err := NewTable(nil).Register(0, "fjr", nil)
	assert.Error(t, err)
}
