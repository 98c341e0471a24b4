package arena

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type budget struct {
	limit int64
	used  int64
}

func (b *budget) AcquireMemory(amount int64) error {
	if b.used+amount > b.limit {
		return errors.New("budget exhausted")
	}
	b.used += amount
	return nil
}

func (b *budget) ReleaseMemory(amount int64) { b.used -= amount }

func TestRegion_New(t *testing.T) {
	t.Run("default capacity", func(t *testing.T) {
		r, err := New(0)
		require.NoError(t, err)
		defer r.Release()

		assert.Equal(t, DefaultCapacity, r.Capacity())
		assert.Equal(t, uint32(Base), r.Cursor())
		assert.Equal(t, 0, r.Used())
	})

	t.Run("capacity rounded to alignment", func(t *testing.T) {
		r, err := New(1027)
		require.NoError(t, err)
		defer r.Release()

		assert.Equal(t, 1024, r.Capacity())
	})

	t.Run("too small", func(t *testing.T) {
		_, err := New(Base)
		assert.Error(t, err)
	})
}

func TestRegion_Alloc(t *testing.T) {
	r, err := New(64)
	require.NoError(t, err)
	defer r.Release()

	off, err := r.Alloc(24)
	require.NoError(t, err)
	assert.Equal(t, uint32(Base), off)

	off, err = r.Alloc(3)
	require.NoError(t, err)
	assert.Equal(t, uint32(Base+24), off)
	assert.Equal(t, uint32(Base+32), r.Cursor(), "allocations are aligned")

	_, err = r.Alloc(0)
	assert.Error(t, err)

	_, err = r.Alloc(24)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Free())

	_, err = r.Alloc(1)
	assert.ErrorIs(t, err, ErrOutOfMemory)

	stats := r.Stats()
	assert.Equal(t, uint64(3), stats.Allocs)
	assert.Equal(t, uint64(64), stats.HighWater)
}

func TestRegion_AllocZeroesReusedSpace(t *testing.T) {
	r, err := New(64)
	require.NoError(t, err)
	defer r.Release()

	off, err := r.Alloc(16)
	require.NoError(t, err)
	b := r.Bytes(off, 16)
	for i := range b {
		b[i] = 0xFF
	}

	require.NoError(t, r.SetCursor(Base))
	off, err = r.Alloc(16)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 16), r.Bytes(off, 16))
	assert.Equal(t, uint64(1), r.Stats().Rewinds)
}

func TestRegion_SetCursor(t *testing.T) {
	r, err := New(64)
	require.NoError(t, err)
	defer r.Release()

	assert.ErrorIs(t, r.SetCursor(0), ErrInvalidCursor)
	assert.ErrorIs(t, r.SetCursor(72), ErrInvalidCursor)
	assert.ErrorIs(t, r.SetCursor(13), ErrInvalidCursor)
	require.NoError(t, r.SetCursor(64))
	assert.True(t, r.Contains(Base))
	assert.False(t, r.Contains(64))
}

func TestRegion_MemoryAcquirer(t *testing.T) {
	b := &budget{limit: 1024}

	r, err := New(1024, WithMemoryAcquirer(b))
	require.NoError(t, err)
	assert.Equal(t, int64(1024), b.used)

	_, err = New(64, WithMemoryAcquirer(b))
	assert.Error(t, err)

	require.NoError(t, r.Release())
	assert.Equal(t, int64(0), b.used)

	// Release is idempotent and does not release twice.
	require.NoError(t, r.Release())
	assert.Equal(t, int64(0), b.used)

	_, err = r.Alloc(8)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRegion_OffHeap(t *testing.T) {
	r, err := New(4096, WithOffHeap())
	require.NoError(t, err)
	assert.True(t, r.OffHeap())

	off, err := r.Alloc(24)
	require.NoError(t, err)
	r.Bytes(off, 24)[0] = 7
	assert.Equal(t, byte(7), r.Bytes(off, 24)[0])

	require.NoError(t, r.Release())
	assert.False(t, r.OffHeap())
	assert.Zero(t, r.Usage())
}
