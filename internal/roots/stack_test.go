package roots

import (
	"testing"

	"github.com/hupe1980/gcheap/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack_PushPop(t *testing.T) {
	s := New(0)
	assert.Equal(t, DefaultCapacity, s.Cap())

	require.NoError(t, s.Push(8))
	require.NoError(t, s.Push(value.Nil))
	require.NoError(t, s.Push(32))
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []value.Ref{8, value.Nil, 32}, s.Entries())

	r, err := s.Pop()
	require.NoError(t, err)
	assert.Equal(t, value.Ref(32), r)

	r, ok := s.At(0)
	assert.True(t, ok)
	assert.Equal(t, value.Ref(8), r)

	_, ok = s.At(2)
	assert.False(t, ok)
}

func TestStack_Bounds(t *testing.T) {
	s := New(DefaultCapacity)
	for i := 0; i < DefaultCapacity; i++ {
		require.NoError(t, s.Push(value.Ref(i+1)))
	}
	assert.ErrorIs(t, s.Push(1), ErrOverflow)
	assert.Equal(t, DefaultCapacity, s.Len())

	for i := DefaultCapacity; i > 0; i-- {
		r, err := s.Pop()
		require.NoError(t, err)
		assert.Equal(t, value.Ref(i), r)
	}
	_, err := s.Pop()
	assert.ErrorIs(t, err, ErrUnderflow)
}

func TestStack_Rewrite(t *testing.T) {
	s := New(4)
	require.NoError(t, s.Push(8))
	require.NoError(t, s.Push(32))
	require.NoError(t, s.Push(8))

	s.Rewrite(func(r value.Ref) value.Ref {
		if r == 8 {
			return 56
		}
		return r
	})
	assert.Equal(t, []value.Ref{56, 32, 56}, s.Entries())

	s.Reset()
	assert.Equal(t, 0, s.Len())
}
