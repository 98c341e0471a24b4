package testutil

import (
	"testing"

	"github.com/hupe1980/gcheap/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReset(t *testing.T) {
	rng := NewRNG(7)
	first := []int{rng.Intn(1000), rng.Intn(1000), rng.Intn(1000)}

	rng.Reset()
	second := []int{rng.Intn(1000), rng.Intn(1000), rng.Intn(1000)}

	assert.Equal(t, first, second)
	assert.Equal(t, int64(7), rng.Seed())
}

func TestScalar(t *testing.T) {
	rng := NewRNG(1)
	for i := 0; i < 100; i++ {
		assert.True(t, rng.Scalar().Kind().Scalar())
	}
}

func TestUnion(t *testing.T) {
	rng := NewRNG(2)
	for i := 0; i < 100; i++ {
		u := rng.Union()
		_, err := value.NewUnion(u.Tag, u.Member)
		require.NoError(t, err)
	}
}
