package testutil

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/gcheap/internal/value"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a random int in [0, n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Int31 returns a random non-negative int32.
func (r *RNG) Int31() int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Int31()
}

// Float64 returns a random float64 in [0, 1).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Scalar returns a random Int, Float, Double or Char value.
func (r *RNG) Scalar() value.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.rand.Intn(4) {
	case 0:
		return value.Int(r.rand.Int31() - 1<<30)
	case 1:
		return value.Float(float32(r.rand.NormFloat64() * 100))
	case 2:
		return value.Double(r.rand.NormFloat64() * 1e6)
	default:
		return value.Char(uint8(r.rand.Intn(256)))
	}
}

// Union returns a random union with a member matching its tag.
func (r *RNG) Union() value.Union {
	member := r.Scalar()
	var tag value.UnionTag
	switch member.Kind() {
	case value.KindInt:
		tag = value.UnionInt
	case value.KindFloat:
		tag = value.UnionFloat
	case value.KindDouble:
		tag = value.UnionDouble
	default:
		tag = value.UnionChar
	}
	return value.Union{Tag: tag, Member: member}
}
