package arena

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/gcheap/internal/mmap"
)

var (
	// ErrOutOfMemory is returned when the region cannot fit an allocation.
	ErrOutOfMemory = errors.New("arena: out of memory")
	// ErrClosed is returned when using a region after Free.
	ErrClosed = errors.New("arena: closed")
	// ErrInvalidCursor is returned by SetCursor for offsets outside the region.
	ErrInvalidCursor = errors.New("arena: invalid cursor")
)

const (
	// DefaultCapacity is the default size of a region (1MB).
	DefaultCapacity = 1024 * 1024
	// Alignment is the alignment of every allocation.
	Alignment = 8
	// Base is the first offset handed out. Offsets below it are reserved as null.
	Base = Alignment
	// MaxCapacity keeps every offset addressable by a uint32.
	MaxCapacity = math.MaxUint32 &^ (Alignment - 1)
)

// MemoryAcquirer reserves memory from a shared budget.
type MemoryAcquirer interface {
	AcquireMemory(amount int64) error
	ReleaseMemory(amount int64)
}

// Stats tracks region usage.
//
//   - Allocs: cumulative successful allocations
//   - BytesReserved: capacity held by the region
//   - HighWater: largest cursor position ever reached
//   - Rewinds: number of SetCursor calls that moved the cursor back
type Stats struct {
	Allocs        uint64
	BytesReserved uint64
	HighWater     uint64
	Rewinds       uint64
}

// Region is a contiguous fixed-capacity memory region with a bump cursor.
type Region struct {
	buf      []byte
	mapping  *mmap.Mapping
	cursor   uint32
	acquirer MemoryAcquirer
	offHeap  bool
	stats    Stats
}

// Option is a configuration option for Region.
type Option func(*Region)

// WithMemoryAcquirer reserves the region's capacity from acquirer.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(r *Region) {
		r.acquirer = acquirer
	}
}

// WithOffHeap places the region in an anonymous memory mapping.
func WithOffHeap() Option {
	return func(r *Region) {
		r.offHeap = true
	}
}

// New creates a region of capacity bytes, rounded down to Alignment.
// A non-positive capacity selects DefaultCapacity.
func New(capacity int, opts ...Option) (*Region, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if uint64(capacity) > MaxCapacity {
		return nil, fmt.Errorf("arena: capacity %d exceeds %d", capacity, uint64(MaxCapacity))
	}
	capacity &^= Alignment - 1
	if capacity <= Base {
		return nil, fmt.Errorf("arena: capacity %d leaves no usable space", capacity)
	}

	r := &Region{cursor: Base}
	for _, opt := range opts {
		opt(r)
	}

	if r.acquirer != nil {
		if err := r.acquirer.AcquireMemory(int64(capacity)); err != nil {
			return nil, fmt.Errorf("arena: reserve %d bytes: %w", capacity, err)
		}
	}

	if r.offHeap {
		m, err := mmap.MapAnon(capacity)
		if err != nil {
			if r.acquirer != nil {
				r.acquirer.ReleaseMemory(int64(capacity))
			}
			return nil, fmt.Errorf("failed to map anonymous memory for arena: %w", err)
		}
		// List order is unrelated to address order once slots are reused.
		_ = m.Advise(mmap.AccessRandom)
		r.mapping = m
		r.buf = m.Bytes()
	} else {
		r.buf = make([]byte, capacity)
	}

	r.stats.BytesReserved = uint64(capacity)
	r.stats.HighWater = Base
	return r, nil
}

// Alloc carves size bytes (rounded up to Alignment) from the cursor and
// returns their offset. The memory is zeroed.
func (r *Region) Alloc(size int) (uint32, error) {
	if r.buf == nil {
		return 0, ErrClosed
	}
	if size <= 0 {
		return 0, fmt.Errorf("arena: invalid allocation size %d", size)
	}

	aligned := (uint64(size) + Alignment - 1) &^ (Alignment - 1)
	next := uint64(r.cursor) + aligned
	if next > uint64(len(r.buf)) {
		return 0, fmt.Errorf("%w: need %d bytes, %d free", ErrOutOfMemory, aligned, r.Free())
	}

	off := r.cursor
	r.cursor = uint32(next)
	clear(r.buf[off:r.cursor])

	r.stats.Allocs++
	if next > r.stats.HighWater {
		r.stats.HighWater = next
	}
	return off, nil
}

// Bytes returns the size bytes starting at off.
func (r *Region) Bytes(off uint32, size int) []byte {
	return r.buf[off : int(off)+size : int(off)+size]
}

// Cursor returns the next offset Alloc would hand out.
func (r *Region) Cursor() uint32 { return r.cursor }

// SetCursor moves the cursor to off. Everything at or beyond off is
// considered free afterwards.
func (r *Region) SetCursor(off uint32) error {
	if r.buf == nil {
		return ErrClosed
	}
	if off < Base || uint64(off) > uint64(len(r.buf)) || off%Alignment != 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCursor, off)
	}
	if off < r.cursor {
		r.stats.Rewinds++
	}
	r.cursor = off
	return nil
}

// Capacity returns the size of the region in bytes.
func (r *Region) Capacity() int { return len(r.buf) }

// Used returns the number of bytes between Base and the cursor.
func (r *Region) Used() int {
	if r.buf == nil {
		return 0
	}
	return int(r.cursor - Base)
}

// Free returns the number of bytes left behind the cursor.
func (r *Region) Free() int {
	if r.buf == nil {
		return 0
	}
	return len(r.buf) - int(r.cursor)
}

// Contains reports whether off lies in the allocated part of the region.
func (r *Region) Contains(off uint32) bool {
	return off >= Base && off < r.cursor
}

// OffHeap reports whether the region lives in an anonymous mapping.
func (r *Region) OffHeap() bool { return r.mapping != nil }

// Stats returns the current region statistics.
func (r *Region) Stats() Stats { return r.stats }

// Release frees the region's memory. It is idempotent. All slices obtained
// from the region become invalid.
func (r *Region) Release() error {
	if r.buf == nil {
		return nil
	}

	if r.acquirer != nil {
		r.acquirer.ReleaseMemory(int64(r.stats.BytesReserved))
	}

	var err error
	if r.mapping != nil {
		err = r.mapping.Close()
		r.mapping = nil
	}
	r.buf = nil
	r.cursor = Base
	r.stats.BytesReserved = 0
	return err
}

// Usage returns the used share of the region in percent.
func (r *Region) Usage() float64 {
	if r.buf == nil {
		return 0
	}
	return float64(r.Used()) / float64(len(r.buf)) * 100
}
