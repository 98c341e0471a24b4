// Package arena provides the fixed-capacity byte region that backs a heap.
//
// A Region hands out space with a bump cursor. Offset 0 (the first
// Alignment bytes) is reserved so that a zero offset can serve as the null
// reference. The cursor never leaves [Base, Capacity]; the only way to move
// it backwards is SetCursor, which the compactor uses after packing
// survivors at the front of the region.
//
// # Backing Memory
//
//   - default: a Go byte slice
//   - WithOffHeap: an anonymous mmap, invisible to the Go garbage collector
//
// # Memory Budget
//
// When a MemoryAcquirer is configured, the full capacity is reserved from it
// in New and released again by Release. A refused reservation fails New.
//
// # Safety
//
// A Region is owned by a single heap and is not safe for concurrent use.
// All methods return errors instead of panicking, except Slot/Bytes which,
// like slice indexing, panic on offsets the region never handed out.
package arena
