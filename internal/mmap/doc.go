// Package mmap provides anonymous read-write memory mappings.
//
// A heap arena can be placed in an off-heap mapping so that its region is
// neither scanned nor moved by the Go runtime. The arena then has a stable
// base address for its whole lifetime and the pages are returned to the OS
// as soon as the heap is closed.
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with MAP_ANON|MAP_PRIVATE and madvise(2)
//   - Windows: VirtualAlloc/VirtualFree (Advise is a no-op)
//
// # Thread Safety
//
// Close is idempotent. Callers must not access Bytes() after Close returns.
package mmap
