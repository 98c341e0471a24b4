// Package dump writes and reads point-in-time images of a gcheap.Heap.
//
// # File Format
//
//	┌──────────────────────────────────────────────┐
//	│ Header (52 bytes)                            │
//	│   magic "GCHD", version, compression,        │
//	│   generation, list head, live count,         │
//	│   root count, image size, body size, CRC32C  │
//	├──────────────────────────────────────────────┤
//	│ Roots: root count × uint32 offsets           │
//	├──────────────────────────────────────────────┤
//	│ Image blocks:                                │
//	│   [uncompressed uint32][compressed uint32]   │
//	│   [data...]  (compressed 0 = stored as is)   │
//	└──────────────────────────────────────────────┘
//
// The image is the heap region from offset 0 to the allocation cursor, so the
// offsets in the header, the roots and every slot's links index it directly.
// Blocks are compressed with LZ4 or ZSTD when that saves at least 10%.
//
// # Usage
//
//	f, _ := os.Create("heap.gchd")
//	_, err := dump.Write(ctx, f, h, dump.WithCompression(dump.CompressionZSTD))
//
//	img, err := dump.Read(ctx, f)
//	values, err := img.Values()
package dump
