// Package value defines the closed set of heap value variants and the
// fixed-size slot encoding used to store them inside an arena.
//
// # Variants
//
//   - Int, Float, Double, Char: scalars
//   - Pair: two non-owning references to other values
//   - Enum: an int32 discriminant
//   - Union: a tag in {UnionInt, UnionFloat, UnionDouble, UnionChar} plus the member it selects
//
// # Slot Layout
//
// Every value occupies SlotSize bytes:
//
//	┌──────┬──────┬──────────┬──────────┬───────────────┬───────────┬──────────────────┐
//	│ kind │ mark │ reserved │ next u32 │ head/tag u32  │ tail u32  │ scalar payload 8B│
//	│  0   │  1   │   2..3   │  4..7    │    8..11      │  12..15   │      16..23      │
//	└──────┴──────┴──────────┴──────────┴───────────────┴───────────┴──────────────────┘
//
// All integers are little endian. A Ref is the arena offset of a slot; offset 0
// is reserved and means "no value".
package value
