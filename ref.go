package gcheap

import (
	"fmt"

	"github.com/hupe1980/gcheap/internal/value"
)

// Ref is a handle to a value owned by a Heap.
//
// A Ref stays valid until the next collection that reclaims or relocates
// values. Refs held on the root stack and inside pairs are forwarded by the
// collector; reacquire them with Peek, Pop, Head or Tail. The zero Ref is Nil.
type Ref struct {
	gen uint32
	off value.Ref
}

// Nil refers to no value.
var Nil Ref

// IsNil reports whether r refers to no value.
func (r Ref) IsNil() bool { return r.off == value.Nil }

// Offset returns the arena offset of the value.
func (r Ref) Offset() uint32 { return uint32(r.off) }

func (r Ref) String() string {
	if r.IsNil() {
		return "nil"
	}
	return fmt.Sprintf("@%d/%d", uint32(r.off), r.gen)
}

// Value variants, re-exported for type switches over Load results. Pair
// fields are raw offsets; use Heap.Head and Heap.Tail to obtain Refs.
type (
	Value    = value.Value
	Kind     = value.Kind
	UnionTag = value.UnionTag
	Int      = value.Int
	Float    = value.Float
	Double   = value.Double
	Char     = value.Char
	Enum     = value.Enum
	Union    = value.Union
	Pair     = value.Pair
)

const (
	KindInt    = value.KindInt
	KindFloat  = value.KindFloat
	KindDouble = value.KindDouble
	KindChar   = value.KindChar
	KindPair   = value.KindPair
	KindEnum   = value.KindEnum
	KindUnion  = value.KindUnion

	UnionInt    = value.UnionInt
	UnionFloat  = value.UnionFloat
	UnionDouble = value.UnionDouble
	UnionChar   = value.UnionChar
)
