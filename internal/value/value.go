package value

import (
	"errors"
	"fmt"
)

// Ref is the arena offset of a stored value. Nil refers to no value.
type Ref uint32

// Nil is the reference to no value.
const Nil Ref = 0

// IsNil reports whether r refers to no value.
func (r Ref) IsNil() bool { return r == Nil }

// ErrInvalidUnionTag is returned when a union tag is unknown or does not
// match the member it carries.
var ErrInvalidUnionTag = errors.New("invalid union tag")

// Value is a decoded heap value. The set of implementations is closed.
type Value interface {
	Kind() Kind
	String() string
	isValue()
}

var (
	_ Value = Int(0)
	_ Value = Float(0)
	_ Value = Double(0)
	_ Value = Char(0)
	_ Value = Pair{}
	_ Value = Enum(0)
	_ Value = Union{}
)

type Int int32

func (Int) isValue()         {}
func (Int) Kind() Kind       { return KindInt }
func (i Int) String() string { return fmt.Sprintf("Int(%d)", int32(i)) }

type Float float32

func (Float) isValue()         {}
func (Float) Kind() Kind       { return KindFloat }
func (f Float) String() string { return fmt.Sprintf("Float(%g)", float32(f)) }

type Double float64

func (Double) isValue()         {}
func (Double) Kind() Kind       { return KindDouble }
func (d Double) String() string { return fmt.Sprintf("Double(%g)", float64(d)) }

type Char uint8

func (Char) isValue()         {}
func (Char) Kind() Kind       { return KindChar }
func (c Char) String() string { return fmt.Sprintf("Char(%d)", uint8(c)) }

// Pair holds two references. The pair does not own them; both stay owned by
// the arena.
type Pair struct {
	Head Ref
	Tail Ref
}

func (Pair) isValue()   {}
func (Pair) Kind() Kind { return KindPair }
func (p Pair) String() string {
	return fmt.Sprintf("Pair(@%d, @%d)", uint32(p.Head), uint32(p.Tail))
}

type Enum int32

func (Enum) isValue()         {}
func (Enum) Kind() Kind       { return KindEnum }
func (e Enum) String() string { return fmt.Sprintf("Enum(%d)", int32(e)) }

// Union is a discriminated union whose Member kind is selected by Tag.
type Union struct {
	Tag    UnionTag
	Member Value
}

// NewUnion validates that tag is known and that member holds the scalar the
// tag selects.
func NewUnion(tag UnionTag, member Value) (Union, error) {
	if !tag.Valid() {
		return Union{}, fmt.Errorf("%w: %d", ErrInvalidUnionTag, int32(tag))
	}
	if member == nil || member.Kind() != tag.Kind() {
		return Union{}, fmt.Errorf("%w: tag %s does not match member %v", ErrInvalidUnionTag, tag, member)
	}
	return Union{Tag: tag, Member: member}, nil
}

func (Union) isValue()   {}
func (Union) Kind() Kind { return KindUnion }
func (u Union) String() string {
	return fmt.Sprintf("Union(%s, %v)", u.Tag, u.Member)
}

// Equal reports whether a and b hold the same variant and payload.
// Floating point payloads are compared bit for bit.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Union:
		y := b.(Union)
		return x.Tag == y.Tag && Equal(x.Member, y.Member)
	default:
		return scalarBits(a) == scalarBits(b) && pairOf(a) == pairOf(b)
	}
}

func pairOf(v Value) Pair {
	if p, ok := v.(Pair); ok {
		return p
	}
	return Pair{}
}
