package value

import "fmt"

// Kind identifies the variant stored in a slot.
// The zero Kind marks an unused slot.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindDouble
	KindChar
	KindPair
	KindEnum
	KindUnion
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindChar:
		return "char"
	case KindPair:
		return "pair"
	case KindEnum:
		return "enum"
	case KindUnion:
		return "union"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Valid reports whether k names a known variant.
func (k Kind) Valid() bool {
	return k >= KindInt && k <= KindUnion
}

// Scalar reports whether k is one of the numeric variants that take part in
// conversions.
func (k Kind) Scalar() bool {
	switch k {
	case KindInt, KindFloat, KindDouble, KindChar:
		return true
	default:
		return false
	}
}

// UnionTag selects the member of a Union.
type UnionTag int32

const (
	UnionInt    UnionTag = 0
	UnionFloat  UnionTag = 1
	UnionDouble UnionTag = 2
	UnionChar   UnionTag = 3
)

// Valid reports whether t is one of the four known tags.
func (t UnionTag) Valid() bool {
	return t >= UnionInt && t <= UnionChar
}

// Kind returns the scalar kind the tag selects, or KindInvalid.
func (t UnionTag) Kind() Kind {
	switch t {
	case UnionInt:
		return KindInt
	case UnionFloat:
		return KindFloat
	case UnionDouble:
		return KindDouble
	case UnionChar:
		return KindChar
	default:
		return KindInvalid
	}
}

func (t UnionTag) String() string {
	if k := t.Kind(); k != KindInvalid {
		return k.String()
	}
	return fmt.Sprintf("tag(%d)", int32(t))
}
