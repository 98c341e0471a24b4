package value

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// SlotSize is the number of bytes every stored value occupies.
const SlotSize = 24

const (
	offKind    = 0
	offMark    = 1
	offNext    = 4
	offHead    = 8
	offTail    = 12
	offPayload = 16
)

// ErrCorruptSlot is returned when a slot does not hold a known variant.
var ErrCorruptSlot = errors.New("corrupt slot")

// Slot is a view of the SlotSize bytes holding one value.
type Slot []byte

func (s Slot) Kind() Kind { return Kind(s[offKind]) }

func (s Slot) Marked() bool { return s[offMark] != 0 }

func (s Slot) SetMarked(marked bool) {
	if marked {
		s[offMark] = 1
	} else {
		s[offMark] = 0
	}
}

// Next returns the intrusive link to the next live value.
func (s Slot) Next() Ref { return Ref(binary.LittleEndian.Uint32(s[offNext:])) }

func (s Slot) SetNext(r Ref) { binary.LittleEndian.PutUint32(s[offNext:], uint32(r)) }

// Head and Tail are only meaningful for pairs.
func (s Slot) Head() Ref { return Ref(binary.LittleEndian.Uint32(s[offHead:])) }

func (s Slot) Tail() Ref { return Ref(binary.LittleEndian.Uint32(s[offTail:])) }

func (s Slot) SetHead(r Ref) { binary.LittleEndian.PutUint32(s[offHead:], uint32(r)) }

func (s Slot) SetTail(r Ref) { binary.LittleEndian.PutUint32(s[offTail:], uint32(r)) }

// Clear zeroes the whole slot.
func (s Slot) Clear() { clear(s[:SlotSize]) }

// Encode writes v's kind and payload into s. The mark bit and next link are
// left untouched.
func Encode(s Slot, v Value) error {
	if v == nil {
		return fmt.Errorf("%w: nil value", ErrCorruptSlot)
	}
	clear(s[offHead:SlotSize])
	switch x := v.(type) {
	case Int, Float, Double, Char, Enum:
		binary.LittleEndian.PutUint64(s[offPayload:], scalarBits(x))
	case Pair:
		s.SetHead(x.Head)
		s.SetTail(x.Tail)
	case Union:
		if !x.Tag.Valid() || x.Member == nil || x.Member.Kind() != x.Tag.Kind() {
			return fmt.Errorf("%w: %d", ErrInvalidUnionTag, int32(x.Tag))
		}
		binary.LittleEndian.PutUint32(s[offHead:], uint32(x.Tag))
		binary.LittleEndian.PutUint64(s[offPayload:], scalarBits(x.Member))
	default:
		return fmt.Errorf("%w: unknown variant %T", ErrCorruptSlot, v)
	}
	s[offKind] = byte(v.Kind())
	return nil
}

// Decode reads the value stored in s.
func Decode(s Slot) (Value, error) {
	bits := binary.LittleEndian.Uint64(s[offPayload:])
	switch k := s.Kind(); k {
	case KindInt, KindFloat, KindDouble, KindChar:
		return scalarFromBits(k, bits), nil
	case KindEnum:
		return Enum(int32(uint32(bits))), nil
	case KindPair:
		return Pair{Head: s.Head(), Tail: s.Tail()}, nil
	case KindUnion:
		tag := UnionTag(int32(binary.LittleEndian.Uint32(s[offHead:])))
		if !tag.Valid() {
			return nil, fmt.Errorf("%w: union tag %d", ErrCorruptSlot, int32(tag))
		}
		return Union{Tag: tag, Member: scalarFromBits(tag.Kind(), bits)}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrCorruptSlot, k)
	}
}

func scalarBits(v Value) uint64 {
	switch x := v.(type) {
	case Int:
		return uint64(uint32(x))
	case Float:
		return uint64(math.Float32bits(float32(x)))
	case Double:
		return math.Float64bits(float64(x))
	case Char:
		return uint64(x)
	case Enum:
		return uint64(uint32(x))
	default:
		return 0
	}
}

func scalarFromBits(k Kind, bits uint64) Value {
	switch k {
	case KindInt:
		return Int(int32(uint32(bits)))
	case KindFloat:
		return Float(math.Float32frombits(uint32(bits)))
	case KindDouble:
		return Double(math.Float64frombits(bits))
	case KindChar:
		return Char(uint8(bits))
	default:
		return nil
	}
}
