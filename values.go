package gcheap

import (
	"time"

	"github.com/hupe1980/gcheap/internal/value"
)

// Int allocates an Int value.
func (h *Heap) Int(v int32) (Ref, error) { return h.alloc(value.Int(v)) }

// Float allocates a Float value.
func (h *Heap) Float(v float32) (Ref, error) { return h.alloc(value.Float(v)) }

// Double allocates a Double value.
func (h *Heap) Double(v float64) (Ref, error) { return h.alloc(value.Double(v)) }

// Char allocates a Char value.
func (h *Heap) Char(v uint8) (Ref, error) { return h.alloc(value.Char(v)) }

// Enum allocates an Enum value.
func (h *Heap) Enum(v int32) (Ref, error) { return h.alloc(value.Enum(v)) }

// Pair allocates a pair of head and tail. Either may be Nil.
//
// The pair does not own its operands. When a rooted pair is marked its head
// and tail are kept alive; with the default shallow marking, a pair nested
// deeper must be rooted on its own. The operands survive a collection
// triggered by this allocation even if they are not rooted.
func (h *Heap) Pair(head, tail Ref) (Ref, error) {
	var p value.Pair
	for _, op := range []struct {
		in  Ref
		out *value.Ref
	}{{head, &p.Head}, {tail, &p.Tail}} {
		if op.in.IsNil() {
			continue
		}
		off, err := h.resolve(op.in)
		if err != nil {
			h.metrics.RecordAlloc(value.KindPair, err)
			return Nil, err
		}
		*op.out = off
	}
	return h.alloc(p)
}

// Union allocates a discriminated union. member must hold the scalar variant
// selected by tag. An unknown tag or a mismatched member returns the fatal
// ErrInvalidUnionTag and allocates nothing.
func (h *Heap) Union(tag UnionTag, member Value) (Ref, error) {
	if err := h.usable(); err != nil {
		return Nil, err
	}
	u, err := value.NewUnion(tag, member)
	if err != nil {
		err = translateError(err)
		h.metrics.RecordAlloc(value.KindUnion, err)
		return Nil, h.fatal("union", err)
	}
	return h.alloc(u)
}

func (h *Heap) alloc(v value.Value) (Ref, error) {
	if err := h.usable(); err != nil {
		return Nil, err
	}

	start := time.Now()
	off, res, err := h.space.Alloc(v)
	if res != nil {
		h.report(*res, true, time.Since(start))
	}

	err = translateError(err)
	h.metrics.RecordAlloc(v.Kind(), err)
	if err != nil {
		return Nil, h.fatal("alloc", err)
	}
	return h.ref(off), nil
}
