package gcheap

import (
	"github.com/hupe1980/gcheap/internal/value"
)

// ToInt returns r when it already holds an Int, otherwise a new Int coerced
// from a scalar. Float and Double truncate toward zero.
func (h *Heap) ToInt(r Ref) (Ref, error) { return h.convert(r, value.KindInt) }

// ToFloat returns r when it already holds a Float, otherwise a new Float
// coerced from a scalar.
func (h *Heap) ToFloat(r Ref) (Ref, error) { return h.convert(r, value.KindFloat) }

// ToDouble returns r when it already holds a Double, otherwise a new Double
// coerced from a scalar.
func (h *Heap) ToDouble(r Ref) (Ref, error) { return h.convert(r, value.KindDouble) }

// ToChar returns r when it already holds a Char, otherwise a new Char holding
// the low byte of the integer part of a scalar.
func (h *Heap) ToChar(r Ref) (Ref, error) { return h.convert(r, value.KindChar) }

// convert never modifies its source. Failures return Nil with ErrNilRef,
// ErrStaleRef or a *ConversionError, are logged, and leave the heap
// unchanged.
func (h *Heap) convert(r Ref, to Kind) (Ref, error) {
	if err := h.usable(); err != nil {
		return Nil, err
	}

	src, err := h.Load(r)
	if err != nil {
		h.logger.LogConversion(value.KindInvalid, to, err)
		h.metrics.RecordConversion(value.KindInvalid, to, err)
		return Nil, err
	}

	if src.Kind() == to {
		h.metrics.RecordConversion(to, to, nil)
		return r, nil
	}

	v, err := value.Coerce(src, to)
	if err != nil {
		cerr := &ConversionError{From: src.Kind(), To: to, cause: err}
		h.logger.LogConversion(cerr.From, to, cerr)
		h.metrics.RecordConversion(cerr.From, to, cerr)
		return Nil, cerr
	}

	out, err := h.alloc(v)
	h.metrics.RecordConversion(src.Kind(), to, err)
	return out, err
}
