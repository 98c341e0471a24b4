package gcheap

import (
	"errors"
	"fmt"

	"github.com/hupe1980/gcheap/internal/arena"
	"github.com/hupe1980/gcheap/internal/collector"
	"github.com/hupe1980/gcheap/internal/roots"
	"github.com/hupe1980/gcheap/internal/value"
)

// Fatal errors. The heap cannot honor the request; a caller that mirrors the
// process-ending semantics of a classic runtime should abort on them. Use
// IsFatal to classify.
var (
	// ErrOutOfMemory is returned when the arena cannot fit a value, either on
	// allocation or while relocating survivors during compaction.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrStackOverflow is returned when pushing onto a full root stack.
	ErrStackOverflow = errors.New("stack overflow")
	// ErrStackUnderflow is returned when popping from an empty root stack.
	ErrStackUnderflow = errors.New("stack underflow")
	// ErrInvalidUnionTag is returned by Union for an unknown tag or a member
	// that does not match the tag. No value is allocated.
	ErrInvalidUnionTag = errors.New("invalid union tag")
)

// Recoverable errors. The heap is left unchanged.
var (
	// ErrNilRef is returned when a conversion or accessor receives Nil.
	ErrNilRef = errors.New("nil reference")
	// ErrUnsupportedConversion is matched by every *ConversionError.
	ErrUnsupportedConversion = errors.New("unsupported conversion")
	// ErrStaleRef is returned for a Ref obtained before a collection that
	// reclaimed or relocated values. Reacquire references from the root stack.
	ErrStaleRef = errors.New("stale reference")
	// ErrInvalidRef is returned for a Ref that does not address a live value.
	ErrInvalidRef = errors.New("invalid reference")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("heap is closed")
)

// ConversionError reports a conversion whose source is not a scalar.
//
// It matches ErrUnsupportedConversion with errors.Is. The underlying
// error (if any) can be accessed via errors.Unwrap.
type ConversionError struct {
	From  Kind
	To    Kind
	cause error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("type conversion from %s to %s not supported", e.From, e.To)
}

func (e *ConversionError) Unwrap() error { return e.cause }

// Is reports whether target is ErrUnsupportedConversion.
func (e *ConversionError) Is(target error) bool { return target == ErrUnsupportedConversion }

// IsFatal reports whether err belongs to the fatal class.
func IsFatal(err error) bool {
	return errors.Is(err, ErrOutOfMemory) ||
		errors.Is(err, ErrStackOverflow) ||
		errors.Is(err, ErrStackUnderflow) ||
		errors.Is(err, ErrInvalidUnionTag)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, arena.ErrOutOfMemory):
		return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	case errors.Is(err, roots.ErrOverflow):
		return fmt.Errorf("%w: %w", ErrStackOverflow, err)
	case errors.Is(err, roots.ErrUnderflow):
		return fmt.Errorf("%w: %w", ErrStackUnderflow, err)
	case errors.Is(err, value.ErrInvalidUnionTag):
		return fmt.Errorf("%w: %w", ErrInvalidUnionTag, err)
	case errors.Is(err, collector.ErrInvalidRef):
		return fmt.Errorf("%w: %w", ErrInvalidRef, err)
	case errors.Is(err, arena.ErrClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	return err
}
