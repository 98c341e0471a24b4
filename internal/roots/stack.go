// Package roots implements the bounded root stack. Entries are the only
// starting points of reachability for the collector.
package roots

import (
	"errors"

	"github.com/hupe1980/gcheap/internal/value"
)

// DefaultCapacity is the number of roots a stack holds unless configured.
const DefaultCapacity = 256

var (
	// ErrOverflow is returned when pushing onto a full stack.
	ErrOverflow = errors.New("stack overflow")
	// ErrUnderflow is returned when popping from an empty stack.
	ErrUnderflow = errors.New("stack underflow")
)

// Stack is a bounded LIFO of value references.
type Stack struct {
	data []value.Ref
	top  int
}

// New creates a stack holding at most capacity roots.
// A non-positive capacity selects DefaultCapacity.
func New(capacity int) *Stack {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Stack{data: make([]value.Ref, capacity)}
}

// Push pushes r onto the stack or returns ErrOverflow if the stack is full.
func (s *Stack) Push(r value.Ref) error {
	if s.top == len(s.data) {
		return ErrOverflow
	}
	s.data[s.top] = r
	s.top++
	return nil
}

// Pop pops the top entry or returns ErrUnderflow if there is none.
func (s *Stack) Pop() (value.Ref, error) {
	if s.top == 0 {
		return value.Nil, ErrUnderflow
	}
	s.top--
	r := s.data[s.top]
	s.data[s.top] = value.Nil
	return r, nil
}

// At returns the entry at depth i, counted from the bottom.
func (s *Stack) At(i int) (value.Ref, bool) {
	if i < 0 || i >= s.top {
		return value.Nil, false
	}
	return s.data[i], true
}

// Len returns the number of entries.
func (s *Stack) Len() int { return s.top }

// Cap returns the maximum number of entries.
func (s *Stack) Cap() int { return len(s.data) }

// Entries returns the live portion of the stack, bottom first.
// The slice aliases the stack and is only valid until the next mutation.
func (s *Stack) Entries() []value.Ref { return s.data[:s.top] }

// Rewrite replaces every entry with remap(entry). The collector uses it to
// forward roots to relocated values.
func (s *Stack) Rewrite(remap func(value.Ref) value.Ref) {
	for i := 0; i < s.top; i++ {
		s.data[i] = remap(s.data[i])
	}
}

// Reset drops all entries.
func (s *Stack) Reset() {
	clear(s.data[:s.top])
	s.top = 0
}
