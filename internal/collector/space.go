package collector

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/gcheap/internal/arena"
	"github.com/hupe1980/gcheap/internal/roots"
	"github.com/hupe1980/gcheap/internal/value"
)

// DefaultThreshold is the live count that triggers the first cycle.
const DefaultThreshold = 8

var (
	// ErrInvalidRef is returned for offsets that do not address a live value.
	ErrInvalidRef = errors.New("invalid reference")
	// ErrReentrant is returned when a cycle is requested from inside a cycle.
	ErrReentrant = errors.New("collection already in progress")
)

// MarkMode selects how far the mark phase follows pair fields.
type MarkMode int

const (
	// MarkShallow marks roots and the immediate head and tail of rooted pairs.
	MarkShallow MarkMode = iota
	// MarkTransitive marks everything reachable from the roots.
	MarkTransitive
)

func (m MarkMode) String() string {
	switch m {
	case MarkShallow:
		return "shallow"
	case MarkTransitive:
		return "transitive"
	default:
		return fmt.Sprintf("MarkMode(%d)", int(m))
	}
}

// Config holds the collection policy of a Space.
type Config struct {
	// InitialThreshold is the live count that triggers the first cycle.
	// It is also used after a cycle with no survivors. Defaults to 8.
	InitialThreshold int
	// Compact enables the compaction phase.
	Compact bool
	// Mode selects shallow or transitive marking.
	Mode MarkMode
}

// Result describes one completed cycle.
type Result struct {
	Before     int
	Reclaimed  int
	Remaining  int
	Moved      int
	Threshold  int
	Generation uint32
}

// Space is the managed part of a heap: the intrusive list of live values
// carved from a region, the root stack, and the collection policy.
type Space struct {
	region *arena.Region
	roots  *roots.Stack
	cfg    Config

	first     value.Ref
	live      int
	maxValues int

	free   *roaring.Bitmap // reusable slots, only without compaction
	freed  *roaring.Bitmap // slots reclaimed by the current cycle
	pinned []value.Ref

	work    []value.Ref // mark worklist
	fwd     []value.Ref // compaction forwarding table, indexed by slot
	scratch []byte      // compaction image

	generation uint32
	cycles     uint64
	inCycle    bool
	err        error
}

// New creates an empty space over region and stack.
func New(region *arena.Region, stack *roots.Stack, cfg Config) *Space {
	if cfg.InitialThreshold <= 0 {
		cfg.InitialThreshold = DefaultThreshold
	}
	return &Space{
		region:     region,
		roots:      stack,
		cfg:        cfg,
		maxValues:  cfg.InitialThreshold,
		free:       roaring.New(),
		freed:      roaring.New(),
		generation: 1,
	}
}

// Alloc stores v in a new slot and links it at the head of the list. When
// the live count has reached the threshold a full cycle runs first; its
// result is returned alongside the new reference. The operands of a Pair are
// kept alive and forwarded across that cycle.
func (s *Space) Alloc(v value.Value) (value.Ref, *Result, error) {
	if s.err != nil {
		return value.Nil, nil, s.err
	}
	if s.inCycle {
		return value.Nil, nil, ErrReentrant
	}
	if err := s.validate(v); err != nil {
		return value.Nil, nil, err
	}

	var res *Result
	if s.live >= s.maxValues {
		pair, isPair := v.(value.Pair)
		if isPair {
			s.pinned = append(s.pinned[:0], pair.Head, pair.Tail)
		}
		r, err := s.Collect()
		if isPair {
			pair.Head, pair.Tail = s.pinned[0], s.pinned[1]
			s.pinned = s.pinned[:0]
			v = pair
		}
		if err != nil {
			return value.Nil, nil, err
		}
		res = &r
	}

	off, err := s.takeSlot()
	if err != nil {
		return value.Nil, res, err
	}

	slot := s.slot(off)
	if err := value.Encode(slot, v); err != nil {
		// validate accepted v, so this is unreachable short of memory corruption.
		s.err = err
		return value.Nil, res, err
	}
	slot.SetMarked(false)
	slot.SetNext(s.first)
	s.first = off
	s.live++
	return off, res, nil
}

func (s *Space) takeSlot() (value.Ref, error) {
	if !s.free.IsEmpty() {
		off := s.free.Minimum()
		s.free.Remove(off)
		slot := s.slot(value.Ref(off))
		slot.Clear()
		return value.Ref(off), nil
	}
	off, err := s.region.Alloc(value.SlotSize)
	if err != nil {
		return value.Nil, err
	}
	return value.Ref(off), nil
}

func (s *Space) validate(v value.Value) error {
	switch x := v.(type) {
	case nil:
		return fmt.Errorf("%w: nil value", ErrInvalidRef)
	case value.Union:
		_, err := value.NewUnion(x.Tag, x.Member)
		return err
	case value.Pair:
		for _, r := range []value.Ref{x.Head, x.Tail} {
			if r.IsNil() {
				continue
			}
			if err := s.Check(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// Check returns ErrInvalidRef unless r addresses a live value.
func (s *Space) Check(r value.Ref) error {
	if !s.region.Contains(uint32(r)) || (uint32(r)-arena.Base)%value.SlotSize != 0 {
		return fmt.Errorf("%w: @%d", ErrInvalidRef, uint32(r))
	}
	if !s.slot(r).Kind().Valid() {
		return fmt.Errorf("%w: @%d is free", ErrInvalidRef, uint32(r))
	}
	return nil
}

// Load decodes the value at r.
func (s *Space) Load(r value.Ref) (value.Value, error) {
	if err := s.Check(r); err != nil {
		return nil, err
	}
	return value.Decode(s.slot(r))
}

// Walk calls fn for every live value in list order until fn returns false.
func (s *Space) Walk(fn func(value.Ref, value.Value) bool) error {
	for cur := s.first; cur != value.Nil; {
		slot := s.slot(cur)
		v, err := value.Decode(slot)
		if err != nil {
			return err
		}
		if !fn(cur, v) {
			return nil
		}
		cur = slot.Next()
	}
	return nil
}

func (s *Space) slot(r value.Ref) value.Slot {
	return value.Slot(s.region.Bytes(uint32(r), value.SlotSize))
}

// Roots returns the root stack.
func (s *Space) Roots() *roots.Stack { return s.roots }

// Region returns the backing region.
func (s *Space) Region() *arena.Region { return s.region }

// First returns the head of the intrusive list.
func (s *Space) First() value.Ref { return s.first }

// Live returns the number of values on the intrusive list.
func (s *Space) Live() int { return s.live }

// Threshold returns the live count that triggers the next cycle.
func (s *Space) Threshold() int { return s.maxValues }

// Generation changes whenever a cycle reclaims or relocates a value.
func (s *Space) Generation() uint32 { return s.generation }

// Cycles returns the number of completed cycles.
func (s *Space) Cycles() uint64 { return s.cycles }

// FreeSlots returns the number of reclaimed slots awaiting reuse.
func (s *Space) FreeSlots() int { return int(s.free.GetCardinality()) }

// Config returns the collection policy.
func (s *Space) Config() Config { return s.cfg }

// Err returns the error that poisoned the space, if any.
func (s *Space) Err() error { return s.err }
