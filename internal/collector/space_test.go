package collector

import (
	"testing"

	"github.com/hupe1980/gcheap/internal/arena"
	"github.com/hupe1980/gcheap/internal/roots"
	"github.com/hupe1980/gcheap/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSpace(t *testing.T, capacity int, cfg Config) *Space {
	t.Helper()
	r, err := arena.New(capacity)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Release() })
	return New(r, roots.New(roots.DefaultCapacity), cfg)
}

func alloc(t *testing.T, s *Space, v value.Value) value.Ref {
	t.Helper()
	ref, _, err := s.Alloc(v)
	require.NoError(t, err)
	return ref
}

func push(t *testing.T, s *Space, r value.Ref) {
	t.Helper()
	require.NoError(t, s.Roots().Push(r))
}

func listLen(t *testing.T, s *Space) int {
	t.Helper()
	n := 0
	require.NoError(t, s.Walk(func(value.Ref, value.Value) bool {
		n++
		return true
	}))
	return n
}

func load(t *testing.T, s *Space, r value.Ref) value.Value {
	t.Helper()
	v, err := s.Load(r)
	require.NoError(t, err)
	return v
}

func TestSpace_ThresholdTriggersCycle(t *testing.T) {
	s := newSpace(t, 0, Config{Compact: true})
	assert.Equal(t, 8, s.Threshold())

	for i := 0; i < 5; i++ {
		push(t, s, alloc(t, s, value.Int(i)))
	}

	var cycles []Result
	for i := 0; i < 10; i++ {
		_, res, err := s.Alloc(value.Int(100 + i))
		require.NoError(t, err)
		if res != nil {
			cycles = append(cycles, *res)
		}
	}

	// The first cycle runs when the live count reaches 8, on the fourth
	// unrooted allocation, and finds exactly the five rooted values.
	require.NotEmpty(t, cycles)
	assert.Equal(t, Result{Before: 8, Reclaimed: 3, Remaining: 5, Moved: cycles[0].Moved, Threshold: 10, Generation: 2}, cycles[0])

	// The doubled threshold is reached again on the ninth allocation.
	require.Len(t, cycles, 2)
	assert.Equal(t, 10, cycles[1].Before)
	assert.Equal(t, 5, cycles[1].Remaining)
	assert.Equal(t, 10, s.Threshold())

	assert.Equal(t, 7, s.Live())
	assert.Equal(t, s.Live(), listLen(t, s))
	for i, r := range s.Roots().Entries() {
		assert.Equal(t, value.Int(i), load(t, s, r))
	}
}

func TestSpace_PairKeepsOperandsAlive(t *testing.T) {
	for _, mode := range []MarkMode{MarkShallow, MarkTransitive} {
		t.Run(mode.String(), func(t *testing.T) {
			s := newSpace(t, 0, Config{Compact: true, Mode: mode})

			head := alloc(t, s, value.Int(1))
			tail := alloc(t, s, value.Int(2))
			pair := alloc(t, s, value.Pair{Head: head, Tail: tail})
			alloc(t, s, value.Int(3)) // unrooted sibling
			push(t, s, pair)

			res, err := s.Collect()
			require.NoError(t, err)
			assert.Equal(t, 1, res.Reclaimed)
			assert.Equal(t, 3, res.Remaining)
			assert.Equal(t, 6, res.Threshold)

			root, _ := s.Roots().At(0)
			p := load(t, s, root).(value.Pair)
			assert.Equal(t, value.Int(1), load(t, s, p.Head))
			assert.Equal(t, value.Int(2), load(t, s, p.Tail))
		})
	}
}

func TestSpace_ShallowMarking(t *testing.T) {
	for _, compact := range []bool{true, false} {
		s := newSpace(t, 0, Config{Compact: compact, Mode: MarkShallow})

		leaf := alloc(t, s, value.Int(7))
		inner := alloc(t, s, value.Pair{Head: leaf, Tail: value.Nil})
		outer := alloc(t, s, value.Pair{Head: inner, Tail: value.Nil})
		push(t, s, outer)

		res, err := s.Collect()
		require.NoError(t, err)
		assert.Equal(t, 1, res.Reclaimed, "grandchild is not marked")
		assert.Equal(t, 2, res.Remaining)

		root, _ := s.Roots().At(0)
		o := load(t, s, root).(value.Pair)
		i := load(t, s, o.Head).(value.Pair)
		assert.Equal(t, value.Nil, i.Head, "field pointing at reclaimed value is cleared")
	}
}

func TestSpace_TransitiveMarking(t *testing.T) {
	s := newSpace(t, 0, Config{Compact: true, Mode: MarkTransitive})

	chain := alloc(t, s, value.Int(0))
	for i := 1; i <= 5; i++ {
		head := alloc(t, s, value.Int(i))
		chain = alloc(t, s, value.Pair{Head: head, Tail: chain})
		// Keep the chain reachable across cycles triggered by allocation.
		if s.Roots().Len() > 0 {
			_, err := s.Roots().Pop()
			require.NoError(t, err)
		}
		push(t, s, chain)
	}
	alloc(t, s, value.Double(1))

	res, err := s.Collect()
	require.NoError(t, err)
	assert.Equal(t, 11, res.Remaining)

	root, _ := s.Roots().At(0)
	for i := 5; i >= 1; i-- {
		p := load(t, s, root).(value.Pair)
		assert.Equal(t, value.Int(i), load(t, s, p.Head))
		root = p.Tail
	}
	assert.Equal(t, value.Int(0), load(t, s, root))
}

func TestSpace_CompactionPreservesContent(t *testing.T) {
	s := newSpace(t, 0, Config{Compact: true, InitialThreshold: 1000})

	want := map[int]value.Value{}
	for i := 0; i < 40; i++ {
		var v value.Value
		switch i % 4 {
		case 0:
			v = value.Double(float64(i) + 0.5)
		case 1:
			v = value.Union{Tag: value.UnionChar, Member: value.Char(i)}
		case 2:
			v = value.Enum(-i)
		default:
			v = value.Float(float32(i))
		}
		r := alloc(t, s, v)
		if i%3 == 0 {
			want[s.Roots().Len()] = v
			push(t, s, r)
			push(t, s, r) // duplicate roots are both forwarded
			want[s.Roots().Len()-1] = v
		}
	}
	before := s.Region().Cursor()

	res, err := s.Collect()
	require.NoError(t, err)
	assert.Positive(t, res.Moved)
	assert.Equal(t, 14, res.Remaining)
	assert.Equal(t, uint32(arena.Base+14*value.SlotSize), s.Region().Cursor())
	assert.Less(t, s.Region().Cursor(), before)

	for i, r := range s.Roots().Entries() {
		assert.True(t, s.Region().Contains(uint32(r)))
		assert.True(t, value.Equal(want[i], load(t, s, r)), "root %d: want %v", i, want[i])
	}
	assert.Equal(t, s.Live(), listLen(t, s))

	// Survivors are packed in list order.
	expected := value.Ref(arena.Base)
	require.NoError(t, s.Walk(func(r value.Ref, _ value.Value) bool {
		assert.Equal(t, expected, r)
		expected += value.SlotSize
		return true
	}))
}

func TestSpace_FreeListReuse(t *testing.T) {
	s := newSpace(t, 0, Config{Compact: false, InitialThreshold: 4})

	keep := alloc(t, s, value.Int(1))
	push(t, s, keep)
	for i := 0; i < 3; i++ {
		alloc(t, s, value.Int(i))
	}
	cursor := s.Region().Cursor()

	ref, res, err := s.Alloc(value.Int(9))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 3, res.Reclaimed)
	assert.Equal(t, 0, res.Moved)
	assert.Equal(t, 2, s.FreeSlots())
	assert.Equal(t, cursor, s.Region().Cursor(), "reclaimed slot reused")
	assert.Equal(t, value.Int(9), load(t, s, ref))

	root, _ := s.Roots().At(0)
	assert.Equal(t, keep, root, "roots do not move without compaction")
}

func TestSpace_ZeroSurvivorsResetThreshold(t *testing.T) {
	s := newSpace(t, 0, Config{Compact: true})
	alloc(t, s, value.Int(1))

	res, err := s.Collect()
	require.NoError(t, err)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, DefaultThreshold, s.Threshold())
	assert.Equal(t, uint32(arena.Base), s.Region().Cursor())
	assert.Equal(t, value.Nil, s.First())
}

func TestSpace_GenerationOnlyChangesWhenValuesMoveOrDie(t *testing.T) {
	s := newSpace(t, 0, Config{Compact: true})
	push(t, s, alloc(t, s, value.Int(1)))
	gen := s.Generation()

	_, err := s.Collect()
	require.NoError(t, err)
	assert.Equal(t, gen, s.Generation())

	alloc(t, s, value.Int(2))
	_, err = s.Collect()
	require.NoError(t, err)
	assert.Equal(t, gen+1, s.Generation())
	assert.Equal(t, uint64(2), s.Cycles())
}

func TestSpace_OutOfMemory(t *testing.T) {
	s := newSpace(t, arena.Base+3*value.SlotSize, Config{Compact: true, InitialThreshold: 100})
	for i := 0; i < 3; i++ {
		alloc(t, s, value.Int(i))
	}
	_, _, err := s.Alloc(value.Int(3))
	assert.ErrorIs(t, err, arena.ErrOutOfMemory)
	assert.NoError(t, s.Err(), "allocation failure leaves the space intact")
	assert.Equal(t, 3, s.Live())
}

func TestSpace_PairOperandsForwardedAcrossTriggeredCycle(t *testing.T) {
	s := newSpace(t, 0, Config{Compact: true, InitialThreshold: 4})

	alloc(t, s, value.Int(0)) // garbage, moves the operands on compaction
	head := alloc(t, s, value.Int(1))
	tail := alloc(t, s, value.Char('t'))
	alloc(t, s, value.Int(3))

	pair, res, err := s.Alloc(value.Pair{Head: head, Tail: tail})
	require.NoError(t, err)
	require.NotNil(t, res, "allocation triggered a cycle")
	assert.Equal(t, 2, res.Remaining, "operands were pinned")

	p := load(t, s, pair).(value.Pair)
	assert.Equal(t, value.Int(1), load(t, s, p.Head))
	assert.Equal(t, value.Char('t'), load(t, s, p.Tail))
}

func TestSpace_Validation(t *testing.T) {
	s := newSpace(t, 0, Config{Compact: true})
	ok := alloc(t, s, value.Int(1))

	_, _, err := s.Alloc(value.Pair{Head: ok + 3, Tail: value.Nil})
	assert.ErrorIs(t, err, ErrInvalidRef)

	_, _, err = s.Alloc(value.Pair{Head: value.Ref(4096), Tail: value.Nil})
	assert.ErrorIs(t, err, ErrInvalidRef)

	_, _, err = s.Alloc(value.Union{Tag: 9, Member: value.Int(1)})
	assert.ErrorIs(t, err, value.ErrInvalidUnionTag)

	_, _, err = s.Alloc(nil)
	assert.ErrorIs(t, err, ErrInvalidRef)

	assert.Equal(t, 1, s.Live(), "rejected values are never allocated")
}
