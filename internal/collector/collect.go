package collector

import (
	"fmt"

	"github.com/hupe1980/gcheap/internal/arena"
	"github.com/hupe1980/gcheap/internal/value"
)

// Collect runs a full cycle: mark, sweep, compact (when enabled) and
// threshold update. An error from inside the cycle poisons the space.
func (s *Space) Collect() (Result, error) {
	if s.err != nil {
		return Result{}, s.err
	}
	if s.inCycle {
		return Result{}, ErrReentrant
	}
	s.inCycle = true
	defer func() { s.inCycle = false }()

	before := s.live
	s.mark()
	s.sweep()

	moved := 0
	if s.cfg.Compact {
		n, err := s.compact()
		if err != nil {
			s.err = err
			return Result{}, err
		}
		moved = n
	} else {
		s.clearDangling()
		s.free.Or(s.freed)
	}

	reclaimed := before - s.live
	if reclaimed > 0 || moved > 0 {
		s.generation++
	}

	s.maxValues = 2 * s.live
	if s.live == 0 {
		s.maxValues = s.cfg.InitialThreshold
	}
	s.cycles++

	return Result{
		Before:     before,
		Reclaimed:  reclaimed,
		Remaining:  s.live,
		Moved:      moved,
		Threshold:  s.maxValues,
		Generation: s.generation,
	}, nil
}

func (s *Space) mark() {
	work := s.work[:0]
	visit := func(r value.Ref) bool {
		if r.IsNil() {
			return false
		}
		slot := s.slot(r)
		if slot.Marked() {
			return false
		}
		slot.SetMarked(true)
		return true
	}

	for _, set := range [][]value.Ref{s.roots.Entries(), s.pinned} {
		for _, r := range set {
			if !visit(r) {
				continue
			}
			slot := s.slot(r)
			if slot.Kind() != value.KindPair {
				continue
			}
			switch s.cfg.Mode {
			case MarkTransitive:
				work = append(work, r)
			default:
				s.markChild(slot.Head())
				s.markChild(slot.Tail())
			}
		}
	}

	for len(work) > 0 {
		r := work[len(work)-1]
		work = work[:len(work)-1]
		slot := s.slot(r)
		for _, child := range [2]value.Ref{slot.Head(), slot.Tail()} {
			if visit(child) && s.slot(child).Kind() == value.KindPair {
				work = append(work, child)
			}
		}
	}
	s.work = work[:0]
}

// markChild sets the mark bit of a rooted pair's operand without looking at
// the operand's own fields.
func (s *Space) markChild(r value.Ref) {
	if r.IsNil() {
		return
	}
	s.slot(r).SetMarked(true)
}

func (s *Space) sweep() {
	s.freed.Clear()

	prev := value.Nil
	for cur := s.first; cur != value.Nil; {
		slot := s.slot(cur)
		next := slot.Next()
		if !slot.Marked() {
			if prev == value.Nil {
				s.first = next
			} else {
				s.slot(prev).SetNext(next)
			}
			s.live--
			s.freed.Add(uint32(cur))
			slot.Clear()
		} else {
			slot.SetMarked(false)
			prev = cur
		}
		cur = next
	}
}

// clearDangling resets pair fields of survivors that point at slots the
// sweep just reclaimed. Only shallow marking can leave such fields behind.
func (s *Space) clearDangling() {
	if s.freed.IsEmpty() {
		return
	}
	for cur := s.first; cur != value.Nil; {
		slot := s.slot(cur)
		if slot.Kind() == value.KindPair {
			if s.freed.Contains(uint32(slot.Head())) {
				slot.SetHead(value.Nil)
			}
			if s.freed.Contains(uint32(slot.Tail())) {
				slot.SetTail(value.Nil)
			}
		}
		cur = slot.Next()
	}
}

func slotIndex(r value.Ref) int {
	return int((uint32(r) - arena.Base) / value.SlotSize)
}

func (s *Space) forward(r value.Ref) value.Ref {
	if r.IsNil() {
		return value.Nil
	}
	return s.fwd[slotIndex(r)]
}

// compact packs the survivors at the front of the region in list order and
// returns how many of them changed offset.
func (s *Space) compact() (int, error) {
	cursor := s.region.Cursor()
	slots := int((cursor - arena.Base) / value.SlotSize)
	if cap(s.fwd) < slots {
		s.fwd = make([]value.Ref, slots)
	}
	s.fwd = s.fwd[:slots]
	clear(s.fwd)

	// Pass 1: assign new offsets. Reclaimed slots keep a Nil forward, which
	// clears any pair field still pointing at them.
	newOff := uint64(arena.Base)
	limit := uint64(s.region.Capacity())
	for cur := s.first; cur != value.Nil; cur = s.slot(cur).Next() {
		if newOff+value.SlotSize > limit {
			return 0, fmt.Errorf("%w during compaction", arena.ErrOutOfMemory)
		}
		s.fwd[slotIndex(cur)] = value.Ref(newOff)
		newOff += value.SlotSize
	}

	// Pass 2: build the packed image with forwarded links.
	size := s.live * value.SlotSize
	if cap(s.scratch) < size {
		s.scratch = make([]byte, size)
	}
	img := s.scratch[:size]
	moved := 0
	i := 0
	for cur := s.first; cur != value.Nil; i++ {
		src := s.slot(cur)
		next := src.Next()
		dst := value.Slot(img[i*value.SlotSize : (i+1)*value.SlotSize])
		copy(dst, src)
		dst.SetNext(s.forward(next))
		if dst.Kind() == value.KindPair {
			dst.SetHead(s.forward(src.Head()))
			dst.SetTail(s.forward(src.Tail()))
		}
		if s.forward(cur) != cur {
			moved++
		}
		cur = next
	}

	// Pass 3: install the image and forward every outside reference.
	copy(s.region.Bytes(arena.Base, size), img)
	end := uint32(newOff)
	clear(s.region.Bytes(end, int(cursor-end)))

	s.first = s.forward(s.first)
	s.roots.Rewrite(s.forward)
	for i, r := range s.pinned {
		s.pinned[i] = s.forward(r)
	}
	if err := s.region.SetCursor(end); err != nil {
		return 0, err
	}
	s.free.Clear()
	return moved, nil
}
