package gcheap

import (
	"github.com/hupe1980/gcheap/internal/value"
)

// Snapshot is a point-in-time copy of a heap's occupied region.
type Snapshot struct {
	// Generation is the heap generation at capture time.
	Generation uint32
	// First is the offset of the most recently allocated live value.
	First uint32
	// Live is the number of values on the intrusive list.
	Live int
	// Roots holds the root stack offsets, bottom first.
	Roots []uint32
	// Image holds the region from offset 0 up to the allocation cursor, so
	// value offsets index it directly.
	Image []byte
}

// Snapshot copies the occupied part of the region and the root stack.
func (h *Heap) Snapshot() (*Snapshot, error) {
	if err := h.usable(); err != nil {
		return nil, err
	}

	entries := h.space.Roots().Entries()
	rootOffs := make([]uint32, len(entries))
	for i, r := range entries {
		rootOffs[i] = uint32(r)
	}

	cursor := h.region.Cursor()
	img := make([]byte, cursor)
	copy(img, h.region.Bytes(0, int(cursor)))

	return &Snapshot{
		Generation: h.space.Generation(),
		First:      uint32(h.space.First()),
		Live:       h.space.Live(),
		Roots:      rootOffs,
		Image:      img,
	}, nil
}

// Values decodes the live values of the snapshot in list order.
func (s *Snapshot) Values() ([]SnapshotValue, error) {
	out := make([]SnapshotValue, 0, max(0, min(s.Live, len(s.Image)/value.SlotSize)))
	for cur := s.First; cur != 0; {
		if uint64(cur)+value.SlotSize > uint64(len(s.Image)) || len(out) >= s.Live {
			return nil, value.ErrCorruptSlot
		}
		slot := value.Slot(s.Image[cur : cur+value.SlotSize])
		v, err := value.Decode(slot)
		if err != nil {
			return nil, err
		}
		out = append(out, SnapshotValue{Offset: cur, Value: v})
		cur = uint32(slot.Next())
	}
	return out, nil
}

// SnapshotValue is one decoded value of a Snapshot.
type SnapshotValue struct {
	Offset uint32
	Value  Value
}
