package gcheap

import (
	"fmt"
	"time"

	"github.com/hupe1980/gcheap/internal/arena"
	"github.com/hupe1980/gcheap/internal/collector"
	"github.com/hupe1980/gcheap/internal/roots"
	"github.com/hupe1980/gcheap/internal/value"
)

// Heap is a garbage-collected arena of tagged values.
//
// A Heap is owned by a single goroutine; it is not safe for concurrent use.
// Independent heaps can be used in parallel.
type Heap struct {
	opts    options
	region  *arena.Region
	space   *collector.Space
	logger  *Logger
	metrics MetricsCollector
	closed  bool
}

// CollectStats describes one completed collection cycle.
type CollectStats struct {
	// Before is the live count when the cycle started.
	Before int
	// Reclaimed is the number of values freed by the cycle.
	Reclaimed int
	// Remaining is the number of surviving values.
	Remaining int
	// Moved is the number of survivors relocated by compaction.
	Moved int
	// Threshold is the live count that triggers the next cycle.
	Threshold int
	// Generation is the heap generation after the cycle.
	Generation uint32
	// Implicit is true when the cycle was triggered by an allocation.
	Implicit bool
	// Duration is the wall time of the cycle.
	Duration time.Duration
}

// Stats is a point-in-time view of the heap.
type Stats struct {
	Live          int
	Threshold     int
	Roots         int
	RootCapacity  int
	Capacity      int
	Used          int
	FreeSlots     int
	Cycles        uint64
	Generation    uint32
	Allocs        uint64
	Compact       bool
	Transitive    bool
	OffHeap       bool
	ArenaHighMark uint64
	// Rewinds counts cycles whose compaction moved the allocation cursor back.
	Rewinds uint64
	// Usage is the share of the arena behind the cursor, in percent.
	Usage float64
}

// New reserves an arena and returns an empty heap.
func New(optFns ...Option) (*Heap, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	var regionOpts []arena.Option
	if o.acquirer != nil {
		regionOpts = append(regionOpts, arena.WithMemoryAcquirer(o.acquirer))
	}
	if o.offHeap {
		regionOpts = append(regionOpts, arena.WithOffHeap())
	}

	region, err := arena.New(o.capacity, regionOpts...)
	if err != nil {
		return nil, translateError(err)
	}

	space := collector.New(region, roots.New(o.rootStackSize), collector.Config{
		InitialThreshold: o.threshold,
		Compact:          o.compact,
		Mode:             o.markMode,
	})

	h := &Heap{
		opts:    o,
		region:  region,
		space:   space,
		logger:  o.logger,
		metrics: o.metricsCollector,
	}
	h.logger.LogInit(region.Capacity(), space.Roots().Cap(), space.Threshold(), o.compact, region.OffHeap())
	return h, nil
}

// Close releases the arena. It is idempotent. Every Ref obtained from the
// heap becomes invalid and every later call returns ErrClosed.
func (h *Heap) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	live, cycles := h.space.Live(), h.space.Cycles()
	h.space.Roots().Reset()
	err := h.region.Release()
	h.logger.LogClose(live, cycles, err)
	return err
}

// Push adds r to the root stack. Nil may be pushed.
func (h *Heap) Push(r Ref) error {
	if err := h.usable(); err != nil {
		return err
	}
	if !r.IsNil() {
		if _, err := h.resolve(r); err != nil {
			return err
		}
	}
	if err := h.space.Roots().Push(r.off); err != nil {
		return h.fatal("push", translateError(err))
	}
	return nil
}

// Pop removes and returns the top of the root stack.
func (h *Heap) Pop() (Ref, error) {
	if err := h.usable(); err != nil {
		return Nil, err
	}
	off, err := h.space.Roots().Pop()
	if err != nil {
		return Nil, h.fatal("pop", translateError(err))
	}
	return h.ref(off), nil
}

// Peek returns the root at depth i, counted from the bottom of the stack.
func (h *Heap) Peek(i int) (Ref, error) {
	if err := h.usable(); err != nil {
		return Nil, err
	}
	off, ok := h.space.Roots().At(i)
	if !ok {
		return Nil, fmt.Errorf("%w: root %d of %d", ErrInvalidRef, i, h.space.Roots().Len())
	}
	return h.ref(off), nil
}

// Depth returns the number of roots on the stack.
func (h *Heap) Depth() int {
	return h.space.Roots().Len()
}

// Collect runs a full collection cycle.
func (h *Heap) Collect() (CollectStats, error) {
	if err := h.usable(); err != nil {
		return CollectStats{}, err
	}
	start := time.Now()
	res, err := h.space.Collect()
	if err != nil {
		return CollectStats{}, h.fatal("collect", translateError(err))
	}
	return h.report(res, false, time.Since(start)), nil
}

// Load decodes the value r refers to.
func (h *Heap) Load(r Ref) (Value, error) {
	off, err := h.resolve(r)
	if err != nil {
		return nil, err
	}
	v, err := h.space.Load(off)
	return v, translateError(err)
}

// Kind returns the variant r refers to.
func (h *Heap) Kind(r Ref) (Kind, error) {
	v, err := h.Load(r)
	if err != nil {
		return value.KindInvalid, err
	}
	return v.Kind(), nil
}

// Head returns the head of the pair r refers to.
func (h *Heap) Head(r Ref) (Ref, error) {
	p, err := h.loadPair(r)
	if err != nil {
		return Nil, err
	}
	return h.ref(p.Head), nil
}

// Tail returns the tail of the pair r refers to.
func (h *Heap) Tail(r Ref) (Ref, error) {
	p, err := h.loadPair(r)
	if err != nil {
		return Nil, err
	}
	return h.ref(p.Tail), nil
}

func (h *Heap) loadPair(r Ref) (value.Pair, error) {
	v, err := h.Load(r)
	if err != nil {
		return value.Pair{}, err
	}
	p, ok := v.(value.Pair)
	if !ok {
		return value.Pair{}, fmt.Errorf("%w: %s is a %s, not a pair", ErrInvalidRef, r, v.Kind())
	}
	return p, nil
}

// Walk calls fn for every live value, most recently allocated first, until
// fn returns false. fn must not call back into the heap.
func (h *Heap) Walk(fn func(Ref, Value) bool) error {
	if err := h.usable(); err != nil {
		return err
	}
	return translateError(h.space.Walk(func(off value.Ref, v value.Value) bool {
		return fn(h.ref(off), v)
	}))
}

// Stats returns a point-in-time view of the heap.
func (h *Heap) Stats() Stats {
	rs := h.region.Stats()
	cfg := h.space.Config()
	return Stats{
		Live:          h.space.Live(),
		Threshold:     h.space.Threshold(),
		Roots:         h.space.Roots().Len(),
		RootCapacity:  h.space.Roots().Cap(),
		Capacity:      h.region.Capacity(),
		Used:          h.region.Used(),
		FreeSlots:     h.space.FreeSlots(),
		Cycles:        h.space.Cycles(),
		Generation:    h.space.Generation(),
		Allocs:        rs.Allocs,
		Compact:       cfg.Compact,
		Transitive:    cfg.Mode == collector.MarkTransitive,
		OffHeap:       h.region.OffHeap(),
		ArenaHighMark: rs.HighWater,
		Rewinds:       rs.Rewinds,
		Usage:         h.region.Usage(),
	}
}

// Err returns the fatal error that stopped the heap, if any.
func (h *Heap) Err() error {
	return translateError(h.space.Err())
}

func (h *Heap) usable() error {
	if h.closed {
		return ErrClosed
	}
	return translateError(h.space.Err())
}

func (h *Heap) resolve(r Ref) (value.Ref, error) {
	if err := h.usable(); err != nil {
		return value.Nil, err
	}
	if r.IsNil() {
		return value.Nil, ErrNilRef
	}
	if r.gen != h.space.Generation() {
		return value.Nil, fmt.Errorf("%w: %s, heap generation %d", ErrStaleRef, r, h.space.Generation())
	}
	if err := h.space.Check(r.off); err != nil {
		return value.Nil, translateError(err)
	}
	return r.off, nil
}

func (h *Heap) ref(off value.Ref) Ref {
	if off == value.Nil {
		return Nil
	}
	return Ref{gen: h.space.Generation(), off: off}
}

func (h *Heap) fatal(op string, err error) error {
	if IsFatal(err) {
		h.logger.LogFatal(op, err)
	}
	return err
}

func (h *Heap) report(res collector.Result, implicit bool, d time.Duration) CollectStats {
	stats := CollectStats{
		Before:     res.Before,
		Reclaimed:  res.Reclaimed,
		Remaining:  res.Remaining,
		Moved:      res.Moved,
		Threshold:  res.Threshold,
		Generation: res.Generation,
		Implicit:   implicit,
		Duration:   d,
	}
	if h.opts.report != nil {
		_, _ = fmt.Fprintf(h.opts.report, "Collected %d values, %d remaining.\n", stats.Reclaimed, stats.Remaining)
	}
	h.logger.LogCollect(stats)
	h.metrics.RecordCollect(stats)
	return stats
}
