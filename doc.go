// Package gcheap provides a small garbage-collected heap of tagged values.
//
// A Heap owns a fixed-size arena (1 MiB by default) and hands out Refs to
// values of seven variants: Int, Float, Double, Char, Pair, Enum and Union.
// Values stay alive while they are reachable from an explicit root stack;
// everything else is reclaimed by a mark-sweep cycle that runs whenever the
// live count reaches an adaptive threshold, or on demand through Collect.
//
// # Quick Start
//
//	h, _ := gcheap.New()
//	defer h.Close()
//
//	a, _ := h.Int(1)
//	b, _ := h.Int(2)
//	p, _ := h.Pair(a, b)
//	h.Push(p)           // p, a and b survive collections
//
//	h.Collect()
//	p, _ = h.Peek(0)    // reacquire: compaction may have moved p
//	head, _ := h.Head(p)
//
// # Collection Cycle
//
//	┌────────┐   ┌────────┐   ┌──────────────┐   ┌─────────────────────┐
//	│  Mark  │ → │ Sweep  │ → │ Compact      │ → │ threshold = 2×live  │
//	│ roots  │   │ unlink │   │ (or reuse    │   │ (initial if none    │
//	│        │   │ clear  │   │  free slots) │   │  survived)          │
//	└────────┘   └────────┘   └──────────────┘   └─────────────────────┘
//
// The mark phase is shallow by default: a rooted Pair keeps its head and tail
// alive, but not their children. Pair fields that would be left pointing at
// reclaimed values are cleared to Nil. WithTransitiveMarking follows pairs to
// any depth.
//
// Compaction packs survivors at the front of the arena in list order and
// forwards the root stack and every pair field. WithoutCompaction keeps
// offsets stable and reuses reclaimed slots instead.
//
// # References
//
// A Ref carries the heap generation it was created in. Any cycle that frees
// or moves a value starts a new generation, and older Refs then fail with
// ErrStaleRef instead of reading reused memory. Roots and pair fields are
// always current; reacquire Refs with Peek, Pop, Head and Tail.
//
// # Errors
//
// Out of memory, stack overflow and underflow, and invalid union tags are
// fatal (IsFatal reports true). A fatal error inside a collection cycle
// leaves the heap unusable. Conversions of Nil or of non-scalar values are
// recoverable and leave the heap unchanged.
//
// # Observability
//
//	h, _ := gcheap.New(
//	    gcheap.WithReportWriter(os.Stdout),     // "Collected 3 values, 5 remaining."
//	    gcheap.WithLogger(gcheap.NewJSONLogger(slog.LevelInfo)),
//	    gcheap.WithMetricsCollector(&gcheap.BasicMetricsCollector{}),
//	)
//
// The metric package provides a Prometheus collector; the dump package writes
// compressed heap images; the resource package shares a memory budget
// between heaps.
//
// # Thread Safety
//
// A Heap is not safe for concurrent use. Independent heaps may be used from
// different goroutines.
package gcheap
