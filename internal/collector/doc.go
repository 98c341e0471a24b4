// Package collector implements the managed space of a heap and its
// stop-the-world mark-sweep-compact cycle.
//
// # Cycle
//
//  1. Mark: every root (and every operand pinned by an in-flight Pair
//     allocation) is marked. In MarkShallow mode a rooted Pair additionally
//     marks its head and tail, without descending further. MarkTransitive
//     marks the full closure with an explicit worklist.
//  2. Sweep: one pass over the intrusive list unlinks unmarked values and
//     clears the mark bit of survivors.
//  3. Compact (optional): survivors are packed, in list order, at the front
//     of the region. A forwarding table built before any byte moves is used
//     to rewrite next links, pair fields, roots and pins. Without compaction
//     reclaimed slots go to a free-slot bitmap and are reused first.
//  4. Threshold: maxValues becomes twice the survivor count.
//
// Pair fields that referred to reclaimed values are cleared to Nil in both
// modes, so no survivor ever refers to reclaimed storage.
//
// # Concurrency
//
// A Space is owned by one goroutine. A cycle must not be re-entered.
package collector
