package gcheap

import (
	"io"
	"log/slog"

	"github.com/hupe1980/gcheap/internal/arena"
	"github.com/hupe1980/gcheap/internal/collector"
	"github.com/hupe1980/gcheap/internal/roots"
)

// MemoryAcquirer reserves arena capacity from a shared budget.
// *resource.Controller implements it.
type MemoryAcquirer = arena.MemoryAcquirer

type options struct {
	capacity         int
	rootStackSize    int
	threshold        int
	compact          bool
	markMode         collector.MarkMode
	offHeap          bool
	acquirer         MemoryAcquirer
	logger           *Logger
	metricsCollector MetricsCollector
	report           io.Writer
}

func defaultOptions() options {
	return options{
		capacity:         arena.DefaultCapacity,
		rootStackSize:    roots.DefaultCapacity,
		threshold:        collector.DefaultThreshold,
		compact:          true,
		markMode:         collector.MarkShallow,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
}

// Option configures a Heap.
type Option func(*options)

// WithCapacity sets the arena size in bytes (default 1 MiB).
// Every value occupies 24 bytes.
func WithCapacity(bytes int) Option {
	return func(o *options) {
		o.capacity = bytes
	}
}

// WithRootStackSize sets the number of roots the stack can hold (default 256).
func WithRootStackSize(n int) Option {
	return func(o *options) {
		o.rootStackSize = n
	}
}

// WithInitialThreshold sets the live count that triggers the first
// collection (default 8). Later thresholds adapt to twice the survivor count.
func WithInitialThreshold(n int) Option {
	return func(o *options) {
		o.threshold = n
	}
}

// WithoutCompaction disables the compaction phase. Reclaimed slots are then
// tracked in a free-slot set and reused before the cursor advances, and
// values never change offset.
func WithoutCompaction() Option {
	return func(o *options) {
		o.compact = false
	}
}

// WithTransitiveMarking makes the mark phase follow pairs to any depth.
//
// By default a rooted pair keeps only its immediate head and tail alive; a
// pair nested inside another pair is reclaimed unless rooted itself, and the
// field that referred to it is cleared to Nil.
func WithTransitiveMarking() Option {
	return func(o *options) {
		o.markMode = collector.MarkTransitive
	}
}

// WithOffHeap places the arena in an anonymous memory mapping outside the Go heap.
func WithOffHeap() Option {
	return func(o *options) {
		o.offHeap = true
	}
}

// WithMemoryAcquirer reserves the arena capacity from acquirer on New and
// releases it on Close.
//
// Example:
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 64 << 20})
//	h, err := gcheap.New(gcheap.WithMemoryAcquirer(rc))
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(o *options) {
		o.acquirer = acquirer
	}
}

// WithLogger configures structured logging. Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := gcheap.NewJSONLogger(slog.LevelInfo)
//	h, _ := gcheap.New(gcheap.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithReportWriter writes one line per collection cycle to w, in the form
//
//	Collected 3 values, 5 remaining.
func WithReportWriter(w io.Writer) Option {
	return func(o *options) {
		o.report = w
	}
}
