package gcheap

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the metric
// package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordAlloc is called after each allocation attempt.
	// err is nil if the value was allocated.
	RecordAlloc(kind Kind, err error)

	// RecordCollect is called after each completed collection cycle.
	RecordCollect(stats CollectStats)

	// RecordConversion is called after each conversion request.
	// from is the zero Kind when the source was Nil.
	RecordConversion(from, to Kind, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAlloc(Kind, error)            {}
func (NoopMetricsCollector) RecordCollect(CollectStats)         {}
func (NoopMetricsCollector) RecordConversion(Kind, Kind, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AllocCount        atomic.Int64
	AllocErrors       atomic.Int64
	CollectCount      atomic.Int64
	ImplicitCollects  atomic.Int64
	Reclaimed         atomic.Int64
	Moved             atomic.Int64
	CollectTotalNanos atomic.Int64
	ConversionCount   atomic.Int64
	ConversionErrors  atomic.Int64
}

// RecordAlloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAlloc(_ Kind, err error) {
	b.AllocCount.Add(1)
	if err != nil {
		b.AllocErrors.Add(1)
	}
}

// RecordCollect implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCollect(stats CollectStats) {
	b.CollectCount.Add(1)
	if stats.Implicit {
		b.ImplicitCollects.Add(1)
	}
	b.Reclaimed.Add(int64(stats.Reclaimed))
	b.Moved.Add(int64(stats.Moved))
	b.CollectTotalNanos.Add(stats.Duration.Nanoseconds())
}

// RecordConversion implements MetricsCollector.
func (b *BasicMetricsCollector) RecordConversion(_, _ Kind, err error) {
	b.ConversionCount.Add(1)
	if err != nil {
		b.ConversionErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AllocCount:       b.AllocCount.Load(),
		AllocErrors:      b.AllocErrors.Load(),
		CollectCount:     b.CollectCount.Load(),
		ImplicitCollects: b.ImplicitCollects.Load(),
		Reclaimed:        b.Reclaimed.Load(),
		Moved:            b.Moved.Load(),
		CollectAvg:       b.avgCollect(),
		ConversionCount:  b.ConversionCount.Load(),
		ConversionErrors: b.ConversionErrors.Load(),
	}
}

func (b *BasicMetricsCollector) avgCollect() time.Duration {
	count := b.CollectCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(b.CollectTotalNanos.Load() / count)
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AllocCount       int64
	AllocErrors      int64
	CollectCount     int64
	ImplicitCollects int64
	Reclaimed        int64
	Moved            int64
	CollectAvg       time.Duration
	ConversionCount  int64
	ConversionErrors int64
}
