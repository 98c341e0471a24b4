// Package metric exports heap metrics to Prometheus.
package metric

import (
	"github.com/hupe1980/gcheap"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements gcheap.MetricsCollector.
type PrometheusCollector struct {
	allocs      *prometheus.CounterVec
	collections *prometheus.CounterVec
	latency     prometheus.Histogram
	reclaimed   prometheus.Counter
	moved       prometheus.Counter
	survivors   prometheus.Gauge
	threshold   prometheus.Gauge
	conversions *prometheus.CounterVec
}

// NewPrometheusCollector creates the heap metrics and registers them with
// reg. A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &PrometheusCollector{
		allocs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gcheap_allocations_total",
			Help: "Total value allocations",
		}, []string{"kind", "status"}),
		collections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gcheap_collections_total",
			Help: "Total collection cycles completed",
		}, []string{"trigger"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gcheap_collection_duration_seconds",
			Help:    "Duration of collection cycles",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		reclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gcheap_reclaimed_values_total",
			Help: "Total values reclaimed by collection",
		}),
		moved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gcheap_moved_values_total",
			Help: "Total values relocated by compaction",
		}),
		survivors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gcheap_survivors",
			Help: "Values that survived the most recent collection",
		}),
		threshold: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gcheap_threshold",
			Help: "Live count that triggers the next collection",
		}),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gcheap_conversions_total",
			Help: "Total conversion requests",
		}, []string{"to", "status"}),
	}

	for _, col := range []prometheus.Collector{
		c.allocs, c.collections, c.latency, c.reclaimed,
		c.moved, c.survivors, c.threshold, c.conversions,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordAlloc implements gcheap.MetricsCollector.
func (c *PrometheusCollector) RecordAlloc(kind gcheap.Kind, err error) {
	c.allocs.WithLabelValues(kind.String(), status(err)).Inc()
}

// RecordCollect implements gcheap.MetricsCollector.
func (c *PrometheusCollector) RecordCollect(stats gcheap.CollectStats) {
	trigger := "explicit"
	if stats.Implicit {
		trigger = "threshold"
	}
	c.collections.WithLabelValues(trigger).Inc()
	c.latency.Observe(stats.Duration.Seconds())
	c.reclaimed.Add(float64(stats.Reclaimed))
	c.moved.Add(float64(stats.Moved))
	c.survivors.Set(float64(stats.Remaining))
	c.threshold.Set(float64(stats.Threshold))
}

// RecordConversion implements gcheap.MetricsCollector.
func (c *PrometheusCollector) RecordConversion(_, to gcheap.Kind, err error) {
	c.conversions.WithLabelValues(to.String(), status(err)).Inc()
}
