// Package prometheus exports yocto metrics through the Prometheus client
// library.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/yocto"
)

var _ yocto.MetricsCollector = (*Collector)(nil)

// Collector implements yocto.MetricsCollector with Prometheus vectors.
type Collector struct {
	latency   *prometheus.HistogramVec
	ops       *prometheus.CounterVec
	documents prometheus.Counter
	bytes     *prometheus.CounterVec
	matched   prometheus.Histogram
}

// NewCollector creates the collectors under namespace and registers them
// with reg. A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(namespace string, reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of database operations.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"op"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Database operations by kind and status.",
		}, []string{"op", "status"}),
		documents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "built_documents_total",
			Help:      "Documents written by successful builds.",
		}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "container_bytes_total",
			Help:      "Container bytes built or opened.",
		}, []string{"op"}),
		matched: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_matched_documents",
			Help:      "Documents matched per query.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}
	for _, col := range []prometheus.Collector{c.latency, c.ops, c.documents, c.bytes, c.matched} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.ops.WithLabelValues(op, status).Inc()
	c.latency.WithLabelValues(op).Observe(d.Seconds())
}

// RecordMerge implements yocto.MetricsCollector.
func (c *Collector) RecordMerge(d time.Duration, err error) {
	c.observe("merge", d, err)
}

// RecordBuild implements yocto.MetricsCollector.
func (c *Collector) RecordBuild(docs int, size int64, d time.Duration, err error) {
	c.observe("build", d, err)
	if err == nil {
		c.documents.Add(float64(docs))
		c.bytes.WithLabelValues("build").Add(float64(size))
	}
}

// RecordOpen implements yocto.MetricsCollector.
func (c *Collector) RecordOpen(size int64, d time.Duration, err error) {
	c.observe("open", d, err)
	if err == nil {
		c.bytes.WithLabelValues("open").Add(float64(size))
	}
}

// RecordQuery implements yocto.MetricsCollector.
func (c *Collector) RecordQuery(matched int, d time.Duration, err error) {
	c.observe("query", d, err)
	if err == nil {
		c.matched.Observe(float64(matched))
	}
}
