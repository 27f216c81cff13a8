package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/yocto"
	ycprom "github.com/hupe1980/yocto/metrics/prometheus"
)

// commandMetrics collects the metrics of one command run. With a path set
// they are written in the Prometheus text format on flush, ready for the
// node_exporter textfile collector.
type commandMetrics struct {
	path      string
	registry  *prometheus.Registry
	collector yocto.MetricsCollector
}

func newCommandMetrics(path string) (*commandMetrics, error) {
	m := &commandMetrics{path: path, collector: yocto.NoopMetricsCollector{}}
	if path == "" {
		return m, nil
	}
	m.registry = prometheus.NewRegistry()
	c, err := ycprom.NewCollector("yocto", m.registry)
	if err != nil {
		return nil, err
	}
	m.collector = c
	return m, nil
}

func (m *commandMetrics) option() yocto.Option { return yocto.WithMetricsCollector(m.collector) }

func (m *commandMetrics) flush() error {
	if m.registry == nil {
		return nil
	}
	return prometheus.WriteToTextfile(m.path, m.registry)
}
