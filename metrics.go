package yocto

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; package
// metrics/prometheus provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordMerge is called after each DatabaseBuilder.Merge.
	RecordMerge(duration time.Duration, err error)

	// RecordBuild is called after each BuildWritable. size is the container
	// size in bytes, zero on failure.
	RecordBuild(docs int, size int64, duration time.Duration, err error)

	// RecordOpen is called after a container is opened.
	RecordOpen(size int64, duration time.Duration, err error)

	// RecordQuery is called after each Execute or Count. matched is the
	// number of documents satisfying the condition.
	RecordQuery(matched int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordMerge(time.Duration, error)             {}
func (NoopMetricsCollector) RecordBuild(int, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordOpen(int64, time.Duration, error)       {}
func (NoopMetricsCollector) RecordQuery(int, time.Duration, error)        {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	MergeCount      atomic.Int64
	MergeErrors     atomic.Int64
	BuildCount      atomic.Int64
	BuildErrors     atomic.Int64
	BuildDocuments  atomic.Int64
	BuildBytes      atomic.Int64
	OpenCount       atomic.Int64
	OpenErrors      atomic.Int64
	OpenBytes       atomic.Int64
	QueryCount      atomic.Int64
	QueryErrors     atomic.Int64
	QueryMatched    atomic.Int64
	QueryTotalNanos atomic.Int64
}

// RecordMerge implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMerge(_ time.Duration, err error) {
	b.MergeCount.Add(1)
	if err != nil {
		b.MergeErrors.Add(1)
	}
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(docs int, size int64, _ time.Duration, err error) {
	b.BuildCount.Add(1)
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.BuildDocuments.Add(int64(docs))
	b.BuildBytes.Add(size)
}

// RecordOpen implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOpen(size int64, _ time.Duration, err error) {
	b.OpenCount.Add(1)
	if err != nil {
		b.OpenErrors.Add(1)
		return
	}
	b.OpenBytes.Add(size)
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(matched int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
		return
	}
	b.QueryMatched.Add(int64(matched))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		MergeCount:     b.MergeCount.Load(),
		MergeErrors:    b.MergeErrors.Load(),
		BuildCount:     b.BuildCount.Load(),
		BuildErrors:    b.BuildErrors.Load(),
		BuildDocuments: b.BuildDocuments.Load(),
		BuildBytes:     b.BuildBytes.Load(),
		OpenCount:      b.OpenCount.Load(),
		OpenErrors:     b.OpenErrors.Load(),
		OpenBytes:      b.OpenBytes.Load(),
		QueryCount:     b.QueryCount.Load(),
		QueryErrors:    b.QueryErrors.Load(),
		QueryMatched:   b.QueryMatched.Load(),
		QueryAvgNanos:  b.getAvgQueryNanos(),
	}
}

func (b *BasicMetricsCollector) getAvgQueryNanos() int64 {
	count := b.QueryCount.Load()
	if count == 0 {
		return 0
	}
	return b.QueryTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	MergeCount     int64
	MergeErrors    int64
	BuildCount     int64
	BuildErrors    int64
	BuildDocuments int64
	BuildBytes     int64
	OpenCount      int64
	OpenErrors     int64
	OpenBytes      int64
	QueryCount     int64
	QueryErrors    int64
	QueryMatched   int64
	QueryAvgNanos  int64
}
