package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/tokenstore/core/metrics"
	"github.com/codewandler/tokenstore/core/seq"
)

// seqMetrics implements seq.Metrics using Prometheus.
type seqMetrics struct {
	appended          *prometheus.CounterVec
	flushed           *prometheus.CounterVec
	flushDuration     *prometheus.HistogramVec
	storeReadDuration *prometheus.HistogramVec
	lookasideHits     *prometheus.CounterVec
	lookasideMisses   *prometheus.CounterVec
	buffered          *prometheus.GaugeVec
}

// NewSeqMetrics creates a new Prometheus implementation of seq.Metrics.
func NewSeqMetrics(reg prometheus.Registerer) seq.Metrics {
	m := &seqMetrics{
		appended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seq_appended_total",
			Help:      "Total number of elements appended to sequences",
		}, []string{"store"}),

		flushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seq_flushed_total",
			Help:      "Total number of elements written to the backing store",
		}, []string{"store"}),

		flushDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "seq_flush_duration_seconds",
			Help:      "Backing store write latency in seconds",
			Buckets:   defaultBuckets,
		}, []string{"store"}),

		storeReadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "seq_store_read_duration_seconds",
			Help:      "Backing store read latency in seconds",
			Buckets:   defaultBuckets,
		}, []string{"store"}),

		lookasideHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seq_lookaside_hits_total",
			Help:      "Reads below the tail buffer served by the lookaside cache",
		}, []string{"store"}),

		lookasideMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seq_lookaside_misses_total",
			Help:      "Reads below the tail buffer that went to the backing store",
		}, []string{"store"}),

		buffered: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "seq_buffered",
			Help:      "Elements waiting in tail buffers",
		}, []string{"store"}),
	}

	reg.MustRegister(
		m.appended,
		m.flushed,
		m.flushDuration,
		m.storeReadDuration,
		m.lookasideHits,
		m.lookasideMisses,
		m.buffered,
	)

	return m
}

func (m *seqMetrics) Appended(store string, count int) {
	m.appended.WithLabelValues(store).Add(float64(count))
}

func (m *seqMetrics) Flushed(store string, count int) {
	m.flushed.WithLabelValues(store).Add(float64(count))
}

func (m *seqMetrics) FlushDuration(store string) metrics.Timer {
	return newTimer(m.flushDuration.WithLabelValues(store))
}

func (m *seqMetrics) StoreReadDuration(store string) metrics.Timer {
	return newTimer(m.storeReadDuration.WithLabelValues(store))
}

func (m *seqMetrics) CacheHit(store string) {
	m.lookasideHits.WithLabelValues(store).Inc()
}

func (m *seqMetrics) CacheMiss(store string) {
	m.lookasideMisses.WithLabelValues(store).Inc()
}

func (m *seqMetrics) Buffered(store string, delta int) {
	m.buffered.WithLabelValues(store).Add(float64(delta))
}

var _ seq.Metrics = (*seqMetrics)(nil)
