package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codewandler/tokenstore/core/cache"
)

// StatsSource is anything that can report cache statistics, such as an
// EvictionCache or a seq.Manager.
type StatsSource interface {
	Snapshot() cache.Snapshot
}

// CacheCollector exports the statistics of one StatsSource. Values are read
// on every scrape, so the counters follow Reset on the source.
type CacheCollector struct {
	src      StatsSource
	hits     *prometheus.Desc
	misses   *prometheus.Desc
	cached   *prometheus.Desc
	evicted  *prometheus.Desc
	hitRatio *prometheus.Desc
}

func NewCacheCollector(name string, src StatsSource) *CacheCollector {
	labels := prometheus.Labels{"cache": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", metric), help, nil, labels)
	}
	return &CacheCollector{
		src:      src,
		hits:     desc("hits_total", "Reads that found a live value"),
		misses:   desc("misses_total", "Reads that found nothing"),
		cached:   desc("cached_total", "Values written to the cache"),
		evicted:  desc("evicted_total", "Entries dropped for capacity or because the value was reclaimed"),
		hitRatio: desc("hit_ratio", "hits / (hits + misses), absent before the first read"),
	}
}

func (c *CacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.cached
	ch <- c.evicted
	ch <- c.hitRatio
}

func (c *CacheCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.cached, prometheus.CounterValue, float64(s.Cached))
	ch <- prometheus.MustNewConstMetric(c.evicted, prometheus.CounterValue, float64(s.Evicted))
	if ratio, ok := s.HitRatio(); ok {
		ch <- prometheus.MustNewConstMetric(c.hitRatio, prometheus.GaugeValue, ratio)
	}
}

var _ prometheus.Collector = (*CacheCollector)(nil)
