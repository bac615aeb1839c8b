package prometheus

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewandler/tokenstore/core/cache"
	"github.com/codewandler/tokenstore/core/seq"
	"github.com/codewandler/tokenstore/core/token"
)

func TestNewSeqMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSeqMetrics(reg)

	require.NotNil(t, m)

	m.Appended("memory", 5)
	m.Flushed("memory", 3)
	m.Buffered("memory", 5)
	m.Buffered("memory", -3)
	m.CacheHit("memory")
	m.CacheMiss("memory")

	timer := m.FlushDuration("memory")
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	timer = m.StoreReadDuration("memory")
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	mfs, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}

	assert.True(t, names["tokenstore_seq_appended_total"])
	assert.True(t, names["tokenstore_seq_flush_duration_seconds"])
	assert.True(t, names["tokenstore_seq_store_read_duration_seconds"])
	assert.True(t, names["tokenstore_seq_buffered"])

	sm := m.(*seqMetrics)
	assert.InDelta(t, 2, testutil.ToFloat64(sm.buffered.WithLabelValues("memory")), 1e-9)
	assert.InDelta(t, 5, testutil.ToFloat64(sm.appended.WithLabelValues("memory")), 1e-9)
}

func TestSeqMetrics_WiredIntoSequence(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSeqMetrics(reg).(*seqMetrics)

	s, err := seq.Open(t.Context(), seq.NewInMemoryStore[int](), seq.Options[int]{Threshold: 4, Metrics: m})
	require.NoError(t, err)
	_, err = s.Append(t.Context(), 1, 2, 3, 4, 5, 6)
	require.NoError(t, err)

	assert.InDelta(t, 6, testutil.ToFloat64(m.appended.WithLabelValues("memory")), 1e-9)
	assert.InDelta(t, 4, testutil.ToFloat64(m.flushed.WithLabelValues("memory")), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(m.buffered.WithLabelValues("memory")), 1e-9)
}

func TestCacheCollector(t *testing.T) {
	c := cache.New[string](cache.Opts[int]{Capacity: 1})
	coll := NewCacheCollector("tokens", c)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(coll))

	// no reads yet, so no ratio
	require.Equal(t, 4, testutil.CollectAndCount(coll))

	c.Put("a", 1)
	c.Get("a")
	c.Get("b")
	c.Put("b", 2)

	expected := `
# HELP tokenstore_cache_hit_ratio hits / (hits + misses), absent before the first read
# TYPE tokenstore_cache_hit_ratio gauge
tokenstore_cache_hit_ratio{cache="tokens"} 0.5
# HELP tokenstore_cache_evicted_total Entries dropped for capacity or because the value was reclaimed
# TYPE tokenstore_cache_evicted_total counter
tokenstore_cache_evicted_total{cache="tokens"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"tokenstore_cache_hit_ratio", "tokenstore_cache_evicted_total"))
	require.Equal(t, 5, testutil.CollectAndCount(coll))
}

func TestCacheCollector_Manager(t *testing.T) {
	m := seq.NewManager(seq.NewInMemoryStore[token.Token](), seq.ManagerOpts{})
	defer m.Close()

	ts, err := m.Open(t.Context(), "doc")
	require.NoError(t, err)
	_, err = ts.Append(t.Context(), "a b")
	require.NoError(t, err)

	coll := NewCacheCollector("manager", m)
	require.Equal(t, 4, testutil.CollectAndCount(coll, "tokenstore_cache_cached_total",
		"tokenstore_cache_hits_total", "tokenstore_cache_misses_total", "tokenstore_cache_evicted_total"))
}
