package seq

import "github.com/codewandler/tokenstore/core/metrics"

// Metrics instruments sequences. All methods are labelled with the store
// name and must be safe for concurrent use.
type Metrics interface {
	Appended(store string, count int)
	Flushed(store string, count int)
	FlushDuration(store string) metrics.Timer
	StoreReadDuration(store string) metrics.Timer
	CacheHit(store string)
	CacheMiss(store string)
	// Buffered moves the number of elements waiting in tail buffers.
	Buffered(store string, delta int)
}

type nopMetrics struct{}

func (nopMetrics) Appended(string, int)                   {}
func (nopMetrics) Flushed(string, int)                    {}
func (nopMetrics) FlushDuration(string) metrics.Timer     { return metrics.NopTimer() }
func (nopMetrics) StoreReadDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopMetrics) CacheHit(string)                        {}
func (nopMetrics) CacheMiss(string)                       {}
func (nopMetrics) Buffered(string, int)                   {}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }
