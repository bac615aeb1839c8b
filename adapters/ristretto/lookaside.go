// Package ristretto provides a sequence lookaside cache backed by
// github.com/dgraph-io/ristretto, for workloads where admission by access
// frequency beats plain recency.
package ristretto

import (
	"github.com/dgraph-io/ristretto"

	"github.com/codewandler/tokenstore/core/cache"
)

// Lookaside caches sequence elements by position. Every element costs 1, so
// capacity is an element count.
type Lookaside[T any] struct {
	cache *ristretto.Cache
}

// New creates a Lookaside holding up to capacity elements.
func New[T any](capacity int64) (*Lookaside[T], error) {
	// NumCounters should be ~10x the number of entries for optimal performance
	numCounters := capacity * 10
	if numCounters < 1000 {
		numCounters = 1000
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     capacity,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}
	return &Lookaside[T]{cache: c}, nil
}

func (l *Lookaside[T]) Get(pos int) (out T, ok bool) {
	v, found := l.cache.Get(pos)
	if !found {
		return out, false
	}
	out, ok = v.(T)
	if !ok {
		l.cache.Del(pos)
	}
	return out, ok
}

// Put may be rejected by the admission policy, in which case a later Get
// simply misses.
func (l *Lookaside[T]) Put(pos int, v T) {
	_ = l.cache.Set(pos, v, 1)
	// Wait for value to pass through buffers
	l.cache.Wait()
}

func (l *Lookaside[T]) Delete(pos int) {
	l.cache.Del(pos)
}

// Snapshot maps ristretto's counters onto cache statistics.
func (l *Lookaside[T]) Snapshot() cache.Snapshot {
	m := l.cache.Metrics
	return cache.Snapshot{
		Hits:    m.Hits(),
		Misses:  m.Misses(),
		Cached:  m.KeysAdded(),
		Evicted: m.KeysEvicted(),
	}
}

func (l *Lookaside[T]) Close() {
	l.cache.Close()
}

var _ cache.Cache[int, any] = (*Lookaside[any])(nil)
