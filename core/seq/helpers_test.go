package seq

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/codewandler/tokenstore/core/metrics"
)

var errBoom = errors.New("boom")

// flakyStore wraps an InMemoryStore and injects failures on demand.
type flakyStore[T any] struct {
	*InMemoryStore[T]

	mu         sync.Mutex
	failWrites bool
	shortWrite bool
	readErr    error
	writes     int
	reads      int
}

func newFlakyStore[T any]() *flakyStore[T] {
	return &flakyStore[T]{InMemoryStore: NewInMemoryStore[T]()}
}

func (s *flakyStore[T]) set(fn func(s *flakyStore[T])) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *flakyStore[T]) Write(ctx context.Context, seqID string, batch []T) (int, error) {
	s.mu.Lock()
	s.writes++
	fail, short := s.failWrites, s.shortWrite
	s.mu.Unlock()

	if fail {
		return 0, errBoom
	}
	if short && len(batch) > 0 {
		return len(batch) - 1, nil
	}
	return s.InMemoryStore.Write(ctx, seqID, batch)
}

func (s *flakyStore[T]) ReadAt(ctx context.Context, seqID string, index int) (T, error) {
	s.mu.Lock()
	s.reads++
	err := s.readErr
	s.mu.Unlock()

	if err != nil {
		var zero T
		return zero, err
	}
	return s.InMemoryStore.ReadAt(ctx, seqID, index)
}

func (s *flakyStore[T]) Name() string { return "flaky" }

func (s *flakyStore[T]) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// recordingMetrics keeps running totals per counter.
type recordingMetrics struct {
	mu       sync.Mutex
	appended int
	flushed  int
	buffered int
	hits     int
	misses   int
	flushes  []time.Duration
}

func (m *recordingMetrics) Appended(_ string, n int) { m.add(&m.appended, n) }
func (m *recordingMetrics) Flushed(_ string, n int)  { m.add(&m.flushed, n) }
func (m *recordingMetrics) Buffered(_ string, d int) { m.add(&m.buffered, d) }
func (m *recordingMetrics) CacheHit(string)          { m.add(&m.hits, 1) }
func (m *recordingMetrics) CacheMiss(string)         { m.add(&m.misses, 1) }

func (m *recordingMetrics) FlushDuration(string) metrics.Timer {
	return metrics.StartStopwatch(func(d time.Duration) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.flushes = append(m.flushes, d)
	})
}

func (m *recordingMetrics) StoreReadDuration(string) metrics.Timer { return metrics.NopTimer() }

func (m *recordingMetrics) add(p *int, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*p += n
}

func (m *recordingMetrics) get(p *int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *p
}
