package cache

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Statistics counts cache activity since creation or the last Reset.
// Only the owning cache increments it; readers get a live view.
type Statistics struct {
	hits    atomic.Uint64
	misses  atomic.Uint64
	cached  atomic.Uint64
	evicted atomic.Uint64
}

func (s *Statistics) Hits() uint64    { return s.hits.Load() }
func (s *Statistics) Misses() uint64  { return s.misses.Load() }
func (s *Statistics) Cached() uint64  { return s.cached.Load() }
func (s *Statistics) Evicted() uint64 { return s.evicted.Load() }

// HitRatio returns hits/(hits+misses). ok is false when nothing was read yet.
func (s *Statistics) HitRatio() (ratio float64, ok bool) {
	return s.Snapshot().HitRatio()
}

// Reset zeroes all counters.
func (s *Statistics) Reset() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.cached.Store(0)
	s.evicted.Store(0)
}

// Snapshot copies the counters. Use EvictionCache.Snapshot when the four
// values must be consistent with each other.
func (s *Statistics) Snapshot() Snapshot {
	return Snapshot{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Cached:  s.cached.Load(),
		Evicted: s.evicted.Load(),
	}
}

func (s *Statistics) String() string { return s.Snapshot().String() }

// Snapshot is a point-in-time copy of Statistics.
type Snapshot struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Cached  uint64 `json:"cached"`
	Evicted uint64 `json:"evicted"`
}

func (s Snapshot) HitRatio() (float64, bool) {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0, false
	}
	return float64(s.Hits) / float64(total), true
}

func (s Snapshot) String() string {
	var sb strings.Builder
	sb.WriteString("cache statistics:\n")
	fmt.Fprintf(&sb, "  cached:  %d\n", s.Cached)
	fmt.Fprintf(&sb, "  evicted: %d\n", s.Evicted)
	fmt.Fprintf(&sb, "  hits:    %d\n", s.Hits)
	fmt.Fprintf(&sb, "  misses:  %d\n", s.Misses)
	if ratio, ok := s.HitRatio(); ok {
		fmt.Fprintf(&sb, "  ratio:   %.4f", ratio)
	} else {
		sb.WriteString("  ratio:   n/a")
	}
	return sb.String()
}
