package cache

import (
	"container/list"
	"log/slog"
	"sync"
	"time"
)

// Opts configures an EvictionCache.
type Opts[V any] struct {
	// Name shows up in logs.
	Name string
	// Capacity bounds the number of entries. Zero or less means unbounded.
	Capacity int
	// Retention defaults to Strong.
	Retention Retention[V]
	// Switch lets several caches share one on/off toggle. Each cache gets
	// its own when nil.
	Switch *Switch
	// SweepInterval starts a background sweep that drops reclaimed values.
	// Only useful together with Weak retention.
	SweepInterval time.Duration
	Log           *slog.Logger
}

type entry[K comparable, V any] struct {
	key     K
	ref     holder[V]
	touched time.Time
}

// EvictionCache is a bounded cache that evicts the least recently touched
// entry when full and tolerates values vanishing under weak retention.
// It is safe for concurrent use.
type EvictionCache[K comparable, V any] struct {
	mu        sync.Mutex
	log       *slog.Logger
	name      string
	capacity  int
	retention Retention[V]
	sw        *Switch
	stats     Statistics

	// items and recency always change together: every key in items has
	// exactly one element in recency, most recently touched at the front.
	items   map[K]*list.Element
	recency *list.List

	stopOnce sync.Once
	stopCh   chan struct{}
}

func New[K comparable, V any](opts Opts[V]) *EvictionCache[K, V] {
	if opts.Name == "" {
		opts.Name = "unknown"
	}
	if opts.Retention == nil {
		opts.Retention = Strong[V]()
	}
	if opts.Switch == nil {
		opts.Switch = NewSwitch()
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	c := &EvictionCache[K, V]{
		log:       opts.Log.With(slog.String("cache", opts.Name)),
		name:      opts.Name,
		capacity:  opts.Capacity,
		retention: opts.Retention,
		sw:        opts.Switch,
		items:     make(map[K]*list.Element),
		recency:   list.New(),
		stopCh:    make(chan struct{}),
	}

	c.startSweep(opts.SweepInterval)

	return c
}

func (c *EvictionCache[K, V]) Name() string { return c.name }

// Put caches val under key, overwriting any previous value. A new key that
// would push the cache past its capacity first evicts the least recently
// touched entry.
func (c *EvictionCache[K, V]) Put(key K, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry[K, V])
		e.ref = c.retention(val)
		e.touched = now
		c.recency.MoveToFront(elem)
		c.stats.cached.Add(1)
		return
	}

	if c.capacity > 0 && len(c.items) >= c.capacity {
		if !c.evictOldestLocked() {
			return
		}
	}

	elem := c.recency.PushFront(&entry[K, V]{key: key, ref: c.retention(val), touched: now})
	c.items[key] = elem
	c.stats.cached.Add(1)
}

// Get returns the value cached under key. A deactivated cache always
// misses. A value that was reclaimed is evicted and reported as a miss.
func (c *EvictionCache[K, V]) Get(key K) (out V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.sw.IsActive() {
		c.stats.misses.Add(1)
		return out, false
	}

	elem, found := c.items[key]
	if !found {
		c.stats.misses.Add(1)
		c.log.Debug("cache miss", slog.Any("key", key))
		return out, false
	}

	e := elem.Value.(*entry[K, V])
	out, ok = e.ref.value()
	if !ok {
		c.removeLocked(elem)
		c.stats.evicted.Add(1)
		c.stats.misses.Add(1)
		c.log.Debug("cache miss (reclaimed)", slog.Any("key", key))
		return out, false
	}

	e.touched = time.Now()
	c.recency.MoveToFront(elem)
	c.stats.hits.Add(1)
	c.log.Debug("cache hit", slog.Any("key", key))
	return out, true
}

// Delete removes key. Deleting an absent key is a no-op.
func (c *EvictionCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeLocked(elem)
	}
}

// Contains reports whether key maps to a live value. A reclaimed value is
// dropped on the way without counting as an eviction.
func (c *EvictionCache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.sw.IsActive() {
		return false
	}

	elem, ok := c.items[key]
	if !ok {
		return false
	}
	if _, live := elem.Value.(*entry[K, V]).ref.value(); !live {
		c.removeLocked(elem)
		return false
	}
	return true
}

// Touched returns when key was last inserted or read. Reclaimed values
// still report their last touch until they are observed missing.
func (c *EvictionCache[K, V]) Touched(key K) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return time.Time{}, false
	}
	return elem.Value.(*entry[K, V]).touched, true
}

// Clear drops every entry. Statistics are kept.
func (c *EvictionCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*list.Element)
	c.recency.Init()
}

// Len counts entries whose values are still live.
func (c *EvictionCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for elem := c.recency.Front(); elem != nil; elem = elem.Next() {
		if _, ok := elem.Value.(*entry[K, V]).ref.value(); ok {
			n++
		}
	}
	return n
}

// Values returns all live values, most recently touched first.
func (c *EvictionCache[K, V]) Values() []V {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]V, 0, len(c.items))
	for elem := c.recency.Front(); elem != nil; elem = elem.Next() {
		if v, ok := elem.Value.(*entry[K, V]).ref.value(); ok {
			out = append(out, v)
		}
	}
	return out
}

// Stats returns the live statistics of this cache.
func (c *EvictionCache[K, V]) Stats() *Statistics { return &c.stats }

// Snapshot copies the statistics while holding the cache lock, so the
// counters are consistent with each other.
func (c *EvictionCache[K, V]) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.Snapshot()
}

func (c *EvictionCache[K, V]) Activate()      { c.sw.Activate() }
func (c *EvictionCache[K, V]) Deactivate()    { c.sw.Deactivate() }
func (c *EvictionCache[K, V]) IsActive() bool { return c.sw.IsActive() }

// evictOldestLocked drops the least recently touched entry. It returns
// false if the cache structures disagree, in which case nothing is done.
func (c *EvictionCache[K, V]) evictOldestLocked() bool {
	elem := c.recency.Back()
	if elem == nil || c.recency.Len() != len(c.items) {
		c.log.Error(
			"cache index out of sync, refusing to evict",
			slog.Int("items", len(c.items)),
			slog.Int("recency", c.recency.Len()),
		)
		return false
	}
	c.removeLocked(elem)
	c.stats.evicted.Add(1)
	return true
}

func (c *EvictionCache[K, V]) removeLocked(elem *list.Element) {
	c.recency.Remove(elem)
	delete(c.items, elem.Value.(*entry[K, V]).key)
}
