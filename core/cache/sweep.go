package cache

import (
	"log/slog"
	"time"
)

func (c *EvictionCache[K, V]) startSweep(interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := c.sweep(); n > 0 {
					c.log.Debug("swept reclaimed entries", slog.Int("count", n))
				}
			case <-c.stopCh:
				return
			}
		}
	}()
}

// sweep evicts every entry whose value has been reclaimed and returns how
// many were dropped.
func (c *EvictionCache[K, V]) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for elem := c.recency.Back(); elem != nil; {
		prev := elem.Prev()
		if _, ok := elem.Value.(*entry[K, V]).ref.value(); !ok {
			c.removeLocked(elem)
			c.stats.evicted.Add(1)
			n++
		}
		elem = prev
	}
	return n
}

// Close stops the background sweep. It is safe to call more than once and
// on caches that never started one.
func (c *EvictionCache[K, V]) Close() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}
