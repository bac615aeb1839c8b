// Package cache provides a bounded, least-recently-touched eviction cache
// with hit/miss statistics and an on/off switch.
//
// # EvictionCache
//
// [EvictionCache] bounds its size with [Opts.Capacity]. When a new key
// would exceed it, the entry touched longest ago (inserted or read) is
// evicted. Ties cannot happen: touches are totally ordered.
//
//	c := cache.New[int](cache.Opts[*Token]{Name: "tokens", Capacity: 1000})
//	defer c.Close()
//
//	c.Put(42, tok)
//	if tok, ok := c.Get(42); ok {
//	    // use tok
//	}
//
// # Retention
//
// Values are held by a [Retention]. [Strong] (the default) keeps them until
// eviction. [Weak] keeps pointer values through weak pointers, so the
// garbage collector can reclaim a value nobody else references. A
// reclaimed value reads as a miss and the entry is evicted. Combine Weak
// with [Opts.SweepInterval] to also drop such entries in the background.
//
// # Switch
//
// A deactivated cache misses on every read and reports false from
// [EvictionCache.Contains], but still records writes. Share a [Switch]
// between caches to toggle them together.
//
// # Statistics
//
// [EvictionCache.Stats] returns live counters; [EvictionCache.Snapshot]
// returns a consistent copy for export.
package cache
