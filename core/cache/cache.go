package cache

// Cache is the minimal read/write port a consumer needs from a cache.
// A Get miss is always possible: implementations may drop entries at any
// time, under capacity pressure or because a value was reclaimed.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Put(key K, val V)
	Delete(key K)
}

var (
	_ Cache[string, any] = (*EvictionCache[string, any])(nil)
	_ Cache[string, any] = (*Nop[string, any])(nil)
)
