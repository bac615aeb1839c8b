package cache

import "weak"

// holder keeps a cached value alive, or not.
type holder[V any] interface {
	// value returns the held value and whether it is still reachable.
	value() (V, bool)
}

// Retention decides how strongly an EvictionCache holds its values.
type Retention[V any] func(V) holder[V]

type strongHolder[V any] struct{ v V }

func (h strongHolder[V]) value() (V, bool) { return h.v, true }

// Strong holds values until they are evicted or deleted. It is the
// default retention.
func Strong[V any]() Retention[V] {
	return func(v V) holder[V] { return strongHolder[V]{v: v} }
}

type weakHolder[T any] struct{ p weak.Pointer[T] }

func (h weakHolder[T]) value() (*T, bool) {
	v := h.p.Value()
	return v, v != nil
}

// Weak holds pointer values through a weak.Pointer. Once nothing outside
// the cache references a value, the garbage collector may reclaim it and
// the entry reads as lost on its next access.
//
// Unlike a soft reference, reclamation is not tied to memory pressure:
// an unreferenced value can go at the next GC cycle.
func Weak[T any]() Retention[*T] {
	return func(v *T) holder[*T] {
		if v == nil {
			return strongHolder[*T]{v: v}
		}
		return weakHolder[T]{p: weak.Make(v)}
	}
}
