package sf

import "golang.org/x/sync/singleflight"

// Group deduplicates concurrent calls that share a key. Only the first
// caller runs fn; the others block and receive its result.
type Group[T any] struct {
	group singleflight.Group
}

// Do runs fn for key unless a call for key is already in flight, in which
// case it waits for that call. shared reports whether the result was
// delivered to more than one caller.
func (g *Group[T]) Do(key string, fn func() (T, error)) (out T, shared bool, err error) {
	v, err, shared := g.group.Do(key, func() (any, error) {
		return fn()
	})
	if err != nil {
		return out, shared, err
	}
	out, _ = v.(T)
	return out, shared, nil
}

// Forget drops key so the next Do call runs fn again even if one is in
// flight.
func (g *Group[T]) Forget(key string) { g.group.Forget(key) }

func New[T any]() *Group[T] {
	return &Group[T]{}
}
