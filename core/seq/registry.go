package seq

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/codewandler/tokenstore/core/sf"
)

// Factory creates the store for one registered kind.
type Factory[T any] func(ctx context.Context) (Store[T], error)

// StoreRegistry maps store kinds such as "memory" or "postgres" to
// factories and hands out one store instance per kind.
type StoreRegistry[T any] struct {
	mu        sync.Mutex
	factories map[string]Factory[T]
	stores    map[string]Store[T]
	opening   *sf.Group[Store[T]]
}

func NewStoreRegistry[T any]() *StoreRegistry[T] {
	return &StoreRegistry[T]{
		factories: map[string]Factory[T]{},
		stores:    map[string]Store[T]{},
		opening:   sf.New[Store[T]](),
	}
}

func (r *StoreRegistry[T]) Register(kind string, f Factory[T]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[kind]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateStore, kind)
	}
	r.factories[kind] = f
	return nil
}

// Open returns the store of the given kind, creating it on first use.
// Concurrent first calls share one factory call. A failed factory call is
// not memoized.
func (r *StoreRegistry[T]) Open(ctx context.Context, kind string) (Store[T], error) {
	r.mu.Lock()
	if s, ok := r.stores[kind]; ok {
		r.mu.Unlock()
		return s, nil
	}
	f, ok := r.factories[kind]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, kind)
	}

	s, _, err := r.opening.Do(kind, func() (Store[T], error) {
		r.mu.Lock()
		if s, ok := r.stores[kind]; ok {
			r.mu.Unlock()
			return s, nil
		}
		r.mu.Unlock()

		s, err := f(ctx)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.stores[kind] = s
		r.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", kind, err)
	}
	return s, nil
}

// Kinds lists the registered kinds in sorted order.
func (r *StoreRegistry[T]) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
