package seq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// InMemoryStore is a Store for tests and development.
type InMemoryStore[T any] struct {
	mu      sync.RWMutex
	log     *slog.Logger
	streams map[string][]T
}

func NewInMemoryStore[T any]() *InMemoryStore[T] {
	return &InMemoryStore[T]{
		log:     slog.Default().With(slog.String("store", "memory")),
		streams: map[string][]T{},
	}
}

func (s *InMemoryStore[T]) Name() string { return "memory" }

func (s *InMemoryStore[T]) Write(_ context.Context, seqID string, batch []T) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.streams[seqID] = append(s.streams[seqID], batch...)
	s.log.Debug(
		"write",
		slog.String("seq", seqID),
		slog.Int("count", len(batch)),
		slog.Int("total", len(s.streams[seqID])),
	)
	return len(batch), nil
}

func (s *InMemoryStore[T]) ReadAt(_ context.Context, seqID string, index int) (out T, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[seqID]
	if index < 0 || index >= len(stream) {
		return out, fmt.Errorf("%w: %s[%d]", ErrNotFound, seqID, index)
	}
	return stream[index], nil
}

func (s *InMemoryStore[T]) Count(_ context.Context, seqID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.streams[seqID]), nil
}

var _ Store[any] = (*InMemoryStore[any])(nil)
