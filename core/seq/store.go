package seq

import (
	"context"
	"fmt"
)

// Store persists flushed elements of many sequences, keyed by sequence id
// and position.
type Store[T any] interface {
	// Write appends batch to the sequence, at positions Count..Count+n-1,
	// and returns how many elements were written.
	Write(ctx context.Context, seqID string, batch []T) (int, error)
	// ReadAt returns the element at index, or an error matching
	// ErrNotFound.
	ReadAt(ctx context.Context, seqID string, index int) (T, error)
	// Count returns the number of stored elements of the sequence.
	Count(ctx context.Context, seqID string) (int, error)
}

// Named lets a store choose the label it is reported under in metrics.
type Named interface {
	Name() string
}

func storeName(s any) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}
