package seq

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no element exists at the requested position.
	ErrNotFound = errors.New("element not found")
	// ErrInvariant marks an internal inconsistency. The operation that hit
	// it was aborted without changing state.
	ErrInvariant = errors.New("sequence invariant violated")

	ErrUnknownStore    = errors.New("unknown store kind")
	ErrDuplicateStore  = errors.New("store kind already registered")
	ErrUnknownSequence = errors.New("unknown sequence")
)

// BoundsError reports an index outside the readable range, including a
// tail-buffer lookup past the last buffered element.
type BoundsError struct {
	Index int
	Start int
	Len   int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("index %d out of range [%d, %d)", e.Index, e.Start, e.Start+e.Len)
}

// StoreError wraps a failure reported by the backing store.
type StoreError struct {
	Op    string
	SeqID string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %q: %v", e.Op, e.SeqID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
