package seq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/codewandler/tokenstore/core/cache"
	"github.com/codewandler/tokenstore/core/sf"
)

const (
	DefaultThreshold     = 100
	DefaultCacheCapacity = 1000
)

type Mode int

const (
	// Buffered keeps new elements in a tail buffer until the threshold is
	// reached.
	Buffered Mode = iota
	// Direct writes every Append straight to the store.
	Direct
)

func (m Mode) String() string {
	switch m {
	case Buffered:
		return "buffered"
	case Direct:
		return "direct"
	default:
		return "mode(" + strconv.Itoa(int(m)) + ")"
	}
}

type Options[T any] struct {
	// ID identifies the sequence in the store. A random id is generated
	// when empty.
	ID string
	// Threshold is the tail size that triggers a flush. Zero means
	// DefaultThreshold, a negative value disables automatic flushing.
	Threshold int
	// Lookaside caches elements by position. It must not be shared
	// between sequences. Defaults to an EvictionCache holding
	// DefaultCacheCapacity elements.
	Lookaside cache.Cache[int, T]
	// Stamp is applied to each appended value with its final position.
	Stamp func(pos int, v T) T
	// Compose brings appended text into NFC before it is tokenized. Only
	// OpenTokens reads it.
	Compose bool
	Mode    Mode
	Log     *slog.Logger
	Metrics Metrics
}

// Sequence is an append-only list of elements. New elements sit in a tail
// buffer and are written to the Store in batches; reads fall back from the
// tail to the lookaside cache to the store.
type Sequence[T any] struct {
	id        string
	store     Store[T]
	storeName string
	lookaside cache.Cache[int, T]
	stamp     func(int, T) T
	threshold int
	log       *slog.Logger
	metrics   Metrics
	reads     *sf.Group[T]

	// mu guards mode, bufferStart and buffer. It is held across
	// Store.Write so a flush is atomic with respect to readers of the tail.
	mu          sync.Mutex
	mode        Mode
	bufferStart int
	buffer      []T
}

// Open attaches to the sequence opts.ID in store. Elements already stored
// stay readable and new ones are appended after them.
func Open[T any](ctx context.Context, store Store[T], opts Options[T]) (*Sequence[T], error) {
	if opts.ID == "" {
		opts.ID = gonanoid.Must()
	}
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Lookaside == nil {
		opts.Lookaside = cache.New[int](cache.Opts[T]{
			Name:     "tokens",
			Capacity: DefaultCacheCapacity,
			Log:      opts.Log,
		})
	}
	if opts.Stamp == nil {
		opts.Stamp = func(_ int, v T) T { return v }
	}
	if opts.Metrics == nil {
		opts.Metrics = NopMetrics()
	}

	name := storeName(store)
	count, err := store.Count(ctx, opts.ID)
	if err != nil {
		return nil, &StoreError{Op: "count", SeqID: opts.ID, Err: err}
	}

	s := &Sequence[T]{
		id:          opts.ID,
		store:       store,
		storeName:   name,
		lookaside:   opts.Lookaside,
		stamp:       opts.Stamp,
		threshold:   opts.Threshold,
		log:         opts.Log.With(slog.String("seq", opts.ID), slog.String("store", name)),
		metrics:     opts.Metrics,
		reads:       sf.New[T](),
		mode:        opts.Mode,
		bufferStart: count,
	}
	s.log.Debug("sequence opened", slog.Int("stored", count), slog.String("mode", s.mode.String()))
	return s, nil
}

func (s *Sequence[T]) ID() string { return s.id }

func (s *Sequence[T]) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// BufferStart is the position of the first buffered element, which equals
// the number of elements this sequence knows to be stored.
func (s *Sequence[T]) BufferStart() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bufferStart
}

// Buffered returns how many elements wait in the tail buffer.
func (s *Sequence[T]) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

// Append adds values at the end of the sequence and returns them as
// stamped.
//
// In Buffered mode the threshold is checked after each value, so one call
// can flush several times. If such a flush fails, Append stops: the values
// accepted so far (including the one that filled the buffer) stay buffered
// and are returned together with the error, and the remaining values of
// the call are not appended. The caller may retry them after a successful
// Flush.
func (s *Sequence[T]) Append(ctx context.Context, values ...T) ([]T, error) {
	if len(values) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == Direct {
		return s.appendDirectLocked(ctx, values)
	}

	out := make([]T, 0, len(values))
	defer func() { s.metrics.Appended(s.storeName, len(out)) }()

	for _, v := range values {
		pos := s.bufferStart + len(s.buffer)
		v = s.stamp(pos, v)
		s.buffer = append(s.buffer, v)
		s.lookaside.Put(pos, v)
		s.metrics.Buffered(s.storeName, 1)
		out = append(out, v)

		if s.threshold > 0 && len(s.buffer) >= s.threshold {
			if _, err := s.flushLocked(ctx); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

func (s *Sequence[T]) appendDirectLocked(ctx context.Context, values []T) ([]T, error) {
	count, err := s.store.Count(ctx, s.id)
	if err != nil {
		return nil, &StoreError{Op: "count", SeqID: s.id, Err: err}
	}

	batch := make([]T, len(values))
	for i, v := range values {
		batch[i] = s.stamp(count+i, v)
	}

	if err := s.writeLocked(ctx, batch); err != nil {
		return nil, err
	}
	for i, v := range batch {
		s.lookaside.Put(count+i, v)
	}
	s.bufferStart = count + len(batch)
	s.metrics.Appended(s.storeName, len(batch))
	return batch, nil
}

// Flush writes the tail buffer to the store as one batch and returns the
// number of elements written. On failure nothing changes.
func (s *Sequence[T]) Flush(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

func (s *Sequence[T]) flushLocked(ctx context.Context) (int, error) {
	n := len(s.buffer)
	if n == 0 {
		return 0, nil
	}

	if err := s.writeLocked(ctx, s.buffer); err != nil {
		return 0, err
	}

	s.bufferStart += n
	s.buffer = nil
	s.metrics.Buffered(s.storeName, -n)
	s.log.Debug("flushed", slog.Int("count", n), slog.Int("buffer_start", s.bufferStart))
	return n, nil
}

func (s *Sequence[T]) writeLocked(ctx context.Context, batch []T) error {
	timer := s.metrics.FlushDuration(s.storeName)
	n, err := s.store.Write(ctx, s.id, batch)
	timer.ObserveDuration()

	if err != nil {
		s.log.Warn("store write failed", slog.Int("count", len(batch)), slog.Any("error", err))
		return &StoreError{Op: "write", SeqID: s.id, Err: err}
	}
	if n != len(batch) {
		s.log.Error(
			"store acknowledged a partial write",
			slog.Int("written", n),
			slog.Int("count", len(batch)),
		)
		return fmt.Errorf("%w: store wrote %d of %d elements", ErrInvariant, n, len(batch))
	}
	s.metrics.Flushed(s.storeName, n)
	return nil
}

// Get returns the element at position i.
func (s *Sequence[T]) Get(ctx context.Context, i int) (out T, err error) {
	s.mu.Lock()
	if i < 0 {
		err = &BoundsError{Index: i, Start: 0, Len: s.bufferStart + len(s.buffer)}
		s.mu.Unlock()
		return out, err
	}
	if s.mode == Buffered && i >= s.bufferStart {
		defer s.mu.Unlock()
		off := i - s.bufferStart
		if off >= len(s.buffer) {
			return out, &BoundsError{Index: i, Start: s.bufferStart, Len: len(s.buffer)}
		}
		return s.buffer[off], nil
	}
	s.mu.Unlock()

	return s.readStored(ctx, i)
}

// readStored resolves a position below the tail through the lookaside and
// then the store. Concurrent misses on the same position share one read.
func (s *Sequence[T]) readStored(ctx context.Context, i int) (T, error) {
	if v, ok := s.lookaside.Get(i); ok {
		s.metrics.CacheHit(s.storeName)
		return v, nil
	}
	s.metrics.CacheMiss(s.storeName)

	v, _, err := s.reads.Do(strconv.Itoa(i), func() (T, error) {
		defer s.metrics.StoreReadDuration(s.storeName).ObserveDuration()
		v, err := s.store.ReadAt(ctx, s.id, i)
		if err != nil {
			return v, err
		}
		s.lookaside.Put(i, v)
		return v, nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return v, err
		}
		return v, &StoreError{Op: "read", SeqID: s.id, Err: err}
	}
	return v, nil
}

// Size returns the logical length: stored plus buffered elements.
func (s *Sequence[T]) Size(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.mode == Buffered {
		defer s.mu.Unlock()
		return s.bufferStart + len(s.buffer), nil
	}
	s.mu.Unlock()

	n, err := s.store.Count(ctx, s.id)
	if err != nil {
		return 0, &StoreError{Op: "count", SeqID: s.id, Err: err}
	}
	return n, nil
}

// SwitchToDirect flushes the tail and then writes every later Append
// straight to the store. There is no way back.
func (s *Sequence[T]) SwitchToDirect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == Direct {
		return nil
	}
	if _, err := s.flushLocked(ctx); err != nil {
		return err
	}
	s.mode = Direct
	s.log.Info("switched to direct mode", slog.Int("stored", s.bufferStart))
	return nil
}

// Each calls fn for every element in position order. It stops at the first
// error returned by fn, a read or ctx.
func (s *Sequence[T]) Each(ctx context.Context, fn func(i int, v T) error) error {
	s.mu.Lock()
	mode := s.mode
	stored := s.bufferStart
	tail := slices.Clone(s.buffer)
	s.mu.Unlock()

	if mode == Direct {
		n, err := s.store.Count(ctx, s.id)
		if err != nil {
			return &StoreError{Op: "count", SeqID: s.id, Err: err}
		}
		stored = n
	}

	for i := 0; i < stored; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, err := s.readStored(ctx, i)
		if err != nil {
			return err
		}
		if err := fn(i, v); err != nil {
			return err
		}
	}
	for off, v := range tail {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(stored+off, v); err != nil {
			return err
		}
	}
	return nil
}
