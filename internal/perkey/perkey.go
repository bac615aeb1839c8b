// Package perkey runs work one key at a time: tasks for the same key
// execute sequentially in submission order, tasks for different keys run
// concurrently.
package perkey

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("perkey: scheduler is closed")

type Option func(*config)

type config struct {
	queueSize int
}

// WithQueueSize sets how many tasks may wait per key (default: 16).
func WithQueueSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

type task struct {
	fn   func() error
	done chan error
}

// Scheduler owns one worker goroutine per key it has seen.
type Scheduler[K comparable] struct {
	mu        sync.Mutex
	queues    map[K]chan task
	closed    bool
	pending   sync.WaitGroup // submissions between the closed check and enqueue
	workers   sync.WaitGroup
	queueSize int
}

func New[K comparable](opts ...Option) *Scheduler[K] {
	cfg := config{queueSize: 16}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Scheduler[K]{
		queues:    make(map[K]chan task),
		queueSize: cfg.queueSize,
	}
}

// Go queues fn for key and returns a channel that receives its result.
// The channel is buffered, so callers may drop it. If ctx ends before the
// task could be queued, the channel receives ctx.Err() and fn never runs.
func (s *Scheduler[K]) Go(ctx context.Context, key K, fn func() error) <-chan error {
	done := make(chan error, 1)
	if err := ctx.Err(); err != nil {
		done <- err
		return done
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		done <- ErrClosed
		return done
	}
	q := s.queueLocked(key)
	s.pending.Add(1)
	s.mu.Unlock()
	defer s.pending.Done()

	select {
	case q <- task{fn: fn, done: done}:
	case <-ctx.Done():
		done <- ctx.Err()
	}
	return done
}

// Do is Go followed by waiting for the result. A task that was already
// queued still runs if ctx ends while waiting.
func (s *Scheduler[K]) Do(ctx context.Context, key K, fn func() error) error {
	select {
	case err := <-s.Go(ctx, key, fn):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks, lets queued tasks finish and waits for all
// workers to exit. It is safe to call more than once.
func (s *Scheduler[K]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.pending.Wait()

	s.mu.Lock()
	for _, q := range s.queues {
		close(q)
	}
	s.queues = nil
	s.mu.Unlock()

	s.workers.Wait()
}

func (s *Scheduler[K]) queueLocked(key K) chan task {
	if q, ok := s.queues[key]; ok {
		return q
	}
	q := make(chan task, s.queueSize)
	s.queues[key] = q
	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		for t := range q {
			t.done <- t.fn()
		}
	}()
	return q
}
