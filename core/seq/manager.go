package seq

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/codewandler/tokenstore/core/cache"
	"github.com/codewandler/tokenstore/core/sf"
	"github.com/codewandler/tokenstore/core/token"
	"github.com/codewandler/tokenstore/internal/perkey"
)

// LookasideFactory creates the lookaside cache of one sequence.
type LookasideFactory func(seqID string) (cache.Cache[int, token.Token], error)

type ManagerOpts struct {
	Threshold int
	// CacheCapacity bounds each sequence's default lookaside cache.
	CacheCapacity int
	// Switch turns all default lookaside caches on or off at once.
	Switch *cache.Switch
	// Lookaside replaces the default EvictionCache per sequence.
	Lookaside LookasideFactory
	// Compose is passed on to every opened token sequence.
	Compose bool
	Log     *slog.Logger
	Metrics Metrics
}

type snapshotter interface {
	Snapshot() cache.Snapshot
}

type managed struct {
	seq   *TokenSequence
	cache cache.Cache[int, token.Token]
}

// Manager opens token sequences over one store and keeps them open by id.
type Manager struct {
	store   Store[token.Token]
	opts    ManagerOpts
	log     *slog.Logger
	opening *sf.Group[*TokenSequence]
	workers *perkey.Scheduler[string]

	mu   sync.Mutex
	seqs map[string]*managed
}

func NewManager(store Store[token.Token], opts ManagerOpts) *Manager {
	if opts.CacheCapacity <= 0 {
		opts.CacheCapacity = DefaultCacheCapacity
	}
	if opts.Switch == nil {
		opts.Switch = cache.NewSwitch()
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NopMetrics()
	}
	if opts.Lookaside == nil {
		capacity, sw, log := opts.CacheCapacity, opts.Switch, opts.Log
		opts.Lookaside = func(id string) (cache.Cache[int, token.Token], error) {
			return cache.New[int](cache.Opts[token.Token]{
				Name:     id,
				Capacity: capacity,
				Switch:   sw,
				Log:      log,
			}), nil
		}
	}
	return &Manager{
		store:   store,
		opts:    opts,
		log:     opts.Log.With(slog.String("store", storeName(store))),
		opening: sf.New[*TokenSequence](),
		workers: perkey.New[string](),
		seqs:    map[string]*managed{},
	}
}

// Switch is shared by every default lookaside cache.
func (m *Manager) Switch() *cache.Switch { return m.opts.Switch }

// Open returns the sequence with the given id, opening it on first use.
func (m *Manager) Open(ctx context.Context, id string) (*TokenSequence, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrUnknownSequence)
	}
	if ts, ok := m.Get(id); ok {
		return ts, nil
	}

	ts, _, err := m.opening.Do(id, func() (*TokenSequence, error) {
		if ts, ok := m.Get(id); ok {
			return ts, nil
		}

		lookaside, err := m.opts.Lookaside(id)
		if err != nil {
			return nil, fmt.Errorf("lookaside for %s: %w", id, err)
		}
		ts, err := OpenTokens(ctx, m.store, Options[token.Token]{
			ID:        id,
			Threshold: m.opts.Threshold,
			Lookaside: lookaside,
			Compose:   m.opts.Compose,
			Log:       m.opts.Log,
			Metrics:   m.opts.Metrics,
		})
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.seqs[id] = &managed{seq: ts, cache: lookaside}
		m.mu.Unlock()
		m.log.Info("sequence opened", slog.String("seq", id))
		return ts, nil
	})
	return ts, err
}

func (m *Manager) Get(id string) (*TokenSequence, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.seqs[id]; ok {
		return e.seq, true
	}
	return nil, false
}

// IDs lists the open sequences in sorted order.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.seqs))
	for id := range m.seqs {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// FlushAsync flushes one sequence on its own worker. Flushes of the same
// sequence never overlap and run in submission order.
func (m *Manager) FlushAsync(ctx context.Context, id string) <-chan error {
	ts, ok := m.Get(id)
	if !ok {
		ch := make(chan error, 1)
		ch <- fmt.Errorf("%w: %s", ErrUnknownSequence, id)
		return ch
	}
	return m.workers.Go(ctx, id, func() error {
		_, err := ts.Flush(ctx)
		return err
	})
}

// FlushAll flushes every open sequence concurrently and returns the total
// number of elements written. The first error cancels the remaining
// flushes.
func (m *Manager) FlushAll(ctx context.Context) (int, error) {
	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)

	for _, id := range m.IDs() {
		ts, _ := m.Get(id)
		g.Go(func() error {
			return m.workers.Do(gctx, id, func() error {
				n, err := ts.Flush(gctx)
				total.Add(int64(n))
				return err
			})
		})
	}

	err := g.Wait()
	m.log.Debug("flushed all", slog.Int64("count", total.Load()), slog.Any("error", err))
	return int(total.Load()), err
}

// Snapshot sums the statistics of all lookaside caches that report them.
func (m *Manager) Snapshot() cache.Snapshot {
	var out cache.Snapshot
	for _, c := range m.lookasides() {
		src, ok := c.(snapshotter)
		if !ok {
			continue
		}
		s := src.Snapshot()
		out.Hits += s.Hits
		out.Misses += s.Misses
		out.Cached += s.Cached
		out.Evicted += s.Evicted
	}
	return out
}

func (m *Manager) lookasides() []cache.Cache[int, token.Token] {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]cache.Cache[int, token.Token], 0, len(m.seqs))
	for _, e := range m.seqs {
		out = append(out, e.cache)
	}
	return out
}

// Close stops the flush workers after queued flushes finish and closes the
// lookaside caches. It does not flush buffered tokens; call FlushAll first.
func (m *Manager) Close() {
	m.workers.Close()
	for _, c := range m.lookasides() {
		if closer, ok := c.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}
