package cache

import (
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvictionCache_Basic(t *testing.T) {
	c := New[string](Opts[int]{Capacity: 2})
	defer c.Close()

	c.Put("a", 1)
	c.Put("b", 2)

	val, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, val)

	c.Put("c", 3) // evicts "b", "a" was touched more recently

	_, ok = c.Get("b")
	require.False(t, ok)
	require.True(t, c.Contains("a"))
	require.True(t, c.Contains("c"))
	require.Equal(t, 2, c.Len())
}

func TestEvictionCache_Overwrite(t *testing.T) {
	c := New[string](Opts[int]{Capacity: 2})

	c.Put("a", 1)
	c.Put("a", 2)

	val, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 2, val)
	require.Equal(t, 1, c.Len())

	s := c.Snapshot()
	require.EqualValues(t, 2, s.Cached)
	require.EqualValues(t, 0, s.Evicted)
}

func TestEvictionCache_CapacityNeverExceeded(t *testing.T) {
	const capacity = 16
	c := New[int](Opts[string]{Capacity: capacity})

	for i := 0; i < 500; i++ {
		c.Put(i%97, fmt.Sprintf("v%d", i))
		if i%3 == 0 {
			c.Get(i % 11)
		}
		require.LessOrEqual(t, c.Len(), capacity)
	}
}

func TestEvictionCache_EvictsOldestTouch(t *testing.T) {
	c := New[string](Opts[int]{Capacity: 3})

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	// touch order is now b, c, a (oldest first)
	c.Get("a")

	c.Put("d", 4)
	require.False(t, c.Contains("b"))

	c.Get("c")
	c.Put("e", 5)
	require.False(t, c.Contains("a"))
	require.True(t, c.Contains("c"))
	require.True(t, c.Contains("d"))
	require.True(t, c.Contains("e"))
}

func TestEvictionCache_TouchRefreshesTimestamp(t *testing.T) {
	c := New[string](Opts[int]{})

	c.Put("a", 1)
	first, ok := c.Touched("a")
	require.True(t, ok)

	time.Sleep(2 * time.Millisecond)
	c.Get("a")

	second, ok := c.Touched("a")
	require.True(t, ok)
	require.True(t, second.After(first))
}

func TestEvictionCache_Statistics(t *testing.T) {
	c := New[string](Opts[int]{Capacity: 1})

	_, ratioOK := c.Stats().HitRatio()
	require.False(t, ratioOK, "ratio undefined before any read")

	c.Put("a", 1)
	c.Get("a")
	c.Get("missing")
	c.Put("b", 2) // evicts a

	s := c.Snapshot()
	assert.EqualValues(t, 1, s.Hits)
	assert.EqualValues(t, 1, s.Misses)
	assert.EqualValues(t, 2, s.Cached)
	assert.EqualValues(t, 1, s.Evicted)

	ratio, ok := s.HitRatio()
	require.True(t, ok)
	require.InDelta(t, 0.5, ratio, 1e-9)
	require.Contains(t, s.String(), "ratio:   0.5000")

	c.Stats().Reset()
	require.Equal(t, Snapshot{}, c.Stats().Snapshot())
}

func TestEvictionCache_DeleteIsIdempotent(t *testing.T) {
	c := New[string](Opts[int]{})
	c.Put("a", 1)

	c.Delete("a")
	c.Delete("a")
	c.Delete("never")

	require.False(t, c.Contains("a"))
	require.EqualValues(t, 0, c.Stats().Evicted())
}

func TestEvictionCache_ClearKeepsStatistics(t *testing.T) {
	c := New[string](Opts[int]{})
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a")

	c.Clear()

	require.Equal(t, 0, c.Len())
	_, ok := c.Get("b")
	require.False(t, ok)
	require.EqualValues(t, 2, c.Stats().Cached())
	require.EqualValues(t, 1, c.Stats().Hits())
}

func TestEvictionCache_Switch(t *testing.T) {
	sw := NewSwitch()
	c1 := New[string](Opts[int]{Switch: sw})
	c2 := New[string](Opts[int]{Switch: sw})

	c1.Put("k", 1)
	sw.Deactivate()
	c2.Put("k", 2) // still recorded while inactive

	_, ok := c1.Get("k")
	require.False(t, ok)
	require.False(t, c2.Contains("k"))
	require.False(t, c2.IsActive())
	require.EqualValues(t, 1, c1.Stats().Misses())

	sw.Activate()

	v, ok := c1.Get("k")
	require.True(t, ok)
	require.Equal(t, 1, v)
	v, ok = c2.Get("k")
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestEvictionCache_OwnSwitch(t *testing.T) {
	a := New[string](Opts[int]{})
	b := New[string](Opts[int]{})
	a.Put("k", 1)
	b.Put("k", 1)

	a.Deactivate()
	require.False(t, a.Contains("k"))
	require.True(t, b.Contains("k"))
}

func TestEvictionCache_Values(t *testing.T) {
	c := New[string](Opts[int]{})
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	c.Get("a")

	require.Equal(t, []int{1, 3, 2}, c.Values())
}

type blob struct {
	name string
	data [256]byte
}

func TestEvictionCache_WeakRetention(t *testing.T) {
	c := New[string](Opts[*blob]{Retention: Weak[blob]()})

	kept := &blob{name: "kept"}
	c.Put("kept", kept)
	c.Put("dropped", &blob{name: "dropped"})

	require.Eventually(t, func() bool {
		runtime.GC()
		_, ok := c.Get("dropped")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	v, ok := c.Get("kept")
	require.True(t, ok)
	require.Same(t, kept, v)
	require.GreaterOrEqual(t, c.Stats().Evicted(), uint64(1))
	runtime.KeepAlive(kept)
}

func TestEvictionCache_WeakContainsDoesNotCountEviction(t *testing.T) {
	c := New[string](Opts[*blob]{Retention: Weak[blob]()})
	c.Put("gone", &blob{name: "gone"})

	require.Eventually(t, func() bool {
		runtime.GC()
		return !c.Contains("gone")
	}, 2*time.Second, 10*time.Millisecond)

	require.EqualValues(t, 0, c.Stats().Evicted())
	_, ok := c.Touched("gone")
	require.False(t, ok, "entry removed together with its timestamp")
}

func TestEvictionCache_Sweep(t *testing.T) {
	c := New[string](Opts[*blob]{
		Retention:     Weak[blob](),
		SweepInterval: 5 * time.Millisecond,
	})
	defer c.Close()

	c.Put("gone", &blob{name: "gone"})

	require.Eventually(t, func() bool {
		runtime.GC()
		return c.Stats().Evicted() == 1
	}, 2*time.Second, 10*time.Millisecond)

	c.Close()
	c.Close() // idempotent
}

func TestEvictionCache_Concurrent(t *testing.T) {
	c := New[int](Opts[int]{Capacity: 100})

	const workers = 10
	const ops = 1000

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for j := 0; j < ops; j++ {
				k := (w*ops + j) % 250
				c.Put(k, j)
				c.Get(k)
				if j%50 == 0 {
					c.Delete(k)
				}
			}
		}(w)
	}
	wg.Wait()

	require.LessOrEqual(t, c.Len(), 100)
	s := c.Snapshot()
	require.EqualValues(t, workers*ops, s.Cached)
}
