package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestCacheTTLBoundary(t *testing.T) {
	clock := newFakeClock()
	c := New[string](time.Hour, 0, WithClock(clock.Now))
	defer c.Stop()

	c.Set("python::django", "ok")

	clock.Advance(time.Hour)
	v, ok := c.Get("python::django")
	require.True(t, ok, "an entry exactly one TTL old is still fresh")
	assert.Equal(t, "ok", v)

	clock.Advance(time.Nanosecond)
	_, ok = c.Get("python::django")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size(), "stale entry must be evicted on read")
}

func TestCacheOverwriteRefreshesTimestamp(t *testing.T) {
	clock := newFakeClock()
	c := New[int](time.Minute, 0, WithClock(clock.Now))
	defer c.Stop()

	c.Set("k", 1)
	clock.Advance(50 * time.Second)
	c.Set("k", 2)
	clock.Advance(50 * time.Second)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestCacheCustomTTL(t *testing.T) {
	clock := newFakeClock()
	c := New[string](time.Hour, 0, WithClock(clock.Now))
	defer c.Stop()

	c.SetWithTTL("short", "v", time.Second)
	c.Set("long", "v")
	clock.Advance(2 * time.Second)

	_, ok := c.Get("short")
	assert.False(t, ok)
	_, ok = c.Get("long")
	assert.True(t, ok)
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int](time.Hour, 2)
	defer c.Stop()

	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a") // a is now most recent
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was the least recently used entry")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCacheEvictsExpiredBeforeLive(t *testing.T) {
	clock := newFakeClock()
	c := New[int](time.Hour, 2, WithClock(clock.Now))
	defer c.Stop()

	c.SetWithTTL("stale", 1, time.Minute)
	c.Set("live", 2)
	clock.Advance(2 * time.Minute)
	c.Set("new", 3)

	_, ok := c.Get("live")
	assert.True(t, ok)
	assert.Equal(t, int64(0), c.Stats().Evictions, "dropping an expired entry is not an eviction")
}

func TestCacheSweep(t *testing.T) {
	clock := newFakeClock()
	c := New[int](time.Minute, 0, WithClock(clock.Now))
	defer c.Stop()

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	clock.Advance(30 * time.Second)
	c.Set("fresh", 99)
	clock.Advance(45 * time.Second)

	assert.Equal(t, 10, c.Sweep())
	assert.Equal(t, 1, c.Size())
}

func TestCacheBackgroundSweeper(t *testing.T) {
	c := New[int](time.Millisecond, 0, WithSweepInterval(5*time.Millisecond))
	defer c.Stop()

	c.Set("a", 1)
	assert.Eventually(t, func() bool { return c.Size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestCacheInvalidatePrefix(t *testing.T) {
	c := New[int](time.Hour, 0)
	defer c.Stop()

	c.Set("python::django", 1)
	c.Set("python::flask", 2)
	c.Set("go::gin", 3)

	assert.Equal(t, 2, c.InvalidatePrefix("python::"))
	assert.Equal(t, 1, c.Size())
	_, ok := c.Get("go::gin")
	assert.True(t, ok)
}

func TestCacheStopIsIdempotent(t *testing.T) {
	c := New[int](time.Hour, 0, WithSweepInterval(time.Millisecond))
	c.Stop()
	assert.NotPanics(t, c.Stop)
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New[int](5*time.Minute, 50)
	defer c.Stop()

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("key_%d_%d", id, i%20)
				c.Set(key, i)
				c.Get(key)
				if i%10 == 0 {
					c.Delete(key)
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Size(), 50)
}

func TestCacheSizeNeverExceedsBound(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("size stays within maxEntries", prop.ForAll(
		func(max int, keys []string) bool {
			c := New[int](time.Hour, max)
			defer c.Stop()
			for i, k := range keys {
				c.Set(k, i)
				if c.Size() > max {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 16),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("the last written key is always readable", prop.ForAll(
		func(max int, keys []string, last string) bool {
			c := New[int](time.Hour, max)
			defer c.Stop()
			for i, k := range keys {
				c.Set(k, i)
			}
			c.Set(last, -1)
			v, ok := c.Get(last)
			return ok && v == -1
		},
		gen.IntRange(1, 16),
		gen.SliceOf(gen.AlphaString()),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
