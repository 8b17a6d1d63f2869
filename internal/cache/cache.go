package cache

import (
	"container/list"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// TTLCache is a bounded in-memory cache with per-entry TTL. Stale entries
// are dropped lazily on read and, when a sweep interval is configured, by a
// background sweeper. When the cache is full the least recently used entry
// is evicted.
type TTLCache[V any] struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List // front = most recently used
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	stopChan chan struct{}
	stopOnce sync.Once
}

type cacheItem[V any] struct {
	key      string
	value    V
	storedAt time.Time
	ttl      time.Duration
}

// Stats is a point-in-time view of cache counters
type Stats struct {
	Size      int   `json:"size"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// Option configures a TTLCache
type Option func(*options)

type options struct {
	now           func() time.Time
	sweepInterval time.Duration
}

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSweepInterval starts a background sweeper. Zero disables it.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) { o.sweepInterval = d }
}

// New creates a cache holding at most maxEntries items for ttl each.
// maxEntries <= 0 means unbounded.
func New[V any](ttl time.Duration, maxEntries int, opts ...Option) *TTLCache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	c := &TTLCache[V]{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        o.now,
		stopChan:   make(chan struct{}),
	}

	if o.sweepInterval > 0 {
		go c.sweep(o.sweepInterval)
	}

	return c
}

// Get retrieves a fresh value. An entry older than its TTL is removed.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return zero, false
	}

	item := el.Value.(*cacheItem[V])
	if c.expired(item) {
		c.removeElement(el)
		c.misses.Add(1)
		return zero, false
	}

	c.order.MoveToFront(el)
	c.hits.Add(1)
	return item.value, true
}

// Set stores a value with the default TTL
func (c *TTLCache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value with a custom TTL
func (c *TTLCache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		item := el.Value.(*cacheItem[V])
		item.value = value
		item.storedAt = c.now()
		item.ttl = ttl
		c.order.MoveToFront(el)
		return
	}

	if c.maxEntries > 0 && c.order.Len() >= c.maxEntries {
		c.makeRoom()
	}

	item := &cacheItem[V]{key: key, value: value, storedAt: c.now(), ttl: ttl}
	c.items[key] = c.order.PushFront(item)
}

// makeRoom drops expired entries, then the least recently used one if still full
func (c *TTLCache[V]) makeRoom() {
	c.removeExpired()
	for c.order.Len() >= c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			return
		}
		c.removeElement(oldest)
		c.evictions.Add(1)
	}
}

// Delete removes a key from the cache
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// InvalidatePrefix removes all keys with the given prefix
func (c *TTLCache[V]) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, el := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.removeElement(el)
			removed++
		}
	}
	return removed
}

// Size returns the number of stored items, stale ones included
func (c *TTLCache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns hit/miss/eviction counters
func (c *TTLCache[V]) Stats() Stats {
	return Stats{
		Size:      c.Size(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Stop stops the sweeper goroutine. Safe to call more than once.
func (c *TTLCache[V]) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

// Sweep removes every stale entry and returns how many were dropped
func (c *TTLCache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeExpired()
}

func (c *TTLCache[V]) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stopChan:
			return
		}
	}
}

func (c *TTLCache[V]) removeExpired() int {
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if c.expired(el.Value.(*cacheItem[V])) {
			c.removeElement(el)
			removed++
		}
		el = prev
	}
	return removed
}

func (c *TTLCache[V]) expired(item *cacheItem[V]) bool {
	return c.now().Sub(item.storedAt) > item.ttl
}

func (c *TTLCache[V]) removeElement(el *list.Element) {
	item := el.Value.(*cacheItem[V])
	delete(c.items, item.key)
	c.order.Remove(el)
}
