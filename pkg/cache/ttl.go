package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Entry is a cached value stamped with its write time.
type Entry[V any] struct {
	Value     V         `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

type item[K comparable, V any] struct {
	key   K
	entry Entry[V]
}

// Cache is a bounded key/value store whose entries expire a fixed TTL after
// they were written. Expiry is lazy: an expired entry is dropped by the Get
// that observes it. When a new key is written to a full cache, the oldest
// inserted entry is evicted first, one per insert.
//
// Each data domain (sentiment, TVL, NFT stats, documents) owns its own
// instance; a Cache is safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	order      *list.List // front = oldest insert
	items      map[K]*list.Element
}

// New creates a Cache. Defaults: 5 minute TTL, 1000 entries, wall clock.
func New[K comparable, V any](opts ...Option) *Cache[K, V] {
	cfg := &Config{
		TTL:        DefaultTTL,
		MaxEntries: DefaultMaxEntries,
		Clock:      time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Cache[K, V]{
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
		now:        cfg.Clock,
		order:      list.New(),
		items:      make(map[K]*list.Element),
	}
}

// Set stores value under key stamped with the current time. Overwriting a
// key refreshes it and moves it to the newest position without evicting.
func (c *Cache[K, V]) Set(key K, value V) {
	c.SetAt(key, value, time.Time{})
}

// SetAt stores value as if it had been written at ts, so a copy taken from
// another cache keeps its age. A zero ts means now.
func (c *Cache[K, V]) SetAt(key K, value V, ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ts.IsZero() {
		ts = c.now()
	}
	entry := Entry[V]{Value: value, Timestamp: ts}

	if el, ok := c.items[key]; ok {
		el.Value.(*item[K, V]).entry = entry
		c.order.MoveToBack(el)
		return
	}

	if len(c.items) >= c.maxEntries {
		if oldest := c.order.Front(); oldest != nil {
			c.removeElement(oldest)
		}
	}

	c.items[key] = c.order.PushBack(&item[K, V]{key: key, entry: entry})
}

// Get returns the value for key if present and younger than the TTL.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}

	it := el.Value.(*item[K, V])
	if c.now().Sub(it.entry.Timestamp) >= c.ttl {
		c.removeElement(el)
		return zero, false
	}
	return it.entry.Value, true
}

// Delete removes key if present.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Clear drops every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[K]*list.Element)
}

// Len reports stored entries, expired ones included until observed.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Fresh reports whether an entry written at ts is still within the TTL.
func (c *Cache[K, V]) Fresh(ts time.Time) bool {
	return c.now().Sub(ts) < c.ttl
}

// Now reads the cache clock.
func (c *Cache[K, V]) Now() time.Time { return c.now() }

// TTL returns the configured time-to-live.
func (c *Cache[K, V]) TTL() time.Duration { return c.ttl }

// GetOrLoad returns the cached value for key or calls load and caches its
// result. Load errors are returned and never cached. Concurrent misses on
// the same key may each call load.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, load func(context.Context) (V, error)) (V, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}
	v, err := load(ctx)
	if err != nil {
		var zero V
		return zero, false, err
	}
	c.Set(key, v)
	return v, false, nil
}

func (c *Cache[K, V]) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*item[K, V]).key)
}
