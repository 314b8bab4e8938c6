package cache

import (
	"context"
)

// Layered puts a bounded in-process Cache (L1) in front of an optional
// shared Store (L2). Snapshots written by one instance are visible to the
// others through L2, while hot reads never leave the process. With a nil
// Store it behaves exactly like its L1.
//
// L2 holds the value together with its original write time, so an entry is
// never served past the TTL no matter which layer it came from.
type Layered[V any] struct {
	domain string
	local  *Cache[string, V]
	remote Store
}

// NewLayered wraps local with remote under a key domain such as "tvl".
func NewLayered[V any](domain string, local *Cache[string, V], remote Store) *Layered[V] {
	return &Layered[V]{domain: domain, local: local, remote: remote}
}

// Get checks L1 then L2. A fresh L2 hit is copied into L1 with its original
// timestamp. L2 errors count as misses: the snapshot will be refetched from
// its provider.
func (lc *Layered[V]) Get(ctx context.Context, key string) (V, bool) {
	if v, ok := lc.local.Get(key); ok {
		return v, true
	}

	var zero V
	if lc.remote == nil {
		return zero, false
	}
	var e Entry[V]
	if err := lc.remote.Get(ctx, Key(lc.domain, key), &e); err != nil {
		return zero, false
	}
	if e.Timestamp.IsZero() || !lc.local.Fresh(e.Timestamp) {
		return zero, false
	}
	lc.local.SetAt(key, e.Value, e.Timestamp)
	return e.Value, true
}

// Set writes through both layers. The L2 copy expires with the L1 TTL.
func (lc *Layered[V]) Set(ctx context.Context, key string, value V) error {
	now := lc.local.Now()
	lc.local.SetAt(key, value, now)
	if lc.remote == nil {
		return nil
	}
	return lc.remote.Set(ctx, Key(lc.domain, key), Entry[V]{Value: value, Timestamp: now}, lc.local.TTL())
}

// Clear drops every snapshot in this domain from both layers.
func (lc *Layered[V]) Clear(ctx context.Context) error {
	lc.local.Clear()
	if lc.remote == nil {
		return nil
	}
	return lc.remote.DeleteByPattern(ctx, BuildPattern(lc.domain+":"))
}
