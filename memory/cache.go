// Package memory implements the in-process store: bounded or unbounded,
// LRU or LFU eviction, optional TTL with lazy expiry.
//
// Operations never perform I/O and never return a non-nil error; they are
// short critical sections behind one mutex and are safe for concurrent use.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/unkn0wn-root/memostore"
)

// Options configure a Cache. The zero value is a valid unbounded LRU store
// with no TTL.
type Options struct {
	// Capacity caps the number of resident entries; it is a hard cap, the
	// store never holds more than Capacity entries after any Insert.
	// 0 means unbounded. Negative values are rejected at construction with
	// memostore.ErrInvalidCapacity.
	Capacity int

	// Policy picks the eviction order for bounded stores: LRU or LFU.
	Policy Policy

	// TTL is the default time-to-live. 0 means entries never expire by age.
	// Expiry is lazy: an expired entry is removed when a Get finds it, not
	// by a background sweeper. TTL is orthogonal to Capacity.
	TTL time.Duration

	// RefreshOnRead resets an entry's remaining TTL to the full TTL on
	// every successful Get.
	RefreshOnRead bool

	// Clock defaults to the system clock.
	Clock Clock

	// Logger defaults to a nop logger.
	Logger memostore.Logger
}

// Cache is the in-process store. It implements memostore.Store[K, V].
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
	evictor evictor[K]

	capacity int
	policy   Policy
	ttl      time.Duration
	refresh  bool
	clock    Clock
	log      memostore.Logger
	stats    memostore.Stats
}

var _ memostore.Store[string, int] = (*Cache[string, int])(nil)

// New constructs an in-process cache from opts.
func New[K comparable, V any](opts Options) (*Cache[K, V], error) {
	if opts.Capacity < 0 {
		return nil, memostore.ErrInvalidCapacity
	}
	c := &Cache[K, V]{
		entries:  make(map[K]*entry[V]),
		evictor:  newEvictor[K](opts.Policy),
		capacity: opts.Capacity,
		policy:   opts.Policy,
		ttl:      opts.TTL,
		refresh:  opts.RefreshOnRead,
		clock:    opts.Clock,
		log:      opts.Logger,
	}
	if c.clock == nil {
		c.clock = systemClock{}
	}
	if c.log == nil {
		c.log = memostore.NopLogger{}
	}
	return c, nil
}

// Get returns the live value for key. A hit refreshes last-access time and
// the hit count (and, with RefreshOnRead, the TTL baseline). An expired
// entry is removed and reported as a miss.
func (c *Cache[K, V]) Get(_ context.Context, key K) (V, bool, error) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.stats.Miss()
		return zero, false, nil
	}

	now := c.clock.Now()
	if e.expired(now) {
		delete(c.entries, key)
		c.evictor.remove(key)
		c.stats.Miss()
		return zero, false, nil
	}

	e.lastAccessed = now
	e.hits++
	if c.refresh && c.ttl > 0 {
		e.expiresAt = now.Add(c.ttl)
	}
	c.evictor.onAccess(key)
	c.stats.Hit()
	return e.value, true, nil
}

// Insert stores value under key and returns the previous live value if one
// existed. When the store is at capacity and key is new, exactly one entry is
// evicted by policy before the insert, so the capacity bound always holds.
func (c *Cache[K, V]) Insert(_ context.Context, key K, value V) (V, bool, error) {
	var prev V
	var had bool

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()

	if e, ok := c.entries[key]; ok {
		if !e.expired(now) {
			prev, had = e.value, true
		}
		// Overwrite restarts the entry's life: fresh timestamps, hit
		// count and TTL baseline.
		e.value = value
		e.insertedAt = now
		e.lastAccessed = now
		e.expiresAt = c.deadline(now)
		e.hits = 0
		c.evictor.onInsert(key)
		c.stats.Insertion()
		return prev, had, nil
	}

	if c.capacity > 0 && len(c.entries) >= c.capacity {
		victim := c.evictor.evict()
		delete(c.entries, victim)
		c.stats.Eviction()
		c.log.Debug("evicted entry", memostore.Fields{"key": victim})
	}

	c.entries[key] = &entry[V]{
		value:        value,
		insertedAt:   now,
		lastAccessed: now,
		expiresAt:    c.deadline(now),
	}
	c.evictor.onInsert(key)
	c.stats.Insertion()
	return prev, had, nil
}

// Remove deletes key and returns the prior live value if one existed.
func (c *Cache[K, V]) Remove(_ context.Context, key K) (V, bool, error) {
	var prev V
	var had bool

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return prev, false, nil
	}
	if !e.expired(c.clock.Now()) {
		prev, had = e.value, true
	}
	delete(c.entries, key)
	c.evictor.remove(key)
	return prev, had, nil
}

// Contains reports whether a live entry exists for key. It mutates nothing:
// no access metadata, no counters, no eviction order.
func (c *Cache[K, V]) Contains(_ context.Context, key K) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	return ok && !e.expired(c.clock.Now()), nil
}

// Len returns the number of resident entries, expired-but-unread included.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry. Counters are untouched.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*entry[V])
	c.evictor = newEvictor[K](c.policy)
}

// Stats returns a snapshot of the store's counters.
func (c *Cache[K, V]) Stats() memostore.Snapshot { return c.stats.Snapshot() }

// ResetStats zeroes the store's counters.
func (c *Cache[K, V]) ResetStats() { c.stats.Reset() }

// Close drops all entries. The cache remains usable afterwards, but Close is
// part of the store contract so callers can treat backends uniformly.
func (c *Cache[K, V]) Close(context.Context) error {
	c.Clear()
	return nil
}

func (c *Cache[K, V]) deadline(now time.Time) time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return now.Add(c.ttl)
}
