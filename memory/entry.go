package memory

import "time"

// entry wraps a resident value with the bookkeeping the TTL logic and
// eviction policies read. Invariant: insertedAt <= lastAccessed.
type entry[V any] struct {
	value        V
	insertedAt   time.Time
	lastAccessed time.Time
	expiresAt    time.Time // zero means no expiry
	hits         uint64
}

func (e *entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}
