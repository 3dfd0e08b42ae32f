package memostore

import (
	"context"

	"github.com/unkn0wn-root/memostore/internal/singleflight"
)

// Flight layers per-key write coordination over any Store. With the guard,
// concurrent misses for the same key elect a single leader: the leader runs
// the computation and inserts the result, and every follower that arrived
// during the leader's tenure adopts the leader's outcome - value or failure -
// without recomputing and without re-reading the store.
//
// Without the guard, concurrent misses each compute independently and the
// last Insert wins; that remains the behavior of using a Store directly.
type Flight[K comparable, V any] struct {
	store Store[K, V]
	group singleflight.Group[K, V]
}

// NewFlight wraps store with a single-flight guard. The guard owns no
// entries, only transient in-flight bookkeeping per key.
func NewFlight[K comparable, V any](store Store[K, V]) *Flight[K, V] {
	return &Flight[K, V]{store: store}
}

// Store returns the wrapped store.
func (f *Flight[K, V]) Store() Store[K, V] { return f.store }

// Do returns the cached value for key, or computes and inserts it exactly
// once among concurrent callers.
//
// The leader's failure (from compute or from the store Insert) is published
// verbatim to all followers, and the in-flight marker is removed on every
// exit path - a failed round never leaves the key blocked. A follower's wait
// honors its own ctx; timing out as a follower does not disturb the leader.
func (f *Flight[K, V]) Do(ctx context.Context, key K, compute func(context.Context) (V, error)) (V, error) {
	v, ok, err := f.store.Get(ctx, key)
	if err != nil {
		var zero V
		return zero, err
	}
	if ok {
		return v, nil
	}

	return f.group.Do(ctx, key, func() (V, error) {
		var zero V
		v, err := compute(ctx)
		if err != nil {
			return zero, err
		}
		if _, _, err := f.store.Insert(ctx, key, v); err != nil {
			return zero, err
		}
		return v, nil
	})
}
