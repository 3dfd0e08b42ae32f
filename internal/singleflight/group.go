// Package singleflight coalesces concurrent calls for the same key into one
// execution whose outcome is shared by every waiter.
package singleflight

import (
	"context"
	"sync"
)

// Group runs fn at most once per key among concurrent callers. The first
// caller for a key becomes the leader and executes fn; callers that arrive
// while the leader is in flight become followers and wait for the leader's
// published outcome.
//
// The in-flight marker for a key exists only for the duration of the leader's
// call: once the leader publishes, the marker is removed and a later call for
// the same key starts a fresh round.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*flight[V]
}

type flight[V any] struct {
	done chan struct{} // closed after val/err are published
	val  V
	err  error
}

// Do executes fn once for key and returns its outcome to every concurrent
// caller. Publishing (val, err) happens-before close(done), so followers that
// return from the done channel observe the final values.
//
// A follower's wait is bounded by its own ctx: cancellation unblocks only
// that follower and never interrupts the leader. Cancelling the work itself
// is fn's job - thread a context into fn if that is needed.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (V, error) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*flight[V])
	}
	if f, ok := g.m[key]; ok {
		done := f.done
		g.mu.Unlock()

		select {
		case <-done:
			return f.val, f.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}

	f := &flight[V]{done: make(chan struct{})}
	g.m[key] = f
	g.mu.Unlock()

	// Leader path. fn runs outside the lock so other keys stay unblocked.
	v, err := fn()

	f.val, f.err = v, err
	close(f.done)

	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()

	return v, err
}
