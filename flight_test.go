package memostore_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/memostore"
	"github.com/unkn0wn-root/memostore/memory"
)

func newMemStore(t *testing.T) *memory.Cache[string, int] {
	t.Helper()
	c, err := memory.New[string, int](memory.Options{})
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	return c
}

// N concurrent misses for one key must run the computation exactly once,
// and every caller observes the same value.
func TestFlightComputesOnce(t *testing.T) {
	ctx := context.Background()
	f := memostore.NewFlight[string, int](newMemStore(t))

	var computes atomic.Int32
	release := make(chan struct{})

	const n = 12
	results := make([]int, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			v, err := f.Do(ctx, "expensive", func(context.Context) (int, error) {
				computes.Add(1)
				<-release
				return 99, nil
			})
			results[i] = v
			return err
		})
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if got := computes.Load(); got != 1 {
		t.Fatalf("computation ran %d times, want 1", got)
	}
	for i, v := range results {
		if v != 99 {
			t.Fatalf("caller %d got %d, want 99", i, v)
		}
	}
	if v, ok, _ := f.Store().Get(ctx, "expensive"); !ok || v != 99 {
		t.Fatalf("leader must have inserted the result, got ok=%v v=%d", ok, v)
	}
}

// A leader's failure propagates to every follower, the key is left
// unblocked, and nothing is inserted.
func TestFlightPropagatesFailure(t *testing.T) {
	ctx := context.Background()
	f := memostore.NewFlight[string, int](newMemStore(t))

	boom := errors.New("boom")
	release := make(chan struct{})

	var g errgroup.Group
	errsSeen := make([]error, 4)
	for i := 0; i < 4; i++ {
		i := i
		g.Go(func() error {
			_, errsSeen[i] = f.Do(ctx, "k", func(context.Context) (int, error) {
				<-release
				return 0, boom
			})
			return nil
		})
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	g.Wait()

	for i, err := range errsSeen {
		if !errors.Is(err, boom) {
			t.Fatalf("caller %d got %v, want boom", i, err)
		}
	}
	if _, ok, _ := f.Store().Get(ctx, "k"); ok {
		t.Fatal("failed computation must not populate the store")
	}

	// The failed round must not block a fresh one.
	v, err := f.Do(ctx, "k", func(context.Context) (int, error) { return 5, nil })
	if err != nil || v != 5 {
		t.Fatalf("fresh round after failure: v=%d err=%v", v, err)
	}
}

func TestFlightHitSkipsComputation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(t)
	store.Insert(ctx, "k", 1)

	f := memostore.NewFlight[string, int](store)
	v, err := f.Do(ctx, "k", func(context.Context) (int, error) {
		t.Fatal("computation must not run on a hit")
		return 0, nil
	})
	if err != nil || v != 1 {
		t.Fatalf("v=%d err=%v", v, err)
	}
}

// Without the guard, concurrent misses each compute and last write wins;
// with it, unrelated keys still proceed independently.
func TestFlightKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	f := memostore.NewFlight[string, int](newMemStore(t))

	blockA := make(chan struct{})
	started := make(chan struct{})

	var g errgroup.Group
	g.Go(func() error {
		_, err := f.Do(ctx, "a", func(context.Context) (int, error) {
			close(started)
			<-blockA
			return 1, nil
		})
		return err
	})

	<-started
	// Key b must complete while a's leader is still in flight.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if v, err := f.Do(ctx, "b", func(context.Context) (int, error) { return 2, nil }); err != nil || v != 2 {
			t.Errorf("b: v=%d err=%v", v, err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("unrelated key was serialized behind another key's leader")
	}

	close(blockA)
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}

type insertFailStore struct {
	*memory.Cache[string, int]
	fail error
}

func (s *insertFailStore) Insert(ctx context.Context, key string, v int) (int, bool, error) {
	return 0, false, s.fail
}

// An Insert failure on the leader's path is a coordination failure: it is
// what every waiter observes.
func TestFlightInsertFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	sink := errors.New("disk full")
	f := memostore.NewFlight[string, int](&insertFailStore{Cache: newMemStore(t), fail: sink})

	_, err := f.Do(ctx, "k", func(context.Context) (int, error) { return 3, nil })
	if !errors.Is(err, sink) {
		t.Fatalf("got %v, want insert failure", err)
	}
}
