package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/memostore"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func mustNew[K comparable, V any](t *testing.T, opts Options) *Cache[K, V] {
	t.Helper()
	c, err := New[K, V](opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNegativeCapacityRejected(t *testing.T) {
	if _, err := New[string, int](Options{Capacity: -1}); err != memostore.ErrInvalidCapacity {
		t.Fatalf("expected ErrInvalidCapacity, got %v", err)
	}
}

func TestGetMissThenHit(t *testing.T) {
	ctx := context.Background()
	c := mustNew[string, int](t, Options{})

	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Fatal("expected miss on empty store")
	}
	if _, had, _ := c.Insert(ctx, "a", 1); had {
		t.Fatal("first insert must not report a previous value")
	}
	v, ok, _ := c.Get(ctx, "a")
	if !ok || v != 1 {
		t.Fatalf("expected hit with 1, got ok=%v v=%d", ok, v)
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Insertions != 1 {
		t.Fatalf("unexpected counters: %+v", s)
	}
}

func TestInsertReturnsPrevious(t *testing.T) {
	ctx := context.Background()
	c := mustNew[string, int](t, Options{})

	c.Insert(ctx, "a", 1)
	prev, had, _ := c.Insert(ctx, "a", 2)
	if !had || prev != 1 {
		t.Fatalf("expected previous value 1, got had=%v prev=%d", had, prev)
	}
	if v, _, _ := c.Get(ctx, "a"); v != 2 {
		t.Fatalf("expected overwrite to 2, got %d", v)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	c := mustNew[string, int](t, Options{})

	c.Insert(ctx, "a", 1)
	prev, had, _ := c.Remove(ctx, "a")
	if !had || prev != 1 {
		t.Fatalf("expected removed value 1, got had=%v prev=%d", had, prev)
	}
	if _, had, _ := c.Remove(ctx, "a"); had {
		t.Fatal("second remove must report nothing")
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Fatal("removed key must miss")
	}
}

func TestCapacityInvariant(t *testing.T) {
	ctx := context.Background()
	const capacity = 8
	c := mustNew[int, int](t, Options{Capacity: capacity})

	for i := 0; i < 100; i++ {
		c.Insert(ctx, i%13, i)
		if n := c.Len(); n > capacity {
			t.Fatalf("capacity exceeded after insert %d: len=%d", i, n)
		}
	}
}

// Capacity-2 LRU: insert A, insert B, get A, insert C. B is the least
// recently used and must be the one evicted.
func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := mustNew[string, int](t, Options{Capacity: 2, Policy: LRU})

	c.Insert(ctx, "A", 1)
	c.Insert(ctx, "B", 2)
	c.Get(ctx, "A")
	c.Insert(ctx, "C", 3)

	for key, want := range map[string]bool{"A": true, "B": false, "C": true} {
		if ok, _ := c.Contains(ctx, key); ok != want {
			t.Fatalf("contains(%s) = %v, want %v", key, ok, want)
		}
	}
	if s := c.Stats(); s.Evictions != 1 {
		t.Fatalf("expected exactly one eviction, got %d", s.Evictions)
	}
}

// Refreshing the recency of all keys but one directs the next eviction at
// exactly that one.
func TestLRURefreshedKeysSurvive(t *testing.T) {
	ctx := context.Background()
	const capacity = 4
	c := mustNew[int, int](t, Options{Capacity: capacity, Policy: LRU})

	for i := 0; i < capacity; i++ {
		c.Insert(ctx, i, i)
	}
	// Touch everything except key 1.
	for _, k := range []int{0, 2, 3} {
		c.Get(ctx, k)
	}
	c.Insert(ctx, 99, 99)

	if ok, _ := c.Contains(ctx, 1); ok {
		t.Fatal("key 1 should have been evicted")
	}
	for _, k := range []int{0, 2, 3, 99} {
		if ok, _ := c.Contains(ctx, k); !ok {
			t.Fatalf("key %d should have survived", k)
		}
	}
}

// Capacity-2 LFU: A read twice, B read once. Inserting C evicts B.
func TestLFUEvictsLeastFrequentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := mustNew[string, int](t, Options{Capacity: 2, Policy: LFU})

	c.Insert(ctx, "A", 1)
	c.Insert(ctx, "B", 2)
	c.Get(ctx, "A")
	c.Get(ctx, "A")
	c.Get(ctx, "B")
	c.Insert(ctx, "C", 3)

	for key, want := range map[string]bool{"A": true, "B": false, "C": true} {
		if ok, _ := c.Contains(ctx, key); ok != want {
			t.Fatalf("contains(%s) = %v, want %v", key, ok, want)
		}
	}
}

// Overwriting resets an entry's hit count, and the eviction order must agree:
// a key overwritten many times but never read since is still the least
// frequently used one.
func TestLFUOverwriteResetsFrequency(t *testing.T) {
	ctx := context.Background()
	c := mustNew[string, int](t, Options{Capacity: 2, Policy: LFU})

	c.Insert(ctx, "A", 1)
	c.Insert(ctx, "A", 2)
	c.Insert(ctx, "A", 3)
	c.Insert(ctx, "B", 1)
	c.Get(ctx, "B")
	c.Insert(ctx, "C", 1)

	if ok, _ := c.Contains(ctx, "A"); ok {
		t.Fatal("A has zero hits since its last overwrite and should be the victim")
	}
	for _, k := range []string{"B", "C"} {
		if ok, _ := c.Contains(ctx, k); !ok {
			t.Fatalf("%s should have survived", k)
		}
	}
}

// Equal hit counts fall back to least-recently-used among the tied keys.
func TestLFUTieBreaksByRecency(t *testing.T) {
	ctx := context.Background()
	c := mustNew[string, int](t, Options{Capacity: 2, Policy: LFU})

	c.Insert(ctx, "A", 1)
	c.Insert(ctx, "B", 2)
	c.Get(ctx, "A")
	c.Get(ctx, "B") // same frequency, B more recent
	c.Insert(ctx, "C", 3)

	if ok, _ := c.Contains(ctx, "A"); ok {
		t.Fatal("A is least recently used among the tied keys and should go first")
	}
	if ok, _ := c.Contains(ctx, "B"); !ok {
		t.Fatal("B should have survived the tie")
	}
}

func TestTTLExpiryIsLazy(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	c := mustNew[string, int](t, Options{TTL: time.Minute, Clock: clk})

	c.Insert(ctx, "a", 1)
	clk.advance(59 * time.Second)
	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Fatal("entry must still be live before the TTL elapses")
	}

	clk.advance(2 * time.Minute)
	if c.Len() != 1 {
		t.Fatal("expired entry should linger until read")
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Fatal("expired entry must read as a miss")
	}
	if c.Len() != 0 {
		t.Fatal("expired entry must be removed by the read that found it")
	}
}

// With refresh-on-read, a read shortly before expiry pushes the deadline
// out, so a later read (past the original deadline) still hits.
func TestRefreshOnRead(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	c := mustNew[string, int](t, Options{TTL: time.Minute, RefreshOnRead: true, Clock: clk})

	c.Insert(ctx, "a", 1)
	clk.advance(59 * time.Second)
	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Fatal("read before expiry must hit")
	}
	clk.advance(30 * time.Second) // past the original deadline, inside the refreshed one
	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Fatal("refresh-on-read should have reset the expiry baseline")
	}
}

func TestInsertOverExpiredReturnsNoPrevious(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	c := mustNew[string, int](t, Options{TTL: time.Minute, Clock: clk})

	c.Insert(ctx, "a", 1)
	clk.advance(2 * time.Minute)
	if _, had, _ := c.Insert(ctx, "a", 2); had {
		t.Fatal("overwriting an expired entry must not surface its stale value")
	}
	if v, ok, _ := c.Get(ctx, "a"); !ok || v != 2 {
		t.Fatalf("fresh value should be live, got ok=%v v=%d", ok, v)
	}
}

// Contains must not count as a read: no recency refresh, no counters.
func TestContainsMutatesNothing(t *testing.T) {
	ctx := context.Background()
	c := mustNew[string, int](t, Options{Capacity: 2, Policy: LRU})

	c.Insert(ctx, "A", 1)
	c.Insert(ctx, "B", 2)
	c.Contains(ctx, "A") // would save A if it counted as a read
	c.Insert(ctx, "C", 3)

	if ok, _ := c.Contains(ctx, "A"); ok {
		t.Fatal("A should have been evicted; Contains must not refresh recency")
	}

	before := c.Stats()
	c.Contains(ctx, "B")
	c.Contains(ctx, "nope")
	if after := c.Stats(); after != before {
		t.Fatalf("Contains changed counters: before=%+v after=%+v", before, after)
	}
}

func TestStatsResetIsExplicit(t *testing.T) {
	ctx := context.Background()
	c := mustNew[string, int](t, Options{})

	c.Insert(ctx, "a", 1)
	c.Get(ctx, "a")
	c.Get(ctx, "b")

	if s := c.Stats(); s.Hits != 1 || s.Misses != 1 || s.Insertions != 1 {
		t.Fatalf("unexpected counters: %+v", s)
	}
	c.ResetStats()
	if s := c.Stats(); s != (memostore.Snapshot{}) {
		t.Fatalf("counters should be zero after reset: %+v", s)
	}
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := mustNew[string, int](t, Options{Capacity: 32, TTL: time.Minute})

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		i := i
		g.Go(func() error {
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", j%50)
				switch j % 4 {
				case 0:
					c.Insert(ctx, key, i*1000+j)
				case 1:
					c.Get(ctx, key)
				case 2:
					c.Contains(ctx, key)
				default:
					c.Remove(ctx, key)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if n := c.Len(); n > 32 {
		t.Fatalf("capacity exceeded under concurrency: %d", n)
	}
}
