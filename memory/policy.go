package memory

import "container/list"

// Policy selects which entry is sacrificed when a bounded store is full.
type Policy int

const (
	// LRU evicts the entry whose last access is oldest. Ties cannot arise:
	// the access-order list serializes entries even when timestamps collide,
	// falling back to insertion order.
	LRU Policy = iota
	// LFU evicts the entry with the fewest hits; among equally-infrequent
	// entries the least recently used goes first, then the earliest inserted.
	LFU
)

// evictor tracks eviction order for resident keys. All calls happen under
// the cache lock.
type evictor[K comparable] interface {
	onAccess(key K)
	onInsert(key K)
	// evict removes and returns the policy's victim. Must only be called
	// when at least one key is tracked.
	evict() K
	remove(key K)
}

var (
	_ evictor[string] = (*lruEvictor[string])(nil)
	_ evictor[string] = (*lfuEvictor[string])(nil)
)

func newEvictor[K comparable](p Policy) evictor[K] {
	if p == LFU {
		return newLFUEvictor[K]()
	}
	return newLRUEvictor[K]()
}

// lruEvictor keeps keys in a doubly-linked list, most recent at the front.
// The list order itself is the tie-break: two entries touched in the same
// clock tick still evict in a stable, deterministic order.
type lruEvictor[K comparable] struct {
	order *list.List
	elems map[K]*list.Element
}

func newLRUEvictor[K comparable]() *lruEvictor[K] {
	return &lruEvictor[K]{order: list.New(), elems: make(map[K]*list.Element)}
}

func (e *lruEvictor[K]) onAccess(key K) {
	if el, ok := e.elems[key]; ok {
		e.order.MoveToFront(el)
	}
}

func (e *lruEvictor[K]) onInsert(key K) {
	if el, ok := e.elems[key]; ok {
		e.order.MoveToFront(el)
		return
	}
	e.elems[key] = e.order.PushFront(key)
}

func (e *lruEvictor[K]) evict() K {
	el := e.order.Back()
	key := el.Value.(K)
	e.order.Remove(el)
	delete(e.elems, key)
	return key
}

func (e *lruEvictor[K]) remove(key K) {
	if el, ok := e.elems[key]; ok {
		e.order.Remove(el)
		delete(e.elems, key)
	}
}

// lfuEvictor buckets keys by access count. Each bucket is an LRU list
// (front = most recently touched), so the victim - the back of the lowest
// populated bucket - is the least recently used among the least frequently
// used, and insertion order settles anything beyond that.
type lfuEvictor[K comparable] struct {
	buckets map[uint64]*list.List
	elems   map[K]*list.Element
	freqs   map[K]uint64
	minFreq uint64
}

func newLFUEvictor[K comparable]() *lfuEvictor[K] {
	return &lfuEvictor[K]{
		buckets: make(map[uint64]*list.List),
		elems:   make(map[K]*list.Element),
		freqs:   make(map[K]uint64),
	}
}

func (e *lfuEvictor[K]) onAccess(key K) {
	freq, ok := e.freqs[key]
	if !ok {
		return
	}

	e.unlink(key, freq)
	if e.buckets[freq] == nil && e.minFreq == freq {
		e.minFreq = freq + 1
	}

	freq++
	e.freqs[key] = freq
	e.link(key, freq)
}

func (e *lfuEvictor[K]) onInsert(key K) {
	// Overwrite restarts the key's life: frequency drops back to 1, in step
	// with the entry's hit-count reset.
	if freq, ok := e.freqs[key]; ok {
		e.unlink(key, freq)
	}
	e.freqs[key] = 1
	e.link(key, 1)
	e.minFreq = 1
}

func (e *lfuEvictor[K]) evict() K {
	// minFreq can go stale after remove(); scan upward to the next
	// populated bucket. Frequencies start at 1 and grow by single steps,
	// so the scan is short in practice.
	for e.buckets[e.minFreq] == nil {
		e.minFreq++
	}
	bucket := e.buckets[e.minFreq]
	el := bucket.Back()
	key := el.Value.(K)

	e.unlink(key, e.minFreq)
	delete(e.elems, key)
	delete(e.freqs, key)
	return key
}

func (e *lfuEvictor[K]) remove(key K) {
	freq, ok := e.freqs[key]
	if !ok {
		return
	}
	e.unlink(key, freq)
	delete(e.elems, key)
	delete(e.freqs, key)
}

func (e *lfuEvictor[K]) link(key K, freq uint64) {
	b := e.buckets[freq]
	if b == nil {
		b = list.New()
		e.buckets[freq] = b
	}
	e.elems[key] = b.PushFront(key)
}

func (e *lfuEvictor[K]) unlink(key K, freq uint64) {
	b := e.buckets[freq]
	b.Remove(e.elems[key])
	if b.Len() == 0 {
		delete(e.buckets, freq)
	}
}
