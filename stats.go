package memostore

import "sync/atomic"

// Stats holds a store's monotone counters. Counters only move forward during
// normal operation; Reset is the sole way to zero them. The zero value is
// ready to use.
type Stats struct {
	hits       atomic.Uint64
	misses     atomic.Uint64
	insertions atomic.Uint64
	evictions  atomic.Uint64
}

// Hit records a successful read.
func (s *Stats) Hit() { s.hits.Add(1) }

// Miss records a read that found nothing (including lazy-expired entries).
func (s *Stats) Miss() { s.misses.Add(1) }

// Insertion records an insert, overwrites included.
func (s *Stats) Insertion() { s.insertions.Add(1) }

// Eviction records a capacity-driven removal.
func (s *Stats) Eviction() { s.evictions.Add(1) }

// Reset zeroes all counters.
func (s *Stats) Reset() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.insertions.Store(0)
	s.evictions.Store(0)
}

// Snapshot returns a point-in-time copy of the counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Hits:       s.hits.Load(),
		Misses:     s.misses.Load(),
		Insertions: s.insertions.Load(),
		Evictions:  s.evictions.Load(),
	}
}

// Snapshot is a point-in-time copy of a store's counters.
type Snapshot struct {
	Hits       uint64
	Misses     uint64
	Insertions uint64
	Evictions  uint64
}

// HitRate returns hits/(hits+misses) in [0, 1], or 0 before any reads.
func (s Snapshot) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
