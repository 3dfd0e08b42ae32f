package memostore

import "context"

// Store is the capability contract every backend implements. The in-process
// store never fails and returns nil errors; disk and redis stores surface
// backend errors on every operation.
//
// Semantics shared by all implementations:
//   - Get applies lazy expiry: an expired entry is removed and reported as a
//     miss. A hit refreshes access metadata (and the TTL baseline when the
//     store was configured with refresh-on-read).
//   - Insert overwrites and returns the previous value when one existed.
//   - Contains reports existence without touching recency or frequency
//     metadata, so probing a key never influences eviction.
//
// A miss is (zero, false, nil) - never an error. Implementations must be safe
// for concurrent use; callers are not expected to serialize store calls.
type Store[K comparable, V any] interface {
	Get(ctx context.Context, key K) (V, bool, error)
	Insert(ctx context.Context, key K, value V) (prev V, had bool, err error)
	Remove(ctx context.Context, key K) (prev V, had bool, err error)
	Contains(ctx context.Context, key K) (bool, error)

	// Stats returns a point-in-time copy of the store's monotone counters.
	Stats() Snapshot

	// Close releases the backing medium. In-process stores drop their
	// entries; persistent stores release connections/handles.
	Close(ctx context.Context) error
}
