// Package memostore implements the storage side of function-result
// memoization: a caller derives a key for a call, asks a store for the
// cached result, and inserts the computed value on a miss.
//
// Components:
//   - Store[K, V]: the four-operation contract (Get/Insert/Remove/Contains)
//     shared by every backend, plus Stats and Close.
//   - memory: in-process store with LRU/LFU eviction and lazy TTL expiry.
//   - disk: embedded persistent store (SQLite), namespaced keys, msgpack values.
//   - redis: remote store over go-redis with native per-key expiry.
//   - Flight[K, V]: per-key single-flight guard so concurrent misses for the
//     same key run the computation exactly once.
//   - codec.Codec[V]: pluggable value (de)serialization for the persistent
//     backends. Msgpack is the default; disk and redis are format-compatible
//     at the value layer.
//
// Keys are opaque to the stores: identical logical calls must always present
// identical keys, and the stores never derive keys themselves. Persistent
// backends address rows as:
//
//	<namespace>:<prefix>:<key>
//
// so independently configured caches can share one physical backend without
// observing each other's entries.
package memostore
