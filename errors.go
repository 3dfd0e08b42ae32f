package memostore

import (
	"errors"
	"fmt"
)

// ErrInvalidCapacity is returned at construction time for a nonsensical
// capacity. Capacity problems are never reported at runtime.
var ErrInvalidCapacity = errors.New("memostore: capacity must not be negative")

// ConnectionError reports that the backing medium is unavailable: the remote
// store is unreachable or unauthenticated, or the disk store's directory or
// handle cannot be used. It is surfaced on every affected operation until the
// backend recovers; the store performs no internal retries.
type ConnectionError struct {
	Backend string // "disk" or "redis"
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("memostore: %s backend unavailable: %v", e.Backend, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SerializationError reports that a value could not be encoded for storage or
// decoded from it. Decode failures are always surfaced, never collapsed into
// a miss: corrupt data must not masquerade as "not cached".
type SerializationError struct {
	Key string
	Op  string // "encode" or "decode"
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("memostore: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// OpError reports a backend-level failure on a reachable backend, e.g. a
// rejected command or a malformed request. Keeping it distinct from
// ConnectionError lets callers tell "backend unreachable" from "backend
// reachable but the request failed".
type OpError struct {
	Backend string
	Op      string
	Key     string
	Err     error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("memostore: %s %s %q: %v", e.Backend, e.Op, e.Key, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
