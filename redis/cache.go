// Package redis implements the remote store over github.com/redis/go-redis.
//
// Rows live under <namespace>:<prefix>:<key> with the codec's bytes as the
// value, so disk- and redis-backed caches sharing a codec are
// format-compatible at the value layer. TTL is delegated to Redis' native
// per-key expiry (SET with expiration); refresh-on-read re-issues the expiry
// via GETEX on every hit.
//
// Every operation can fail. Connectivity problems (dial, pool exhaustion,
// timeouts) surface as *memostore.ConnectionError; command failures on a
// reachable server as *memostore.OpError; undecodable values as
// *memostore.SerializationError - never as a miss.
package redis

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/memostore"
	"github.com/unkn0wn-root/memostore/codec"
	"github.com/unkn0wn-root/memostore/internal/storekey"
)

// EnvURL is consulted for a connection URL when Options carries neither a
// client nor a URL.
const EnvURL = "MEMOSTORE_REDIS_URL"

const defaultNamespace = "memostore"

// ErrNoConnection is returned by New when no client, URL, or EnvURL value is
// available to reach a server.
var ErrNoConnection = errors.New("redis: no client or connection URL configured")

// Options configure a redis cache. Provide either an existing Client (shared
// connection pool, caller-owned unless CloseClient is set) or a URL
// (redis://...), with the EnvURL environment variable as a last resort.
type Options[V any] struct {
	Client      goredis.UniversalClient
	URL         string
	CloseClient bool // close the client in Close; set only on exclusive ownership

	// Namespace and Prefix partition keys on a shared server.
	// Namespace defaults to "memostore".
	Namespace string
	Prefix    string

	// TTL is applied by the server per key. 0 means no expiry.
	TTL time.Duration

	// RefreshOnRead re-arms the server-side expiry on every successful Get.
	RefreshOnRead bool

	// Codec defaults to codec.Msgpack[V].
	Codec codec.Codec[V]

	// Logger defaults to a nop logger.
	Logger memostore.Logger
}

// Cache is the remote store. It implements memostore.Store[string, V].
type Cache[V any] struct {
	rdb       goredis.UniversalClient
	ownClient bool
	ns        string
	pfx       string
	ttl       time.Duration
	fresh     bool
	codec     codec.Codec[V]
	log       memostore.Logger
	stats     memostore.Stats
}

var _ memostore.Store[string, string] = (*Cache[string])(nil)

// New builds a redis cache from opts. When no client is given, the
// connection URL is parsed eagerly but the connection itself is established
// lazily by the pool on first use.
func New[V any](opts Options[V]) (*Cache[V], error) {
	rdb := opts.Client
	owns := opts.CloseClient
	if rdb == nil {
		url := opts.URL
		if url == "" {
			url = os.Getenv(EnvURL)
		}
		if url == "" {
			return nil, ErrNoConnection
		}
		ropts, err := goredis.ParseURL(url)
		if err != nil {
			return nil, &memostore.ConnectionError{Backend: "redis", Err: err}
		}
		rdb = goredis.NewClient(ropts)
		owns = true
	}

	c := &Cache[V]{
		rdb:       rdb,
		ownClient: owns,
		ns:        opts.Namespace,
		pfx:       opts.Prefix,
		ttl:       opts.TTL,
		fresh:     opts.RefreshOnRead,
		codec:     opts.Codec,
		log:       opts.Logger,
	}
	if c.ns == "" {
		c.ns = defaultNamespace
	}
	if c.codec == nil {
		c.codec = codec.Msgpack[V]{}
	}
	if c.log == nil {
		c.log = memostore.NopLogger{}
	}
	return c, nil
}

// Get fetches and decodes the value for key. With RefreshOnRead and a TTL the
// read re-arms the key's expiry atomically (GETEX).
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	k := c.rowKey(key)

	var b []byte
	var err error
	if c.fresh && c.ttl > 0 {
		b, err = c.rdb.GetEx(ctx, k, c.ttl).Bytes()
	} else {
		b, err = c.rdb.Get(ctx, k).Bytes()
	}
	if err == goredis.Nil {
		c.stats.Miss()
		return zero, false, nil
	}
	if err != nil {
		return zero, false, c.wrap("get", key, err)
	}

	v, err := c.codec.Decode(b)
	if err != nil {
		return zero, false, &memostore.SerializationError{Key: key, Op: "decode", Err: err}
	}
	c.stats.Hit()
	return v, true, nil
}

// Insert stores value under key and returns the previous value if one
// existed. GET and SET ride one MULTI/EXEC pipeline so the previous value is
// read in the same round trip as the write.
func (c *Cache[V]) Insert(ctx context.Context, key string, value V) (V, bool, error) {
	var zero V

	b, err := c.codec.Encode(value)
	if err != nil {
		return zero, false, &memostore.SerializationError{Key: key, Op: "encode", Err: err}
	}

	k := c.rowKey(key)
	pipe := c.rdb.TxPipeline()
	getCmd := pipe.Get(ctx, k)
	pipe.Set(ctx, k, b, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil && err != goredis.Nil {
		return zero, false, c.wrap("insert", key, err)
	}
	c.stats.Insertion()

	prevBytes, err := getCmd.Bytes()
	if err == goredis.Nil {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, c.wrap("insert", key, err)
	}
	prev, err := c.codec.Decode(prevBytes)
	if err != nil {
		return zero, false, &memostore.SerializationError{Key: key, Op: "decode", Err: err}
	}
	return prev, true, nil
}

// Remove deletes key and returns the prior value if one existed.
func (c *Cache[V]) Remove(ctx context.Context, key string) (V, bool, error) {
	var zero V
	k := c.rowKey(key)

	pipe := c.rdb.TxPipeline()
	getCmd := pipe.Get(ctx, k)
	pipe.Del(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil && err != goredis.Nil {
		return zero, false, c.wrap("remove", key, err)
	}

	prevBytes, err := getCmd.Bytes()
	if err == goredis.Nil {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, c.wrap("remove", key, err)
	}
	prev, err := c.codec.Decode(prevBytes)
	if err != nil {
		return zero, false, &memostore.SerializationError{Key: key, Op: "decode", Err: err}
	}
	return prev, true, nil
}

// Contains reports key existence via EXISTS; it reads no value and touches
// no expiry.
func (c *Cache[V]) Contains(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, c.rowKey(key)).Result()
	if err != nil {
		return false, c.wrap("contains", key, err)
	}
	return n > 0, nil
}

// Stats returns a snapshot of the store's counters.
func (c *Cache[V]) Stats() memostore.Snapshot { return c.stats.Snapshot() }

// ResetStats zeroes the store's counters.
func (c *Cache[V]) ResetStats() { c.stats.Reset() }

// Close releases the client only when this cache owns it. Repeated calls are
// no-ops.
func (c *Cache[V]) Close(context.Context) error {
	if !c.ownClient {
		return nil
	}
	if err := c.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		return err
	}
	return nil
}

func (c *Cache[V]) rowKey(key string) string {
	return storekey.Build(c.ns, c.pfx, key)
}

// wrap classifies a go-redis error: transport and pool problems become
// ConnectionError, anything else a command-level OpError.
func (c *Cache[V]) wrap(op, key string, err error) error {
	var nerr net.Error
	switch {
	case errors.Is(err, goredis.ErrPoolTimeout),
		errors.Is(err, goredis.ErrClosed),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.As(err, &nerr):
		return &memostore.ConnectionError{Backend: "redis", Err: err}
	default:
		return &memostore.OpError{Backend: "redis", Op: op, Key: key, Err: err}
	}
}
