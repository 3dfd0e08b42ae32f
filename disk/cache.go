// Package disk implements the embedded persistent store on SQLite
// (modernc.org/sqlite, pure Go). One database file per configured
// directory+name; independently configured caches isolate themselves inside
// a shared file through namespaced row keys.
//
// Expiry is lazy by default: an expired row is deleted when a Get finds it.
// RemoveExpired sweeps eagerly, and Options.CleanupInterval can run that
// sweep on a background ticker for callers that want it.
package disk

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/unkn0wn-root/memostore"
	"github.com/unkn0wn-root/memostore/codec"
	"github.com/unkn0wn-root/memostore/internal/storekey"
)

// fileVersion is baked into the database file name. Bumping it orphans old
// files instead of letting a new codec misread their rows.
const fileVersion = 1

const defaultDirName = "memostore"

// Options configure a disk cache. Name is required.
type Options[V any] struct {
	// Name distinguishes this cache's database file: <Name>_v<version>.db.
	Name string

	// Dir is the directory holding the database file. Empty means the
	// platform cache directory (os.UserCacheDir) under "memostore". The
	// directory is created if absent; construction fails if it cannot be.
	Dir string

	// Namespace and Prefix partition rows inside a shared file. Two caches
	// see each other's entries only when both pairs match.
	Namespace string
	Prefix    string

	// TTL is the default time-to-live, stored alongside each value.
	// 0 means rows never expire by age.
	TTL time.Duration

	// RefreshOnRead resets a row's remaining TTL on every successful Get.
	RefreshOnRead bool

	// CleanupInterval enables a background sweep of expired rows. 0 (the
	// default) disables it: stale rows then persist until overwritten,
	// removed, or swept explicitly via RemoveExpired.
	CleanupInterval time.Duration

	// Codec defaults to codec.Msgpack[V].
	Codec codec.Codec[V]

	// Logger defaults to a nop logger.
	Logger memostore.Logger
}

// Cache is the embedded persistent store. It implements
// memostore.Store[string, V]. The database handle is opened once per Cache
// and is safe for concurrent use within the process; cross-process access
// rides on SQLite's own locking.
type Cache[V any] struct {
	db    *sql.DB
	path  string
	ns    string
	pfx   string
	ttl   time.Duration
	fresh bool
	codec codec.Codec[V]
	log   memostore.Logger
	stats memostore.Stats

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

var _ memostore.Store[string, string] = (*Cache[string])(nil)

// New opens (or creates) the cache database for opts.
func New[V any](opts Options[V]) (*Cache[V], error) {
	if opts.Name == "" {
		return nil, errors.New("disk: Name is required")
	}

	dir := opts.Dir
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, &memostore.ConnectionError{Backend: "disk", Err: err}
		}
		dir = filepath.Join(base, defaultDirName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &memostore.ConnectionError{Backend: "disk", Err: err}
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_v%d.db", opts.Name, fileVersion))
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &memostore.ConnectionError{Backend: "disk", Err: err}
	}

	// WAL keeps concurrent readers off the writers' backs.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, &memostore.ConnectionError{Backend: "disk", Err: err}
		}
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS cache (
		key           TEXT PRIMARY KEY,
		value         BLOB NOT NULL,
		created_at    INTEGER NOT NULL,
		last_accessed INTEGER NOT NULL,
		expires_at    INTEGER NOT NULL DEFAULT 0,
		hits          INTEGER NOT NULL DEFAULT 0
	)`); err != nil {
		db.Close()
		return nil, &memostore.ConnectionError{Backend: "disk", Err: err}
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON cache(expires_at)`); err != nil {
		db.Close()
		return nil, &memostore.ConnectionError{Backend: "disk", Err: err}
	}

	c := &Cache[V]{
		db:    db,
		path:  path,
		ns:    opts.Namespace,
		pfx:   opts.Prefix,
		ttl:   opts.TTL,
		fresh: opts.RefreshOnRead,
		codec: opts.Codec,
		log:   opts.Logger,
	}
	if c.codec == nil {
		c.codec = codec.Msgpack[V]{}
	}
	if c.log == nil {
		c.log = memostore.NopLogger{}
	}

	if opts.CleanupInterval > 0 {
		sweepCtx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		c.wg.Add(1)
		go c.sweep(sweepCtx, opts.CleanupInterval)
	}

	return c, nil
}

// Path returns the database file backing this cache.
func (c *Cache[V]) Path() string { return c.path }

// Get returns the live value for key. Expired rows are deleted and reported
// as a miss; rows whose bytes no longer decode surface a SerializationError.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	k := c.rowKey(key)
	now := time.Now().UnixNano()

	var blob []byte
	var expiresAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cache WHERE key = ?`, k,
	).Scan(&blob, &expiresAt)
	if err == sql.ErrNoRows {
		c.stats.Miss()
		return zero, false, nil
	}
	if err != nil {
		return zero, false, &memostore.ConnectionError{Backend: "disk", Err: err}
	}

	if expiresAt > 0 && expiresAt < now {
		if err := c.expireRow(ctx, k, expiresAt); err != nil {
			return zero, false, &memostore.ConnectionError{Backend: "disk", Err: err}
		}
		c.stats.Miss()
		return zero, false, nil
	}

	v, err := c.codec.Decode(blob)
	if err != nil {
		return zero, false, &memostore.SerializationError{Key: key, Op: "decode", Err: err}
	}

	if c.fresh && c.ttl > 0 {
		_, err = c.db.ExecContext(ctx,
			`UPDATE cache SET hits = hits + 1, last_accessed = ?, expires_at = ? WHERE key = ?`,
			now, time.Now().Add(c.ttl).UnixNano(), k)
	} else {
		_, err = c.db.ExecContext(ctx,
			`UPDATE cache SET hits = hits + 1, last_accessed = ? WHERE key = ?`, now, k)
	}
	if err != nil {
		return zero, false, &memostore.ConnectionError{Backend: "disk", Err: err}
	}

	c.stats.Hit()
	return v, true, nil
}

// Insert upserts value under key and returns the previous live value if one
// existed. Read-previous and upsert run in one transaction so a concurrent
// writer cannot slip between them. A previous value whose bytes no longer
// decode fails the insert before anything is written; Remove clears such a
// row.
func (c *Cache[V]) Insert(ctx context.Context, key string, value V) (V, bool, error) {
	var zero V

	blob, err := c.codec.Encode(value)
	if err != nil {
		return zero, false, &memostore.SerializationError{Key: key, Op: "encode", Err: err}
	}

	k := c.rowKey(key)
	now := time.Now()
	var expiresAt int64
	if c.ttl > 0 {
		expiresAt = now.Add(c.ttl).UnixNano()
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, false, &memostore.ConnectionError{Backend: "disk", Err: err}
	}
	defer tx.Rollback()

	prevBlob, prevLive, err := c.selectLive(ctx, tx, k, now.UnixNano())
	if err != nil {
		return zero, false, err
	}

	// Decode before writing: a failure rolls the transaction back, so the
	// error never hides a half-done insert.
	var prev V
	if prevLive {
		if prev, err = c.codec.Decode(prevBlob); err != nil {
			return zero, false, &memostore.SerializationError{Key: key, Op: "decode", Err: err}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cache (key, value, created_at, last_accessed, expires_at, hits)
		 VALUES (?, ?, ?, ?, ?, 0)
		 ON CONFLICT(key) DO UPDATE SET
		   value = excluded.value,
		   created_at = excluded.created_at,
		   last_accessed = excluded.last_accessed,
		   expires_at = excluded.expires_at,
		   hits = 0`,
		k, blob, now.UnixNano(), now.UnixNano(), expiresAt,
	); err != nil {
		return zero, false, &memostore.ConnectionError{Backend: "disk", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return zero, false, &memostore.ConnectionError{Backend: "disk", Err: err}
	}
	c.stats.Insertion()

	return prev, prevLive, nil
}

// Remove deletes key and returns the prior live value if one existed. The
// delete commits even when the prior bytes no longer decode: the row is gone
// and the SerializationError only reports that its value was unrecoverable,
// which makes Remove the way out for a corrupt row.
func (c *Cache[V]) Remove(ctx context.Context, key string) (V, bool, error) {
	var zero V
	k := c.rowKey(key)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, false, &memostore.ConnectionError{Backend: "disk", Err: err}
	}
	defer tx.Rollback()

	prevBlob, prevLive, err := c.selectLive(ctx, tx, k, time.Now().UnixNano())
	if err != nil {
		return zero, false, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache WHERE key = ?`, k); err != nil {
		return zero, false, &memostore.ConnectionError{Backend: "disk", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return zero, false, &memostore.ConnectionError{Backend: "disk", Err: err}
	}

	if !prevLive {
		return zero, false, nil
	}
	prev, err := c.codec.Decode(prevBlob)
	if err != nil {
		return zero, false, &memostore.SerializationError{Key: key, Op: "decode", Err: err}
	}
	return prev, true, nil
}

// Contains reports whether a live row exists for key without touching hit
// counts, access times or the TTL baseline.
func (c *Cache[V]) Contains(ctx context.Context, key string) (bool, error) {
	var expiresAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT expires_at FROM cache WHERE key = ?`, c.rowKey(key),
	).Scan(&expiresAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &memostore.ConnectionError{Backend: "disk", Err: err}
	}
	return expiresAt == 0 || expiresAt >= time.Now().UnixNano(), nil
}

// RemoveExpired deletes every expired row in this cache's namespace and
// returns how many went.
func (c *Cache[V]) RemoveExpired(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM cache WHERE expires_at > 0 AND expires_at < ? AND key LIKE ? ESCAPE '\'`,
		time.Now().UnixNano(), likePattern(c.rowKey("")))
	if err != nil {
		return 0, &memostore.ConnectionError{Backend: "disk", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &memostore.ConnectionError{Backend: "disk", Err: err}
	}
	return n, nil
}

// Stats returns a snapshot of the store's counters.
func (c *Cache[V]) Stats() memostore.Snapshot { return c.stats.Snapshot() }

// ResetStats zeroes the store's counters.
func (c *Cache[V]) ResetStats() { c.stats.Reset() }

// Close stops the background sweeper (when enabled) and closes the database.
// Safe to call more than once.
func (c *Cache[V]) Close(context.Context) error {
	var err error
	c.once.Do(func() {
		if c.cancel != nil {
			c.cancel()
			c.wg.Wait()
		}
		err = c.db.Close()
	})
	return err
}

func (c *Cache[V]) sweep(ctx context.Context, every time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := c.RemoveExpired(ctx); err != nil {
				c.log.Warn("expired-row sweep failed", memostore.Fields{"err": err})
			} else if n > 0 {
				c.log.Debug("swept expired rows", memostore.Fields{"rows": n})
			}
		}
	}
}

// expireRow deletes k only while its deadline still matches the one the
// caller observed, so a row replaced by a concurrent writer in the meantime
// survives.
func (c *Cache[V]) expireRow(ctx context.Context, k string, observed int64) error {
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM cache WHERE key = ? AND expires_at = ?`, k, observed)
	return err
}

// selectLive reads the current blob for k inside tx, reporting live=false for
// both absent and expired rows.
func (c *Cache[V]) selectLive(ctx context.Context, tx *sql.Tx, k string, now int64) ([]byte, bool, error) {
	var blob []byte
	var expiresAt int64
	err := tx.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cache WHERE key = ?`, k,
	).Scan(&blob, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &memostore.ConnectionError{Backend: "disk", Err: err}
	}
	if expiresAt > 0 && expiresAt < now {
		return nil, false, nil
	}
	return blob, true, nil
}

func (c *Cache[V]) rowKey(key string) string {
	return storekey.Build(c.ns, c.pfx, key)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns a literal key prefix into a LIKE pattern matching exactly
// the keys under it, wildcards in the prefix included.
func likePattern(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
