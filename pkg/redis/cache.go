package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	versionKeyPrefix = "ver:"
	// versionTTL keeps generation counters around long after the last write
	// so an in-flight fill always compares against the live counter.
	versionTTL = 24 * time.Hour
)

// setIfVersion writes KEYS[1] only while the generation in KEYS[2] (missing
// counts as 0) still equals ARGV[2]. ARGV[3] is the TTL in milliseconds.
var setIfVersion = goredis.NewScript(`
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[2] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// ViewCache is a generic JSON-backed Redis cache. Bind it to a value type T;
// each instance holds a Redis client and an optional TTL (0 means no expiry).
// Every key has a generation counter under "ver:<key>" that Invalidate bumps
// and SetIfVersion checks atomically.
type ViewCache[T any] struct {
	client goredis.Cmdable
	ttl    time.Duration
	log    *slog.Logger
}

// NewViewCache creates a ViewCache backed by the provided Redis client.
func NewViewCache[T any](client goredis.Cmdable, ttl time.Duration, log *slog.Logger) *ViewCache[T] {
	return &ViewCache[T]{client: client, ttl: ttl, log: log}
}

// Get retrieves and unmarshals a value from Redis.
// Returns (nil, false) on any miss, transport error or deserialisation error.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.log.Warn("cache entry is corrupt", "key", key, "error", err)
		return nil, false
	}
	return &v, true
}

// Version returns the generation of key. A key that was never invalidated
// is at generation 0.
func (c *ViewCache[T]) Version(ctx context.Context, key string) (int64, bool) {
	v, err := c.client.Get(ctx, versionKeyPrefix+key).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, true
	}
	if err != nil {
		c.log.Warn("cache version read failed", "key", key, "error", err)
		return 0, false
	}
	return v, true
}

// SetIfVersion stores value under key unless key has been invalidated since
// version was read. Errors are logged, not returned.
func (c *ViewCache[T]) SetIfVersion(ctx context.Context, key string, value *T, version int64) {
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache marshal failed", "key", key, "error", err)
		return
	}
	stored, err := setIfVersion.Run(ctx, c.client,
		[]string{key, versionKeyPrefix + key},
		data, strconv.FormatInt(version, 10), c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
		return
	}
	if stored == 0 {
		c.log.Debug("cache fill skipped, entry changed", "key", key, "version", version)
	}
}

// Invalidate bumps the generation of key and drops its value in one
// MULTI/EXEC. A failed attempt is retried once; after that the entry
// expires with its TTL.
func (c *ViewCache[T]) Invalidate(ctx context.Context, key string) {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if err = c.invalidate(ctx, key); err == nil {
			return
		}
	}
	c.log.Error("cache invalidation failed", "key", key, "error", err)
}

func (c *ViewCache[T]) invalidate(ctx context.Context, key string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Incr(ctx, versionKeyPrefix+key)
		pipe.Expire(ctx, versionKeyPrefix+key, versionTTL)
		pipe.Del(ctx, key)
		return nil
	})
	return err
}
