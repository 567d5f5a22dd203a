package cache

import (
	"context"
	"time"
)

// LayeredCache is a two-level cache: an in-process L1 in front of Redis.
type LayeredCache struct {
	mem   *MemoryCache
	redis *RedisCache
}

// NewLayeredCache layers mem over redis.
func NewLayeredCache(mem *MemoryCache, redis *RedisCache) *LayeredCache {
	return &LayeredCache{mem: mem, redis: redis}
}

// Set writes through to Redis first, then to memory.
func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if err := lc.redis.Set(ctx, key, data, expiration); err != nil {
		return err
	}
	lc.mem.setRaw(key, data, expiration)
	return nil
}

// Get reads memory, then Redis, backfilling memory with Redis' remaining TTL.
func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if data, ok := lc.mem.getRaw(key); ok {
		return decode(data, dest)
	}
	data, err := lc.redis.getRaw(ctx, key)
	if err != nil {
		return err
	}
	lc.mem.setRaw(key, data, lc.redis.ttl(ctx, key))
	return decode(data, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.mem.Delete(ctx, keys...)
	return lc.redis.Delete(ctx, keys...)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, _ := lc.mem.Exists(ctx, keys...); ok {
		return true, nil
	}
	return lc.redis.Exists(ctx, keys...)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.mem.Close()
	return lc.redis.Close()
}
