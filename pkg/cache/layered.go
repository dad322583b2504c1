package cache

import (
	"context"
	"time"
)

// LayeredCache implements two-level cache (L1: Memory, L2: Redis).
type LayeredCache struct {
	mem    *MemoryCache
	remote Service
	l1TTL  time.Duration
}

// NewLayeredCache puts an in-process cache in front of remote.
func NewLayeredCache(remote Service, opts ...MemoryOption) *LayeredCache {
	mem := NewMemoryCache(opts...)
	return &LayeredCache{mem: mem, remote: remote, l1TTL: mem.defaultTTL}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	// write-through: remote first, then memory
	if err := lc.remote.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	_ = lc.mem.Set(ctx, key, value, expiration)
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.mem.Get(ctx, key, dest); err == nil {
		return nil
	}
	if err := lc.remote.Get(ctx, key, dest); err != nil {
		return err
	}
	_ = lc.mem.Set(ctx, key, dest, lc.backfillTTL(ctx, key))
	return nil
}

// backfillTTL never outlives the remote entry.
func (lc *LayeredCache) backfillTTL(ctx context.Context, key string) time.Duration {
	ttl := lc.l1TTL
	tr, ok := lc.remote.(TTLReader)
	if !ok {
		return ttl
	}
	remaining, err := tr.TTL(ctx, key)
	if err != nil || remaining <= 0 {
		return ttl
	}
	if ttl <= 0 || remaining < ttl {
		return remaining
	}
	return ttl
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.mem.Delete(ctx, keys...)
	return lc.remote.Delete(ctx, keys...)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.mem.Close()
	return lc.remote.Close()
}
