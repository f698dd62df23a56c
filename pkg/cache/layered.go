package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache implements a two-level cache: a fast local L1 in front of a
// shared L2, usually Redis.
type LayeredCache struct {
	l1    Service
	l2    Service
	l1TTL time.Duration
}

// NewLayeredCache stacks l1 over l2. Values promoted from l2 live in l1 for l1TTL.
func NewLayeredCache(l1, l2 Service, l1TTL time.Duration) *LayeredCache {
	return &LayeredCache{l1: l1, l2: l2, l1TTL: l1TTL}
}

// Set writes through: l2 first, then l1.
func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.l2.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	return lc.l1.Set(ctx, key, value, lc.l1Expiration(expiration))
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.l1.Get(ctx, key, dest); err == nil {
		return nil
	} else if !errors.Is(err, ErrCacheMiss) {
		return err
	}

	if err := lc.l2.Get(ctx, key, dest); err != nil {
		return err
	}
	_ = lc.l1.Set(ctx, key, dest, lc.l1TTL)
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.l1.Delete(ctx, keys...)
	return lc.l2.Delete(ctx, keys...)
}

func (lc *LayeredCache) DeleteByPattern(ctx context.Context, pattern string) error {
	_ = lc.l1.DeleteByPattern(ctx, pattern)
	return lc.l2.DeleteByPattern(ctx, pattern)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, err := lc.l1.Exists(ctx, keys...); err == nil && ok {
		return true, nil
	}
	return lc.l2.Exists(ctx, keys...)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	return errors.Join(lc.l1.Close(), lc.l2.Close())
}

func (lc *LayeredCache) l1Expiration(expiration time.Duration) time.Duration {
	if lc.l1TTL > 0 && (expiration <= 0 || lc.l1TTL < expiration) {
		return lc.l1TTL
	}
	return expiration
}
