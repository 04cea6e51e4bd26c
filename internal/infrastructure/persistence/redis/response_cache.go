package redis

import (
	"context"
	"errors"
	"time"

	"github.com/survival-hub/course-survival-hub/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE CACHE
// ══════════════════════════════════════════════════════════════════════════════

// ResponseCache memoizes serialized API responses. Every query result
// is a pure function of the loaded collection, so a response stays
// valid until the next ETL reload; the TTL only bounds staleness when
// an invalidation is missed.
//
// Redis is optional here. A circuit breaker guards every call: once
// the cache looks down, requests skip it instead of paying a timeout
// each. A nil ResponseCache is also valid and degrades to a no-op, so
// the HTTP layer never branches on whether Redis is configured.
type ResponseCache struct {
	cache   *Cache
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker
}

// NewResponseCache creates a ResponseCache over an established Cache
// client. A non-positive ttl falls back to TTLResponseCache.
func NewResponseCache(cache *Cache, ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = TTLResponseCache
	}
	return &ResponseCache{
		cache:   cache,
		ttl:     ttl,
		breaker: circuitbreaker.CacheBreaker(nil),
	}
}

// Get returns the memoized payload for key, or (nil, false) on a miss.
// Redis errors read as misses: the caller recomputes and the request
// still succeeds.
func (rc *ResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if rc == nil || rc.cache == nil || key == "" {
		return nil, false
	}

	var payload []byte
	err := rc.breaker.Execute(ctx, func(ctx context.Context) error {
		data, err := rc.cache.GetBytes(ctx, key)
		if err != nil {
			// A miss is a normal outcome, not a cache failure.
			if errors.Is(err, ErrCacheMiss) {
				return nil
			}
			return err
		}
		payload = data
		return nil
	})
	if err != nil || payload == nil {
		return nil, false
	}

	return payload, true
}

// Set memoizes a serialized payload under key. Failures are swallowed
// for the same reason Get treats errors as misses.
func (rc *ResponseCache) Set(ctx context.Context, key string, payload []byte) {
	if rc == nil || rc.cache == nil || key == "" || len(payload) == 0 {
		return
	}

	_ = rc.breaker.Execute(ctx, func(ctx context.Context) error {
		return rc.cache.SetBytes(ctx, key, payload, rc.ttl)
	})
}

// Invalidate removes the memoized payload for key.
func (rc *ResponseCache) Invalidate(ctx context.Context, key string) error {
	if rc == nil || rc.cache == nil || key == "" {
		return nil
	}

	return rc.cache.Delete(ctx, key)
}

// InvalidateAll flushes every memoized response. Run after an ETL
// reload so no request serves the previous collection.
func (rc *ResponseCache) InvalidateAll(ctx context.Context) error {
	if rc == nil || rc.cache == nil {
		return nil
	}

	patterns := []string{
		PrefixReport + "*",
		PrefixHeatmap + "*",
		PrefixEquity + "*",
		PrefixCourses + "*",
		PrefixRanking + "*",
		PrefixSector + "*",
		PrefixList + "*",
	}

	var errs []error
	for _, p := range patterns {
		if err := rc.cache.DeleteByPattern(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
