package cache

import (
	"context"
	"time"
)

// Store exposes the caching operations the cache interceptor needs. Backends
// (sturdyc in-process, redis) implement it; the interceptor treats any
// backend error as a miss.
type Store interface {
	// Get returns the cached value and whether the key was present.
	Get(ctx context.Context, key string) (any, bool, error)
	// Set stores value under key for ttl. A non-positive ttl uses the
	// backend default.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Delete removes one key.
	Delete(ctx context.Context, key string) error
	// DeletePattern removes every key matching the glob pattern
	// (path.Match syntax, the subset shared with redis MATCH).
	DeletePattern(ctx context.Context, pattern string) error
}

// FetchFn is the function signature GetOrFetch expects when loading from the
// source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// GetOrFetch is a read-through helper over a Store: on miss (or backend
// error) it invokes fetch and stores the result with ttl.
func GetOrFetch[T any](ctx context.Context, store Store, key string, ttl time.Duration, fetch FetchFn[T]) (T, error) {
	if cached, ok, err := store.Get(ctx, key); err == nil && ok {
		if typed, ok := cached.(T); ok {
			return typed, nil
		}
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	// Best effort: a failed write only costs a future recompute.
	_ = store.Set(ctx, key, value, ttl)
	return value, nil
}
