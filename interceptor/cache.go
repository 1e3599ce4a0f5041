package interceptor

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-persistence/cache"
	"github.com/goliatone/go-persistence/entity"
	"github.com/goliatone/go-persistence/query"
	"github.com/goliatone/go-persistence/storage"
)

// CacheConfig tunes the cache interceptor.
type CacheConfig struct {
	// BaseTTL applies to plain read shapes. Default 5 minutes.
	BaseTTL time.Duration

	// AggregateTTLFactor scales BaseTTL for aggregate and group-by
	// shapes, which tolerate staleness better than point reads.
	// Default 3.
	AggregateTTLFactor int
}

func (c CacheConfig) withDefaults() CacheConfig {
	if c.BaseTTL <= 0 {
		c.BaseTTL = 5 * time.Minute
	}
	if c.AggregateTTLFactor <= 0 {
		c.AggregateTTLFactor = 3
	}
	return c
}

const cacheHitKey = "_cache_hit"

// Cache short-circuits read shapes on a hit and invalidates on writes. It
// runs at HIGHEST priority so a hit skips all downstream work. Backend
// failures degrade to a miss; the cache never aborts an operation.
type Cache struct {
	Base
	store      cache.Store
	serializer cache.KeySerializer
	cfg        CacheConfig
}

// NewCache builds the cache interceptor. A nil serializer gets the default.
func NewCache(store cache.Store, serializer cache.KeySerializer, cfg CacheConfig) *Cache {
	if serializer == nil {
		serializer = cache.NewDefaultKeySerializer()
	}
	return &Cache{
		Base:       NewBase("cache", PriorityHighest),
		store:      store,
		serializer: serializer,
		cfg:        cfg.withDefaults(),
	}
}

func (c *Cache) Before(ctx context.Context, op *Context, next Handler) (storage.Result, error) {
	switch {
	case op.Operation == OpRandomSample:
		// Non-deterministic results are never cached.
		return next(ctx, op)
	case op.Operation.IsRead():
		return c.readThrough(ctx, op, next)
	case op.Operation.IsWrite():
		result, err := next(ctx, op)
		if err == nil {
			c.invalidate(ctx, op)
		}
		return result, err
	default:
		return next(ctx, op)
	}
}

func (c *Cache) readThrough(ctx context.Context, op *Context, next Handler) (storage.Result, error) {
	key := c.key(op)

	if value, ok, err := c.store.Get(ctx, key); err == nil && ok {
		if result, ok := c.decode(op, value); ok {
			op.SetValue(cacheHitKey, true)
			return result, nil
		}
	}

	result, err := next(ctx, op)
	if err != nil {
		return result, err
	}
	_ = c.store.Set(ctx, key, result, c.ttl(op.Operation))
	return result, nil
}

// decode turns a stored value back into a result. In-process backends
// round-trip the concrete type; serializing backends hand back an encoded
// envelope that is rebuilt against the operation's entity type. Anything
// else is a foreign value and counts as a miss.
func (c *Cache) decode(op *Context, value any) (storage.Result, bool) {
	switch v := value.(type) {
	case storage.Result:
		return v, true
	case storage.EncodedResult:
		result, err := v.Decode(op.Entity)
		if err != nil {
			return storage.Result{}, false
		}
		return result, true
	case *storage.EncodedResult:
		if v == nil {
			return storage.Result{}, false
		}
		result, err := v.Decode(op.Entity)
		if err != nil {
			return storage.Result{}, false
		}
		return result, true
	}
	return storage.Result{}, false
}

func (c *Cache) key(op *Context) string {
	operation := string(op.Operation)
	if op.EntityID != "" {
		return c.serializer.EntityKey(op.EntityType, operation, op.EntityID)
	}

	var params query.Params
	if p := op.QueryParams(); p != nil {
		params = *p
	}
	switch op.Operation {
	case OpAggregate, OpGroupBy, OpSortLimit, OpPaginate:
		return c.serializer.DigestKey(op.EntityType, operation, params)
	}
	return c.serializer.QueryKey(op.EntityType, operation, params)
}

func (c *Cache) ttl(op OperationType) time.Duration {
	switch op {
	case OpAggregate, OpGroupBy:
		return c.cfg.BaseTTL * time.Duration(c.cfg.AggregateTTLFactor)
	}
	return c.cfg.BaseTTL
}

// invalidate drops the per-id entries of the touched entities plus every
// query-shaped entry for the type. Failures are ignored: stale entries age
// out via TTL.
func (c *Cache) invalidate(ctx context.Context, op *Context) {
	seen := map[string]struct{}{}
	addID := func(id string) {
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		_ = c.store.DeletePattern(ctx, c.serializer.IDPattern(op.EntityType, id))
	}

	addID(op.EntityID)
	for _, e := range op.subjects() {
		if id, ok := entity.Access(e).GetField("id"); ok && id != nil {
			addID(stringID(id))
		}
	}

	_ = c.store.DeletePattern(ctx, c.serializer.QueryPattern(op.EntityType))
}

func stringID(v any) string {
	return fmt.Sprint(v)
}
