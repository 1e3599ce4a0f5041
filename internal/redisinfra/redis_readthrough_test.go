package redisinfra_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-persistence/interceptor"
	"github.com/goliatone/go-persistence/internal/redisinfra"
	"github.com/goliatone/go-persistence/storage"
)

type gadget struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Version int64  `json:"version"`
}

// The redis backend serializes results, so the cache interceptor must get
// typed entities back out of it, not generic maps.
func TestRedisBackedCacheServesRepeatedReads(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := redisinfra.NewRedisStoreWithClient(client, redisinfra.Config{Addr: mr.Addr()})
	c := interceptor.NewCache(store, nil, interceptor.CacheConfig{})

	calls := 0
	handler := func(ctx context.Context, op *interceptor.Context) (storage.Result, error) {
		calls++
		return storage.Result{Entity: &gadget{ID: 1, Name: "bolt", Version: 2}}, nil
	}

	get := func() *interceptor.Context {
		op := interceptor.NewContext(interceptor.OpGet, "gadget")
		op.EntityID = "1"
		op.Entity = &gadget{}
		return op
	}

	_, err := c.Before(context.Background(), get(), handler)
	require.NoError(t, err)

	op := get()
	second, err := c.Before(context.Background(), op, handler)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second identical read must be served from redis")

	got, ok := second.Entity.(*gadget)
	require.True(t, ok, "cached entity type %T", second.Entity)
	assert.Equal(t, &gadget{ID: 1, Name: "bolt", Version: 2}, got)
}

func TestRedisBackedCacheListReads(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := redisinfra.NewRedisStoreWithClient(client, redisinfra.Config{Addr: mr.Addr()})
	c := interceptor.NewCache(store, nil, interceptor.CacheConfig{})

	calls := 0
	list := []*gadget{{ID: 1, Name: "bolt"}, {ID: 2, Name: "nut"}}
	handler := func(ctx context.Context, op *interceptor.Context) (storage.Result, error) {
		calls++
		return storage.Result{Entity: &list}, nil
	}

	q := func() *interceptor.Context {
		op := interceptor.NewContext(interceptor.OpQuery, "gadget")
		op.Entity = (*gadget)(nil)
		return op
	}

	_, err := c.Before(context.Background(), q(), handler)
	require.NoError(t, err)

	second, err := c.Before(context.Background(), q(), handler)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	require.Len(t, second.Entities, 2)
	elem, ok := second.Entities[1].(*gadget)
	require.True(t, ok, "cached element type %T", second.Entities[1])
	assert.Equal(t, &gadget{ID: 2, Name: "nut"}, elem)
}
