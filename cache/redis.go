package cache

import (
	"context"

	"github.com/goliatone/go-persistence/internal/redisinfra"
)

// RedisConfig exposes the redis store configuration for consumers of the
// cache package.
type RedisConfig struct {
	// Addr is the host:port of the redis server.
	Addr string

	// Password is optional; empty means no AUTH.
	Password string

	// DB selects the redis logical database.
	DB int

	// KeyPrefix is prepended to every key so multiple applications can
	// share one redis instance.
	KeyPrefix string

	// ScanCount is the COUNT hint passed to SCAN during pattern deletes.
	ScanCount int64
}

// NewRedisStore builds a redis-backed Store for deployments that share
// cached reads across processes. The connection is verified before the
// store is returned.
//
// Redis round-trips values through JSON, so cached entries come back as
// generic shapes rather than the types that went in; the cache layer
// treats those as misses and refetches.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (Store, error) {
	return redisinfra.NewRedisStore(ctx, redisinfra.Config{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		KeyPrefix: cfg.KeyPrefix,
		ScanCount: cfg.ScanCount,
	})
}
