// Package redisinfra provides a redis-backed implementation of the cache
// store port for deployments that share cached reads across processes.
package redisinfra

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/goliatone/go-persistence/storage"
)

// Config holds connection settings for the redis store.
type Config struct {
	// Addr is the host:port of the redis server.
	Addr string

	// Password is optional; empty means no AUTH.
	Password string

	// DB selects the redis logical database.
	DB int

	// KeyPrefix is prepended to every key so multiple applications can
	// share one redis instance. Optional.
	KeyPrefix string

	// ScanCount is the COUNT hint passed to SCAN during pattern deletes.
	// Zero uses a default of 100.
	ScanCount int64
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("redis config: Addr is required")
	}
	if c.ScanCount < 0 {
		return errors.New("redis config: ScanCount must be non-negative")
	}
	return nil
}

// RedisStore implements the cache store port on top of a redis client.
// Values are stored as JSON; results are wrapped in a codec envelope so
// cached reads can be decoded back into their entity types instead of the
// generic shapes json.Unmarshal produces.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	scanCount int64
}

// NewRedisStore connects to redis and returns a store. The connection is
// verified with a PING so misconfiguration surfaces at construction time.
func NewRedisStore(ctx context.Context, cfg Config) (*RedisStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewRedisStoreWithClient(client, cfg), nil
}

// NewRedisStoreWithClient wraps an existing client. The client's lifecycle
// stays with the caller.
func NewRedisStoreWithClient(client redis.UniversalClient, cfg Config) *RedisStore {
	scanCount := cfg.ScanCount
	if scanCount == 0 {
		scanCount = 100
	}
	return &RedisStore{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		scanCount: scanCount,
	}
}

func (s *RedisStore) key(key string) string {
	return s.keyPrefix + key
}

// wirePayload is the JSON envelope every stored value travels in. Results
// go through the storage codec so the read side gets an EncodedResult back
// instead of generic maps; everything else is carried as raw JSON.
type wirePayload struct {
	Result *storage.EncodedResult `json:"result,omitempty"`
	Value  json.RawMessage        `json:"value,omitempty"`
}

// Get returns the cached value for key. redis.Nil maps to a plain miss.
// Cached results come back as storage.EncodedResult for the caller to
// decode into its entity type.
func (s *RedisStore) Get(ctx context.Context, key string) (any, bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var payload wirePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, false, err
	}
	if payload.Result != nil {
		return *payload.Result, true, nil
	}

	var value any
	if err := json.Unmarshal(payload.Value, &value); err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set stores value under key with the given ttl. A non-positive ttl stores
// the entry without expiry.
func (s *RedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	var payload wirePayload
	if res, ok := value.(storage.Result); ok {
		enc, err := storage.EncodeResult(res)
		if err != nil {
			return err
		}
		payload.Result = &enc
	} else {
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		payload.Value = raw
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.key(key), data, ttl).Err()
}

// Delete removes one key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// DeletePattern removes every key matching the glob pattern using SCAN, so
// large key spaces do not block the server the way KEYS would.
func (s *RedisStore) DeletePattern(ctx context.Context, pattern string) error {
	match := s.key(pattern)
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, s.scanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close releases the underlying client when the store owns it.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
