package cacheinfra

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc cache adapter.
// It encapsulates the core sturdyc options needed for cache initialization.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Higher values improve concurrency but increase memory overhead.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is the default time-to-live for cached entries.
	// After this duration, entries are considered expired.
	// Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	// Default: 10 (evict 10% of entries)
	EvictionPercentage int

	// EarlyRefresh configures early refresh behavior for cached entries.
	// If nil, early refresh is disabled.
	EarlyRefresh *EarlyRefreshConfig

	// MissingRecordStorage enables storage for missing record flags.
	// When enabled, the cache will remember keys that returned no results
	// to prevent repeated database queries for non-existent records.
	MissingRecordStorage bool

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig configures early refresh behavior.
// Early refresh prevents cache stampedes by refreshing entries
// before they expire when they're frequently accessed.
type EarlyRefreshConfig struct {
	// MinAsyncRefreshTime is the minimum time after which an async refresh can occur
	MinAsyncRefreshTime time.Duration

	// MaxAsyncRefreshTime is the maximum time after which an async refresh can occur
	MaxAsyncRefreshTime time.Duration

	// SyncRefreshTime is when a refresh becomes synchronous instead of async
	SyncRefreshTime time.Duration

	// RetryBaseDelay is the base delay for retry attempts when early refresh fails
	RetryBaseDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EarlyRefresh: &EarlyRefreshConfig{
			MinAsyncRefreshTime: 10 * time.Second,
			MaxAsyncRefreshTime: 20 * time.Second,
			SyncRefreshTime:     30 * time.Second,
			RetryBaseDelay:      100 * time.Millisecond,
		},
		MissingRecordStorage: true,
		EvictionInterval:     0, // Use default
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Note: Capacity, NumShards, TTL, and EvictionPercentage are passed directly
// to sturdyc.New() and are not included in the options.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
// Returns an error if any configuration parameter is invalid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EarlyRefresh != nil {
		if c.EarlyRefresh.MinAsyncRefreshTime < 0 {
			return &ConfigError{Field: "EarlyRefresh.MinAsyncRefreshTime", Message: "must be non-negative"}
		}
		if c.EarlyRefresh.MaxAsyncRefreshTime < 0 {
			return &ConfigError{Field: "EarlyRefresh.MaxAsyncRefreshTime", Message: "must be non-negative"}
		}
		if c.EarlyRefresh.SyncRefreshTime < 0 {
			return &ConfigError{Field: "EarlyRefresh.SyncRefreshTime", Message: "must be non-negative"}
		}
		if c.EarlyRefresh.RetryBaseDelay < 0 {
			return &ConfigError{Field: "EarlyRefresh.RetryBaseDelay", Message: "must be non-negative"}
		}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// SturdycStore wraps sturdyc clients behind the cache store port. sturdyc
// expiry is client-wide, so per-call TTLs are honored by sharding entries
// into one client per distinct TTL. Callers use a small, fixed set of TTLs
// (base reads plus scaled aggregates), so the band count stays bounded.
type SturdycStore struct {
	cfg Config

	mu    sync.RWMutex
	bands map[time.Duration]*sturdyc.Client[any]
}

// NewSturdycStore creates a new sturdyc-backed store. It validates the
// configuration and initializes the default TTL band eagerly; further bands
// are created on first use.
//
// Version compatibility note: this implementation assumes sturdyc v1.x API.
// Monitor sturdyc version upgrades for potential option mapping changes.
func NewSturdycStore(cfg Config) (*SturdycStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &SturdycStore{
		cfg:   cfg,
		bands: map[time.Duration]*sturdyc.Client[any]{},
	}
	s.bands[cfg.TTL] = s.newClient(cfg.TTL)
	return s, nil
}

func (s *SturdycStore) newClient(ttl time.Duration) *sturdyc.Client[any] {
	return sturdyc.New[any](
		s.cfg.Capacity,
		s.cfg.NumShards,
		ttl,
		s.cfg.EvictionPercentage,
		s.cfg.ToSturdycOptions()...,
	)
}

// band returns the client whose TTL matches, creating it on first use. A
// non-positive ttl maps to the configured default.
func (s *SturdycStore) band(ttl time.Duration) *sturdyc.Client[any] {
	if ttl <= 0 {
		ttl = s.cfg.TTL
	}

	s.mu.RLock()
	client, ok := s.bands[ttl]
	s.mu.RUnlock()
	if ok {
		return client
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if client, ok = s.bands[ttl]; ok {
		return client
	}
	client = s.newClient(ttl)
	s.bands[ttl] = client
	return client
}

func (s *SturdycStore) snapshot() []*sturdyc.Client[any] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*sturdyc.Client[any], 0, len(s.bands))
	for _, c := range s.bands {
		out = append(out, c)
	}
	return out
}

// Get returns the cached value for key and whether it was present. A key
// lives in exactly one band, so the scan stops at the first hit.
func (s *SturdycStore) Get(ctx context.Context, key string) (any, bool, error) {
	for _, client := range s.snapshot() {
		if value, ok := client.Get(key); ok {
			return value, true, nil
		}
	}
	return nil, false, nil
}

// Set stores value under key in the band matching ttl. The key is dropped
// from the other bands so a re-cache under a new TTL never leaves a stale
// duplicate behind.
func (s *SturdycStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	target := s.band(ttl)
	for _, client := range s.snapshot() {
		if client != target {
			client.Delete(key)
		}
	}
	target.Set(key, value)
	return nil
}

// Delete removes a single entry from the cache.
func (s *SturdycStore) Delete(ctx context.Context, key string) error {
	for _, client := range s.snapshot() {
		client.Delete(key)
	}
	return nil
}

// DeletePattern removes all entries whose keys match the glob pattern. The
// key space is scanned; this is intended for write invalidation, not hot
// paths.
func (s *SturdycStore) DeletePattern(ctx context.Context, pattern string) error {
	for _, client := range s.snapshot() {
		for _, key := range client.ScanKeys() {
			if matched, err := path.Match(pattern, key); err == nil && matched {
				client.Delete(key)
			}
		}
	}
	return nil
}
