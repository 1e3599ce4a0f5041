// Package di wires the persistence stack: cache store, key serializer,
// entity registry, the standard interceptor chain, and a storage adapter,
// with factory functions for typed repositories.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-persistence/cache"
	"github.com/goliatone/go-persistence/entity"
	"github.com/goliatone/go-persistence/interceptor"
	"github.com/goliatone/go-persistence/repository"
	"github.com/goliatone/go-persistence/specification"
	"github.com/goliatone/go-persistence/storage"
)

// Container manages singleton instances of the persistence components and
// provides factory methods for creating repositories that share them.
type Container struct {
	adapter    storage.Adapter
	store      cache.Store
	serializer cache.KeySerializer
	registry   *entity.Registry
	chain      *interceptor.Chain
	actor      repository.ActorProvider

	// build-time inputs, consumed by NewContainer
	cacheCfg  cache.Config
	intCfg    interceptor.CacheConfig
	clock     specification.Clock
	logger    zerolog.Logger
	publisher interceptor.Publisher
	extra     []interceptor.Interceptor
	workers   int
	noCache   bool
}

// Option customizes container construction.
type Option func(*Container)

// WithStore substitutes the cache backend, for example a Redis-backed
// store. The default is the in-process sturdyc store.
func WithStore(store cache.Store) Option {
	return func(c *Container) { c.store = store }
}

// WithCacheConfig configures the default in-process store. Ignored when
// WithStore is used.
func WithCacheConfig(cfg cache.Config) Option {
	return func(c *Container) { c.cacheCfg = cfg }
}

// WithCacheTTL configures the cache interceptor's TTL policy.
func WithCacheTTL(cfg interceptor.CacheConfig) Option {
	return func(c *Container) { c.intCfg = cfg }
}

// WithoutCache drops the cache interceptor from the chain entirely.
func WithoutCache() Option {
	return func(c *Container) { c.noCache = true }
}

// WithKeySerializer substitutes the cache key serializer.
func WithKeySerializer(s cache.KeySerializer) Option {
	return func(c *Container) { c.serializer = s }
}

// WithRegistry substitutes the entity field-mapping registry.
func WithRegistry(reg *entity.Registry) Option {
	return func(c *Container) { c.registry = reg }
}

// WithActorProvider resolves the acting principal for audit and
// soft-delete stamps. The default reports an anonymous actor.
func WithActorProvider(fn repository.ActorProvider) Option {
	return func(c *Container) { c.actor = fn }
}

// WithClock substitutes the time source used for audit and soft-delete
// stamps. The default is time.Now.
func WithClock(clock specification.Clock) Option {
	return func(c *Container) { c.clock = clock }
}

// WithLogger sets the logger the logging interceptor writes to. The
// default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Container) { c.logger = logger }
}

// WithPublisher sets the event publisher for version-change events.
func WithPublisher(p interceptor.Publisher) Option {
	return func(c *Container) { c.publisher = p }
}

// WithInterceptors appends custom interceptors to the standard chain.
// They are ordered by their own priorities.
func WithInterceptors(interceptors ...interceptor.Interceptor) Option {
	return func(c *Container) { c.extra = append(c.extra, interceptors...) }
}

// WithChainWorkers bounds the batch fan-out concurrency.
func WithChainWorkers(n int) Option {
	return func(c *Container) { c.workers = n }
}

// NewContainer builds a container around the given storage adapter. The
// defaults give the standard five-interceptor chain backed by an
// in-process cache.
func NewContainer(adapter storage.Adapter, opts ...Option) (*Container, error) {
	if adapter == nil {
		return nil, fmt.Errorf("di: adapter is required")
	}

	c := &Container{
		adapter:  adapter,
		cacheCfg: cache.DefaultConfig(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.store == nil && !c.noCache {
		store, err := cache.NewStore(c.cacheCfg)
		if err != nil {
			return nil, err
		}
		c.store = store
	}
	if c.serializer == nil {
		c.serializer = cache.NewDefaultKeySerializer()
	}
	if c.registry == nil {
		c.registry = entity.NewRegistry()
	}

	interceptors := make([]interceptor.Interceptor, 0, 5+len(c.extra))
	if !c.noCache {
		interceptors = append(interceptors, interceptor.NewCache(c.store, c.serializer, c.intCfg))
	}
	interceptors = append(interceptors,
		interceptor.NewOptimisticLock(c.registry, c.publisher, adapter.SupportsNativeVersioning()),
		interceptor.NewAudit(c.registry, c.clock),
		interceptor.NewSoftDelete(c.registry, c.clock),
		interceptor.NewLogging(c.logger),
	)
	interceptors = append(interceptors, c.extra...)

	var chainOpts []interceptor.Option
	if c.workers > 0 {
		chainOpts = append(chainOpts, interceptor.WithWorkers(c.workers))
	}
	c.chain = interceptor.NewChain(interceptors, chainOpts...)

	return c, nil
}

// Adapter returns the storage adapter the container was built around.
func (c *Container) Adapter() storage.Adapter {
	return c.adapter
}

// Store returns the cache store, nil when caching is disabled.
func (c *Container) Store() cache.Store {
	return c.store
}

// KeySerializer returns the singleton key serializer instance.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.serializer
}

// Registry returns the entity field-mapping registry. Register custom
// mappings on it before creating repositories.
func (c *Container) Registry() *entity.Registry {
	return c.registry
}

// Chain returns the interceptor chain shared by every repository the
// container creates.
func (c *Container) Chain() *interceptor.Chain {
	return c.chain
}

// NewRepository creates a typed repository wired to the container's chain
// and adapter.
//
// Since Go methods cannot have type parameters, this is provided as a
// package-level function. Example: NewRepository[User](container)
func NewRepository[T any](c *Container) (*repository.Repository[T], error) {
	return repository.New[T](repository.Config{
		Chain:   c.chain,
		Adapter: c.adapter,
		Actor:   c.actor,
	})
}
