// Package cache provides the caching port and key serialization used by the
// cache interceptor.
//
// # Overview
//
// This package exports two main interfaces and their default implementations:
//
//   - Store: Get/Set/Delete/DeletePattern over a cache backend
//   - KeySerializer: deterministic cache keys from entity type, operation
//     and either an entity id or query params
//
// Two backends ship with the module: an in-process sturdyc store constructed
// via NewStore, and a redis store in internal/redisinfra wired through
// pkg/di.
//
// # Key Layout
//
// Keys have three segments joined by "::":
//
//	<entity namespace>::<operation>::id:<entity id>
//	<entity namespace>::<operation>::q:<canonical params or digest>
//
// The entity namespace is the snake_cased entity type name. Id-shaped and
// query-shaped entries are distinguished so write invalidation can target
// one entity id (IDPattern) or every query result for the type
// (QueryPattern) without touching unrelated namespaces.
//
// # Serialization Strategy
//
// QueryKey canonicalizes params with sorted filters and deterministic map
// ordering, so logically equal specifications produce the same key
// regardless of construction order. DigestKey collapses the canonical form
// through xxhash for aggregate and windowed read shapes whose canonical
// serialization can get long.
//
// # Error Handling
//
// The package prioritizes stability over perfection: values that cannot be
// serialized deterministically fall back to JSON and finally to their type
// name rather than panicking, so cache operations continue even with
// unusual filter values.
package cache
