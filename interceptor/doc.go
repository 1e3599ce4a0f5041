// Package interceptor implements the persistence middleware pipeline.
//
// # Overview
//
// A Chain composes interceptors around storage operations as nested
// wrappers: each stage's Before receives the rest of the chain as next and
// decides whether to delegate, mutate the operation first, or short-circuit
// with its own result. The innermost handler is the real storage call.
//
// Ordering is a strict priority total order, ties broken by registration
// order, so execution is deterministic for a given interceptor set. Lower
// priority values run first on the before path and last on the after path.
//
// # Error semantics
//
// Errors propagate outward through each entered stage's HandleError. A
// stage may swallow the error by returning nil, ending the operation with
// an empty result, or replace it with a different error. The asymmetry is
// deliberate: a stage can stop an error but never a success.
//
// # Batch semantics
//
// ExecuteBatch runs all Before hooks once over the whole entity list around
// a single storage call, then processes results per stage (default:
// bounded-goroutine fan-out of ProcessResult over independent child
// contexts), then runs After hooks in reverse order. On failure every
// stage's HandleError runs in turn over the current error; if it reaches
// nil the batch returns an empty result set.
//
// # Standard interceptors
//
// Audit, SoftDelete, OptimisticLock, Cache and Logging cover the common
// persistence concerns. All field access goes through the entity package's
// field-mapping registry, so entities may rename the conventional columns.
package interceptor
