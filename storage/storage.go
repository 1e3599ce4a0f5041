// Package storage declares the ports the interceptor pipeline needs from a
// physical storage engine. The pipeline never talks to a database directly;
// it hands a Request to a Session and receives a Result back. The bunstorage
// package provides the reference implementation.
package storage

import (
	"context"
	"errors"

	"github.com/goliatone/go-persistence/query"
)

// ErrVersionConflict is returned by adapters when an optimistic update's
// expected version no longer matches the stored row. Callers detect it with
// errors.Is; the pipeline surfaces it as a conflict and never retries.
var ErrVersionConflict = errors.New("storage: version conflict")

// ErrNotFound is returned when a single-entity read matches no row.
var ErrNotFound = errors.New("storage: not found")

// Request describes one physical operation. Exactly one of Entity or
// Entities is set for write shapes; read shapes carry Params.
type Request struct {
	// Operation is the operation name as the pipeline knows it, e.g.
	// "create", "batch_update", "aggregate".
	Operation string

	// EntityType is the logical entity type name used for table routing
	// and cache namespaces.
	EntityType string

	// Entity is the subject of a single-entity write or the prototype for
	// a single-entity read.
	Entity any

	// Entities is the subject list of a batch write.
	Entities []any

	// EntityID addresses a single-entity read or delete by primary key.
	EntityID string

	// Params carries the query description for read shapes and the WHERE
	// constraints for criteria-driven writes. Nil for plain by-id ops.
	Params *query.Params

	// Dest is the typed destination list shapes scan into, a pointer to a
	// slice owned by the caller. Adapters fill it; the caller unpacks it
	// into Result.Entities.
	Dest any

	// OldVersion, when set, makes the adapter include the version column
	// in an update's WHERE clause and report ErrVersionConflict on zero
	// affected rows.
	OldVersion *int64
}

// Result is what a physical operation produced.
type Result struct {
	// Entity is the affected or fetched entity for single shapes.
	Entity any

	// Entities holds fetched or affected entities for list and batch
	// shapes.
	Entities []any

	// Total is the unpaginated match count for paginated reads and the
	// scalar output of count shapes.
	Total int

	// Rows holds raw aggregate output: one map per group with statistic
	// labels as keys.
	Rows []map[string]any

	// RowsAffected reports how many rows a write touched.
	RowsAffected int64
}

// Session executes operations, optionally inside a transaction. Sessions
// are not safe for concurrent use; the pipeline serializes calls per TxID.
type Session interface {
	// Execute performs one physical operation.
	Execute(ctx context.Context, req Request) (Result, error)

	// Commit makes the session's writes durable. No-op outside a
	// transaction.
	Commit(ctx context.Context) error

	// Rollback discards the session's writes. No-op outside a
	// transaction.
	Rollback(ctx context.Context) error
}

// Adapter creates sessions and reports engine capabilities.
type Adapter interface {
	// Session returns a non-transactional session.
	Session(ctx context.Context) (Session, error)

	// Begin opens a transactional session.
	Begin(ctx context.Context) (Session, error)

	// SupportsNativeVersioning reports whether the engine manages
	// optimistic-lock version columns itself. When true the lock
	// interceptor skips its own increment.
	SupportsNativeVersioning() bool
}
