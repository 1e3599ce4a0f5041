package interceptor

import (
	"github.com/google/uuid"

	"github.com/goliatone/go-persistence/query"
	"github.com/goliatone/go-persistence/specification"
	"github.com/goliatone/go-persistence/storage"
)

// OperationType names the logical operation flowing through the chain. Read
// shapes beyond the basic four exist so the cache interceptor can derive
// per-shape keys and TTLs.
type OperationType string

const (
	OpCreate       OperationType = "create"
	OpRead         OperationType = "read"
	OpGet          OperationType = "get"
	OpFind         OperationType = "find"
	OpQuery        OperationType = "query"
	OpUpdate       OperationType = "update"
	OpDelete       OperationType = "delete"
	OpBatchCreate  OperationType = "batch_create"
	OpBatchUpdate  OperationType = "batch_update"
	OpBatchDelete  OperationType = "batch_delete"
	OpCommit       OperationType = "commit"
	OpRollback     OperationType = "rollback"
	OpAggregate    OperationType = "aggregate"
	OpGroupBy      OperationType = "group_by"
	OpSortLimit    OperationType = "sort_limit"
	OpPaginate     OperationType = "paginate"
	OpRandomSample OperationType = "random_sample"
)

// IsRead reports whether the operation only reads state.
func (o OperationType) IsRead() bool {
	switch o {
	case OpRead, OpGet, OpFind, OpQuery, OpAggregate, OpGroupBy, OpSortLimit, OpPaginate, OpRandomSample:
		return true
	}
	return false
}

// IsWrite reports whether the operation mutates state.
func (o OperationType) IsWrite() bool {
	switch o {
	case OpCreate, OpUpdate, OpDelete, OpBatchCreate, OpBatchUpdate, OpBatchDelete:
		return true
	}
	return false
}

// IsBatch reports whether the operation targets an entity list.
func (o OperationType) IsBatch() bool {
	switch o {
	case OpBatchCreate, OpBatchUpdate, OpBatchDelete:
		return true
	}
	return false
}

// Priority orders interceptors within a chain. Lower values run first on the
// before path and last on the after path.
type Priority int

const (
	PriorityHighest Priority = 50
	PriorityHigh    Priority = 100
	PriorityNormal  Priority = 200
	PriorityLow     Priority = 300
	PriorityLowest  Priority = 400
)

// Context carries one logical operation through the chain. Interceptors use
// Values to hand state forward without coupling to each other's types.
// A Context is confined to one goroutine; batch fan-out hands each worker
// its own child via ChildFor.
type Context struct {
	// TxID identifies the logical transaction this operation belongs to.
	// Interceptors scope cross-operation tracking to it.
	TxID string

	// Transactional is set when the operation joined an explicit
	// transaction, so a commit or rollback will follow under the same
	// TxID. Standalone operations leave it false and interceptors release
	// per-transaction state as soon as the operation finishes.
	Transactional bool

	// EntityType is the logical entity type name.
	EntityType string

	// Operation names the op. Interceptors may rewrite it in place, e.g.
	// soft delete turning a delete into an update.
	Operation OperationType

	// Entity is the subject of single-entity operations.
	Entity any

	// Entities is the subject list of batch operations.
	Entities []any

	// EntityID addresses by-id operations.
	EntityID string

	// Actor is the acting principal recorded by audit and soft delete.
	Actor string

	// Spec is the query description for read and criteria-driven shapes.
	Spec specification.Specification

	// Values is free-form state shared along the chain for this operation.
	Values map[string]any

	// Session is the storage session the terminal handler executes
	// against.
	Session storage.Session
}

// NewContext creates a Context for one operation with a fresh transaction
// id.
func NewContext(op OperationType, entityType string) *Context {
	return &Context{
		TxID:       uuid.NewString(),
		EntityType: entityType,
		Operation:  op,
		Values:     map[string]any{},
	}
}

// WithTxID reuses an existing transaction id so several operations share
// interceptor tracking scope until the transaction ends.
func (c *Context) WithTxID(txID string) *Context {
	c.TxID = txID
	c.Transactional = true
	return c
}

// Value looks up a chain value.
func (c *Context) Value(key string) (any, bool) {
	v, ok := c.Values[key]
	return v, ok
}

// SetValue stores a chain value.
func (c *Context) SetValue(key string, value any) {
	if c.Values == nil {
		c.Values = map[string]any{}
	}
	c.Values[key] = value
}

// Flag reports whether a boolean chain value is set.
func (c *Context) Flag(key string) bool {
	v, ok := c.Values[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// QueryParams renders the spec for storage and cache key use. Nil when the
// operation carries no query description.
func (c *Context) QueryParams() *query.Params {
	if c.Spec.IsZero() {
		return nil
	}
	p := c.Spec.QueryParams()
	return &p
}

// ChildFor derives a per-entity context for batch fan-out. The child shares
// TxID but owns an independent copy of Values, so workers never race on the
// map.
func (c *Context) ChildFor(e any) *Context {
	child := *c
	child.Entity = e
	child.Entities = nil
	child.Values = make(map[string]any, len(c.Values))
	for k, v := range c.Values {
		child.Values[k] = v
	}
	return &child
}

// Request renders the context as a storage request.
func (c *Context) Request() storage.Request {
	return storage.Request{
		Operation:  string(c.Operation),
		EntityType: c.EntityType,
		Entity:     c.Entity,
		Entities:   c.Entities,
		EntityID:   c.EntityID,
		Params:     c.QueryParams(),
	}
}
