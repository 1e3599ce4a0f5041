// Package repository is the typed façade over the interceptor pipeline:
// every call builds an operation context, runs the chain, and lets the
// storage adapter do the physical work at the innermost stage.
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/goliatone/go-persistence/entity"
	"github.com/goliatone/go-persistence/interceptor"
	"github.com/goliatone/go-persistence/query"
	"github.com/goliatone/go-persistence/specification"
	"github.com/goliatone/go-persistence/storage"
)

// ActorProvider resolves the acting principal for audit and soft-delete
// stamps from the call context.
type ActorProvider func(ctx context.Context) string

// Config wires a repository.
type Config struct {
	// Chain is the interceptor pipeline every operation runs through.
	Chain *interceptor.Chain

	// Adapter provides storage sessions.
	Adapter storage.Adapter

	// Actor resolves the acting principal. Nil means anonymous.
	Actor ActorProvider

	// EntityType overrides the namespace derived from the entity type
	// name.
	EntityType string
}

// Repository executes persistence operations for one entity type through
// the chain. T is the entity struct; all methods work with *T.
type Repository[T any] struct {
	chain      *interceptor.Chain
	adapter    storage.Adapter
	actor      ActorProvider
	entityType string

	// set inside Transaction: all operations share one session and tx id.
	session storage.Session
	txID    string
}

// New builds a repository for T.
func New[T any](cfg Config) (*Repository[T], error) {
	if cfg.Chain == nil {
		return nil, fmt.Errorf("repository: Chain is required")
	}
	if cfg.Adapter == nil {
		return nil, fmt.Errorf("repository: Adapter is required")
	}

	actor := cfg.Actor
	if actor == nil {
		actor = func(context.Context) string { return "" }
	}
	entityType := cfg.EntityType
	if entityType == "" {
		entityType = entity.TypeName(new(T))
	}

	return &Repository[T]{
		chain:      cfg.Chain,
		adapter:    cfg.Adapter,
		actor:      actor,
		entityType: entityType,
	}, nil
}

// EntityType returns the namespace this repository operates under.
func (r *Repository[T]) EntityType() string {
	return r.entityType
}

// Create persists a new entity.
func (r *Repository[T]) Create(ctx context.Context, e *T) error {
	return r.write(ctx, interceptor.OpCreate, e)
}

// Update persists changes to an existing entity. Conflicts from the version
// check surface as conflict errors.
func (r *Repository[T]) Update(ctx context.Context, e *T) error {
	return r.write(ctx, interceptor.OpUpdate, e)
}

// Delete removes an entity. Soft-deletable entities are flagged instead of
// physically removed.
func (r *Repository[T]) Delete(ctx context.Context, e *T) error {
	return r.write(ctx, interceptor.OpDelete, e)
}

// ForceDelete removes an entity physically even when it is soft-deletable.
func (r *Repository[T]) ForceDelete(ctx context.Context, e *T) error {
	return r.write(interceptor.WithForceDelete(ctx), interceptor.OpDelete, e)
}

func (r *Repository[T]) write(ctx context.Context, opType interceptor.OperationType, e *T) error {
	op := r.newOp(ctx, opType)
	op.Entity = e
	_, err := r.chain.Execute(ctx, op, r.terminal(nil))
	return err
}

// CreateMany persists a batch of entities in one storage round-trip.
func (r *Repository[T]) CreateMany(ctx context.Context, entities []*T) error {
	return r.writeMany(ctx, interceptor.OpBatchCreate, entities)
}

// UpdateMany persists a batch of updates.
func (r *Repository[T]) UpdateMany(ctx context.Context, entities []*T) error {
	return r.writeMany(ctx, interceptor.OpBatchUpdate, entities)
}

// DeleteMany removes a batch of entities, soft-deleting where the type
// supports it.
func (r *Repository[T]) DeleteMany(ctx context.Context, entities []*T) error {
	return r.writeMany(ctx, interceptor.OpBatchDelete, entities)
}

func (r *Repository[T]) writeMany(ctx context.Context, opType interceptor.OperationType, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}
	op := r.newOp(ctx, opType)
	op.Entities = make([]any, len(entities))
	for i, e := range entities {
		op.Entities[i] = e
	}
	_, err := r.chain.ExecuteBatch(ctx, op, r.terminal(nil))
	return err
}

// GetByID fetches one entity by primary key.
func (r *Repository[T]) GetByID(ctx context.Context, id string) (*T, error) {
	e := new(T)
	op := r.newOp(ctx, interceptor.OpGet)
	op.Entity = e
	op.EntityID = id

	result, err := r.chain.Execute(ctx, op, r.terminal(nil))
	if err != nil {
		return nil, err
	}
	if fetched, ok := result.Entity.(*T); ok {
		return fetched, nil
	}
	return e, nil
}

// Get fetches the first entity matching the specification.
func (r *Repository[T]) Get(ctx context.Context, spec specification.Specification) (*T, error) {
	spec = spec.WithPage(query.PageParams{Page: 1, Size: 1})
	items, err := r.list(ctx, interceptor.OpFind, spec)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, storage.ErrNotFound
	}
	return items[0], nil
}

// List fetches every entity matching the specification.
func (r *Repository[T]) List(ctx context.Context, spec specification.Specification) ([]*T, error) {
	return r.list(ctx, interceptor.OpQuery, spec)
}

func (r *Repository[T]) list(ctx context.Context, opType interceptor.OperationType, spec specification.Specification) ([]*T, error) {
	var dest []*T
	op := r.newOp(ctx, opType)
	op.Spec = spec
	// Element prototype so serializing cache backends can decode hits
	// back into *T.
	op.Entity = (*T)(nil)

	result, err := r.chain.Execute(ctx, op, r.terminal(&dest))
	if err != nil {
		return nil, err
	}
	return unpack(result, dest), nil
}

// Paginate fetches one page plus the unpaginated total. The specification's
// page defaults to the first page of 25 when unset.
func (r *Repository[T]) Paginate(ctx context.Context, spec specification.Specification) (query.Page[*T], error) {
	params := spec.QueryParams()
	page := query.PageParams{Page: 1, Size: 25}
	if params.Page != nil {
		page = *params.Page
	} else {
		spec = spec.WithPage(page)
	}

	var dest []*T
	op := r.newOp(ctx, interceptor.OpPaginate)
	op.Spec = spec
	op.Entity = (*T)(nil)

	result, err := r.chain.Execute(ctx, op, r.terminal(&dest))
	if err != nil {
		return query.Page[*T]{}, err
	}
	return query.NewPage(unpack(result, dest), result.Total, page.Page, page.Size)
}

// Count returns how many entities match the specification.
func (r *Repository[T]) Count(ctx context.Context, spec specification.Specification) (int, error) {
	params := spec.QueryParams()
	stat := query.Statistic{Func: query.AggCount, Field: "id", Alias: "total"}
	params.Statistics = []query.Statistic{stat}
	params.Page = nil

	rows, err := r.aggregate(ctx, interceptor.OpAggregate, specification.FromParams(params))
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return asInt(rows[0][stat.Label()]), nil
}

// Aggregate runs the specification's statistics, optionally grouped, and
// returns one row per group.
func (r *Repository[T]) Aggregate(ctx context.Context, spec specification.Specification) ([]map[string]any, error) {
	opType := interceptor.OpAggregate
	if len(spec.QueryParams().GroupBy) > 0 {
		opType = interceptor.OpGroupBy
	}
	return r.aggregate(ctx, opType, spec)
}

func (r *Repository[T]) aggregate(ctx context.Context, opType interceptor.OperationType, spec specification.Specification) ([]map[string]any, error) {
	op := r.newOp(ctx, opType)
	op.Spec = spec
	op.Entity = (*T)(nil)

	result, err := r.chain.Execute(ctx, op, r.terminal(nil))
	if err != nil {
		return nil, err
	}
	return result.Rows, nil
}

// Sample fetches matching entities in random order, limited by the spec's
// page size (default one). Results are never cached.
func (r *Repository[T]) Sample(ctx context.Context, spec specification.Specification) ([]*T, error) {
	return r.list(ctx, interceptor.OpRandomSample, spec)
}

// Transaction runs fn against a repository whose operations share one
// transactional session and tx id. fn returning nil commits; an error
// rolls back and is returned.
func (r *Repository[T]) Transaction(ctx context.Context, fn func(tx *Repository[T]) error) error {
	sess, err := r.adapter.Begin(ctx)
	if err != nil {
		return err
	}

	txRepo := *r
	txRepo.session = sess
	txRepo.txID = uuid.NewString()

	if err := fn(&txRepo); err != nil {
		_, endErr := txRepo.end(ctx, interceptor.OpRollback)
		if endErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, endErr)
		}
		return err
	}
	_, err = txRepo.end(ctx, interceptor.OpCommit)
	return err
}

// end drives commit/rollback through the chain so interceptors can release
// per-transaction state.
func (r *Repository[T]) end(ctx context.Context, opType interceptor.OperationType) (storage.Result, error) {
	op := r.newOp(ctx, opType)
	return r.chain.Execute(ctx, op, r.terminal(nil))
}

func (r *Repository[T]) newOp(ctx context.Context, opType interceptor.OperationType) *interceptor.Context {
	op := interceptor.NewContext(opType, r.entityType)
	if r.txID != "" {
		op.WithTxID(r.txID)
	}
	op.Actor = r.actor(ctx)
	op.Session = r.session
	return op
}

// terminal is the innermost chain stage: it renders the context as a
// storage request and executes it on the operation's session.
func (r *Repository[T]) terminal(dest *[]*T) interceptor.Handler {
	return func(ctx context.Context, op *interceptor.Context) (storage.Result, error) {
		sess := op.Session
		if sess == nil {
			var err error
			if sess, err = r.adapter.Session(ctx); err != nil {
				return storage.Result{}, err
			}
		}

		req := op.Request()
		if dest != nil {
			req.Dest = dest
		}
		if v, ok := op.Value(interceptor.OldVersionKey); ok {
			if old, okInt := v.(int64); okInt {
				req.OldVersion = &old
			}
		}
		return sess.Execute(ctx, req)
	}
}

// unpack prefers the entities the interceptors saw; list shapes scan into
// dest, which the adapter echoes back through Result.Entity.
func unpack[T any](result storage.Result, dest []*T) []*T {
	if len(result.Entities) > 0 {
		out := make([]*T, 0, len(result.Entities))
		for _, e := range result.Entities {
			if typed, ok := e.(*T); ok {
				out = append(out, typed)
			}
		}
		return out
	}
	if ptr, ok := result.Entity.(*[]*T); ok && ptr != nil {
		return *ptr
	}
	return dest
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
