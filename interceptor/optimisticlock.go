package interceptor

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-persistence/entity"
	"github.com/goliatone/go-persistence/storage"
)

// OldVersionKey is where the pre-increment version is recorded in the
// context values for single-entity updates.
const OldVersionKey = "_old_version"

// OptimisticLock prepares version-column compare-and-swap. It runs at HIGH
// priority so the version is settled before soft delete's rewrite is
// finalized and before storage commits. The actual conflict detection
// happens in the storage adapter, whose UPDATE includes the old version in
// its WHERE clause; this interceptor only increments, tracks and reports.
type OptimisticLock struct {
	Base
	registry  *entity.Registry
	publisher Publisher
	native    bool

	// updated tracks txID::entityID -> old version so one entity is never
	// incremented twice inside a transaction, batch or not.
	updated *xsync.MapOf[string, int64]
}

// NewOptimisticLock builds the lock interceptor. nativeVersioning mirrors
// the adapter capability; when true the increment is left to the engine.
func NewOptimisticLock(registry *entity.Registry, publisher Publisher, nativeVersioning bool) *OptimisticLock {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &OptimisticLock{
		Base:      NewBase("optimistic_lock", PriorityHigh),
		registry:  registry,
		publisher: publisher,
		native:    nativeVersioning,
		updated:   xsync.NewMapOf[string, int64](),
	}
}

func (l *OptimisticLock) Before(ctx context.Context, op *Context, next Handler) (storage.Result, error) {
	switch op.Operation {
	case OpCreate, OpBatchCreate:
		m := l.registry.Mapping(op.EntityType)
		for _, e := range op.subjects() {
			_ = entity.Access(e).SetField(m.Version, int64(1))
		}
	case OpUpdate, OpBatchUpdate:
		l.prepareUpdates(op)
	case OpCommit, OpRollback:
		defer l.releaseTx(op.TxID)
	}
	return next(ctx, op)
}

func (l *OptimisticLock) prepareUpdates(op *Context) {
	m := l.registry.Mapping(op.EntityType)
	for _, e := range op.subjects() {
		acc := entity.Access(e)
		raw, ok := acc.GetField(m.Version)
		if !ok {
			continue
		}
		old, ok := toInt64(raw)
		if !ok {
			continue
		}

		key := l.trackKey(op, e)
		if _, seen := l.updated.LoadOrStore(key, old); seen {
			continue
		}

		op.SetValue(OldVersionKey, old)
		if !l.native {
			_ = acc.SetField(m.Version, old+1)
		}
	}
}

// After emits EntityVersionUpdated for every entity whose version this
// transaction advanced, once the write has succeeded.
func (l *OptimisticLock) After(ctx context.Context, op *Context, result *storage.Result) error {
	if op.Operation != OpUpdate && op.Operation != OpBatchUpdate {
		return nil
	}
	// Standalone operations never see a commit, so their tracking is
	// released here once the events below have read it.
	if !op.Transactional {
		defer l.releaseTx(op.TxID)
	}
	m := l.registry.Mapping(op.EntityType)
	for _, e := range op.subjects() {
		key := l.trackKey(op, e)
		old, ok := l.updated.Load(key)
		if !ok {
			continue
		}
		raw, found := entity.Access(e).GetField(m.Version)
		newVersion, coerced := toInt64(raw)
		if !found || !coerced {
			newVersion = old + 1
		}
		l.publisher.Publish(ctx, EntityVersionUpdated{
			EntityID:   l.identity(op, e),
			EntityType: op.EntityType,
			OldVersion: old,
			NewVersion: newVersion,
			Operation:  op.Operation,
		})
	}
	return nil
}

// HandleError surfaces adapter version mismatches as conflicts. Conflicts
// are never retried here.
func (l *OptimisticLock) HandleError(ctx context.Context, op *Context, err error) error {
	if !op.Transactional && (op.Operation == OpUpdate || op.Operation == OpBatchUpdate) {
		l.releaseTx(op.TxID)
	}
	if stderrors.Is(err, storage.ErrVersionConflict) {
		return conflictError(op.EntityType, l.identity(op, op.Entity))
	}
	return err
}

func (l *OptimisticLock) trackKey(op *Context, e any) string {
	return op.TxID + "::" + l.identity(op, e)
}

func (l *OptimisticLock) identity(op *Context, e any) string {
	if e == nil {
		return op.EntityID
	}
	if id, ok := entity.Access(e).GetField("id"); ok && id != nil {
		return fmt.Sprint(id)
	}
	if op.EntityID != "" {
		return op.EntityID
	}
	// Pointer identity keeps anonymous entities distinct within a batch.
	return fmt.Sprintf("%p", e)
}

// releaseTx drops tracking state when a transaction ends so identities can
// be updated again in later transactions.
func (l *OptimisticLock) releaseTx(txID string) {
	prefix := txID + "::"
	l.updated.Range(func(key string, _ int64) bool {
		if strings.HasPrefix(key, prefix) {
			l.updated.Delete(key)
		}
		return true
	})
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case uint:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	}
	return 0, false
}
