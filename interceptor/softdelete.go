package interceptor

import (
	"context"
	"time"

	"github.com/goliatone/go-persistence/entity"
	"github.com/goliatone/go-persistence/specification"
	"github.com/goliatone/go-persistence/storage"
)

type forceDeleteContextKey struct{}

// WithForceDelete marks the context so the soft-delete interceptor lets the
// physical delete through.
func WithForceDelete(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, forceDeleteContextKey{}, true)
}

func forceDeleteFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	force, ok := ctx.Value(forceDeleteContextKey{}).(bool)
	return ok && force
}

const softDeleteAppliedKey = "_soft_delete_applied"

// SoftDelete converts physical deletes into flag updates for entities that
// carry an is-deleted field. The rewritten operation continues down the
// chain as a normal persisted write; entities without the field hard-delete
// unchanged.
type SoftDelete struct {
	Base
	registry *entity.Registry
	clock    specification.Clock
}

// NewSoftDelete builds the soft-delete interceptor. A nil clock means
// time.Now.
func NewSoftDelete(registry *entity.Registry, clock specification.Clock) *SoftDelete {
	if clock == nil {
		clock = time.Now
	}
	return &SoftDelete{
		Base:     NewBase("soft_delete", PriorityNormal),
		registry: registry,
		clock:    clock,
	}
}

func (s *SoftDelete) Before(ctx context.Context, op *Context, next Handler) (storage.Result, error) {
	if op.Operation != OpDelete && op.Operation != OpBatchDelete {
		return next(ctx, op)
	}
	if forceDeleteFromContext(ctx) {
		return next(ctx, op)
	}
	// Re-entrant layers must not flip the operation twice.
	if op.Flag(softDeleteAppliedKey) {
		return next(ctx, op)
	}

	m := s.registry.Mapping(op.EntityType)
	now := s.clock()
	converted := false
	for _, e := range op.subjects() {
		acc := entity.Access(e)
		if _, ok := acc.GetField(m.IsDeleted); !ok {
			continue
		}
		_ = acc.SetField(m.IsDeleted, true)
		_ = acc.SetField(m.DeletedAt, now)
		if op.Actor != "" {
			_ = acc.SetField(m.DeletedBy, op.Actor)
		}
		converted = true
	}

	if converted {
		if op.Operation == OpBatchDelete {
			op.Operation = OpBatchUpdate
		} else {
			op.Operation = OpUpdate
		}
		op.SetValue(softDeleteAppliedKey, true)
	}
	return next(ctx, op)
}
