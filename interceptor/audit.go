package interceptor

import (
	"context"
	"time"

	"github.com/goliatone/go-persistence/entity"
	"github.com/goliatone/go-persistence/specification"
	"github.com/goliatone/go-persistence/storage"
)

// Audit stamps creation and update metadata onto entities before they reach
// storage. Column names resolve through the field-mapping registry, so
// entities can rename audit columns without touching the interceptor; an
// entity without a mapped field is skipped silently.
type Audit struct {
	Base
	registry *entity.Registry
	clock    specification.Clock
}

// NewAudit builds the audit interceptor. A nil clock means time.Now.
func NewAudit(registry *entity.Registry, clock specification.Clock) *Audit {
	if clock == nil {
		clock = time.Now
	}
	return &Audit{
		Base:     NewBase("audit", PriorityNormal),
		registry: registry,
		clock:    clock,
	}
}

func (a *Audit) Before(ctx context.Context, op *Context, next Handler) (storage.Result, error) {
	switch op.Operation {
	case OpCreate, OpBatchCreate:
		now := a.clock()
		for _, e := range op.subjects() {
			a.stampCreate(op, e, now)
		}
	case OpUpdate, OpBatchUpdate:
		now := a.clock()
		for _, e := range op.subjects() {
			a.stampUpdate(op, e, now)
		}
	}
	return next(ctx, op)
}

func (a *Audit) stampCreate(op *Context, e any, now time.Time) {
	m := a.registry.Mapping(op.EntityType)
	acc := entity.Access(e)

	// created and updated pairs get the same instant on create.
	_ = acc.SetField(m.CreatedAt, now)
	_ = acc.SetField(m.UpdatedAt, now)
	if op.Actor != "" {
		_ = acc.SetField(m.CreatedBy, op.Actor)
		_ = acc.SetField(m.UpdatedBy, op.Actor)
	}
}

func (a *Audit) stampUpdate(op *Context, e any, now time.Time) {
	m := a.registry.Mapping(op.EntityType)
	acc := entity.Access(e)

	_ = acc.SetField(m.UpdatedAt, now)
	if op.Actor != "" {
		_ = acc.SetField(m.UpdatedBy, op.Actor)
	}
}

// subjects returns the entities an operation targets, batch or single.
func (c *Context) subjects() []any {
	if len(c.Entities) > 0 {
		return c.Entities
	}
	if c.Entity != nil {
		return []any{c.Entity}
	}
	return nil
}
