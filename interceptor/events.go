package interceptor

import "context"

// EntityVersionUpdated is emitted after an optimistic-lock increment has
// been persisted.
type EntityVersionUpdated struct {
	EntityID   string
	EntityType string
	OldVersion int64
	NewVersion int64
	Operation  OperationType
}

// Publisher receives interceptor events. Publishing is fire-and-forget from
// the chain's point of view; a failing publisher must not fail the
// operation.
type Publisher interface {
	Publish(ctx context.Context, event any)
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event any) {}
