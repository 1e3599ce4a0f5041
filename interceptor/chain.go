package interceptor

import (
	"context"
	"sort"
	"sync"

	"github.com/goliatone/go-persistence/storage"
)

// Handler is a stage of the composed pipeline: either the next wrapped
// interceptor or the terminal storage call.
type Handler func(ctx context.Context, op *Context) (storage.Result, error)

// Interceptor is one stage of the chain. Base provides pass-through
// defaults, so implementations override only the hooks they care about.
type Interceptor interface {
	// Name identifies the interceptor in logs.
	Name() string

	// Priority orders the interceptor within the chain.
	Priority() Priority

	// Before wraps the rest of the chain. Implementations may mutate the
	// operation, short-circuit by not invoking next, or fail.
	Before(ctx context.Context, op *Context, next Handler) (storage.Result, error)

	// After observes or amends a successful result on the way out.
	After(ctx context.Context, op *Context, result *storage.Result) error

	// ProcessResult post-processes a successful single-entity result.
	ProcessResult(ctx context.Context, op *Context, result *storage.Result) error

	// HandleError sees errors propagating outward. Returning nil swallows
	// the error; returning a different error transforms it.
	HandleError(ctx context.Context, op *Context, err error) error
}

// BatchResultProcessor is implemented by interceptors that want the whole
// batch result at once. Those that do not get the default per-entity
// fan-out of ProcessResult.
type BatchResultProcessor interface {
	ProcessBatchResults(ctx context.Context, op *Context, result *storage.Result) error
}

// Base supplies pass-through hook implementations.
type Base struct {
	name     string
	priority Priority
}

// NewBase names an interceptor and fixes its priority.
func NewBase(name string, priority Priority) Base {
	return Base{name: name, priority: priority}
}

func (b Base) Name() string       { return b.name }
func (b Base) Priority() Priority { return b.priority }

func (b Base) Before(ctx context.Context, op *Context, next Handler) (storage.Result, error) {
	return next(ctx, op)
}

func (b Base) After(ctx context.Context, op *Context, result *storage.Result) error {
	return nil
}

func (b Base) ProcessResult(ctx context.Context, op *Context, result *storage.Result) error {
	return nil
}

func (b Base) HandleError(ctx context.Context, op *Context, err error) error {
	return err
}

// Chain composes interceptors around storage operations as nested wrappers.
// The interceptor order is fixed once by (priority, registration order);
// execution is deterministic across runs for the same interceptor set.
type Chain struct {
	interceptors []Interceptor
	workers      int
}

// Option configures a Chain.
type Option func(*Chain)

// WithWorkers bounds the goroutines used for batch result fan-out.
func WithWorkers(n int) Option {
	return func(c *Chain) {
		if n > 0 {
			c.workers = n
		}
	}
}

// NewChain builds a chain from the given interceptors. Registration order
// breaks priority ties.
func NewChain(interceptors []Interceptor, opts ...Option) *Chain {
	c := &Chain{
		interceptors: append([]Interceptor(nil), interceptors...),
		workers:      4,
	}
	for _, opt := range opts {
		opt(c)
	}
	sort.SliceStable(c.interceptors, func(i, j int) bool {
		return c.interceptors[i].Priority() < c.interceptors[j].Priority()
	})
	return c
}

// Interceptors returns the chain's stages in execution order.
func (c *Chain) Interceptors() []Interceptor {
	return append([]Interceptor(nil), c.interceptors...)
}

// Execute runs a single-entity operation through the chain. Each stage
// wraps the next; the innermost call is the storage operation. Results flow
// back out through After then ProcessResult of each stage in reverse order.
// Errors propagate outward through HandleError of every stage they pass: a
// stage may swallow the error, ending the operation with an empty result,
// or replace it. Stages can stop an error but never a success.
func (c *Chain) Execute(ctx context.Context, op *Context, operation Handler) (storage.Result, error) {
	next := operation
	for i := len(c.interceptors) - 1; i >= 0; i-- {
		next = c.wrap(c.interceptors[i], next)
	}
	return next(ctx, op)
}

func (c *Chain) wrap(ic Interceptor, inner Handler) Handler {
	return func(ctx context.Context, op *Context) (storage.Result, error) {
		result, err := ic.Before(ctx, op, inner)
		if err == nil {
			err = ic.After(ctx, op, &result)
		}
		if err == nil {
			err = ic.ProcessResult(ctx, op, &result)
		}
		if err != nil {
			if err = ic.HandleError(ctx, op, err); err != nil {
				return storage.Result{}, err
			}
			return storage.Result{}, nil
		}
		return result, nil
	}
}

// ExecuteBatch runs a batch operation. Before hooks wrap the single storage
// call once over the whole entity list; on success every stage processes
// the batch result in priority order, then After hooks run in reverse
// order. On failure every stage's HandleError runs in turn over the current
// error (cumulative recovery); if the error reaches nil the batch returns
// an empty result set.
func (c *Chain) ExecuteBatch(ctx context.Context, op *Context, operation Handler) (storage.Result, error) {
	next := operation
	for i := len(c.interceptors) - 1; i >= 0; i-- {
		ic := c.interceptors[i]
		inner := next
		next = func(ctx context.Context, op *Context) (storage.Result, error) {
			return ic.Before(ctx, op, inner)
		}
	}

	result, err := next(ctx, op)
	if err == nil {
		err = c.ProcessBatchResults(ctx, op, &result)
	}
	if err == nil {
		err = c.ExecuteAfter(ctx, op, &result)
	}
	if err != nil {
		if err = c.ExecuteOnError(ctx, op, err); err != nil {
			return storage.Result{}, err
		}
		return storage.Result{Entities: []any{}}, nil
	}
	return result, nil
}

// ExecuteBefore runs only the before hooks, terminating the chain at a
// no-op. Together with ExecuteAfter and ExecuteOnError it lets repository
// code drive the phases manually around its own storage call.
func (c *Chain) ExecuteBefore(ctx context.Context, op *Context) (storage.Result, error) {
	terminal := func(ctx context.Context, op *Context) (storage.Result, error) {
		return storage.Result{}, nil
	}
	next := Handler(terminal)
	for i := len(c.interceptors) - 1; i >= 0; i-- {
		ic := c.interceptors[i]
		inner := next
		next = func(ctx context.Context, op *Context) (storage.Result, error) {
			return ic.Before(ctx, op, inner)
		}
	}
	return next(ctx, op)
}

// ExecuteAfter runs the after hooks in reverse priority order.
func (c *Chain) ExecuteAfter(ctx context.Context, op *Context, result *storage.Result) error {
	for i := len(c.interceptors) - 1; i >= 0; i-- {
		if err := c.interceptors[i].After(ctx, op, result); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteOnError runs every stage's HandleError over the current error in
// priority order. Each stage may replace or clear it; nil means the error
// was swallowed.
func (c *Chain) ExecuteOnError(ctx context.Context, op *Context, err error) error {
	for _, ic := range c.interceptors {
		if err == nil {
			return nil
		}
		err = ic.HandleError(ctx, op, err)
	}
	return err
}

// ProcessResults runs every stage's ProcessResult in priority order.
func (c *Chain) ProcessResults(ctx context.Context, op *Context, result *storage.Result) error {
	for _, ic := range c.interceptors {
		if err := ic.ProcessResult(ctx, op, result); err != nil {
			return err
		}
	}
	return nil
}

// ProcessBatchResults gives every stage the batch result. Stages that
// implement BatchResultProcessor get it whole; the rest get the default
// fan-out: ProcessResult per entity over independent child contexts with
// bounded goroutines.
func (c *Chain) ProcessBatchResults(ctx context.Context, op *Context, result *storage.Result) error {
	for _, ic := range c.interceptors {
		if bp, ok := ic.(BatchResultProcessor); ok {
			if err := bp.ProcessBatchResults(ctx, op, result); err != nil {
				return err
			}
			continue
		}
		if err := c.fanOut(ctx, op, ic, result); err != nil {
			return err
		}
	}
	return nil
}

// fanOut processes each batch entity independently. Entities are
// independent after the shared storage round-trip, so the only
// coordination needed is the worker bound and first-error capture.
func (c *Chain) fanOut(ctx context.Context, op *Context, ic Interceptor, result *storage.Result) error {
	if len(result.Entities) == 0 {
		return nil
	}

	sem := make(chan struct{}, c.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, e := range result.Entities {
		wg.Add(1)
		sem <- struct{}{}
		go func(e any) {
			defer wg.Done()
			defer func() { <-sem }()

			child := op.ChildFor(e)
			entityResult := storage.Result{Entity: e}
			if err := ic.ProcessResult(ctx, child, &entityResult); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(e)
	}
	wg.Wait()
	return firstErr
}
