package interceptor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/goliatone/go-persistence/storage"
)

// recorder is a configurable interceptor that logs which hooks ran.
type recorder struct {
	Base
	log *callLog

	beforeErr    error
	shortCircuit *storage.Result
	swallow      bool
	transformTo  error
}

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, entry)
}

func (l *callLog) entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func newRecorder(name string, p Priority, log *callLog) *recorder {
	return &recorder{Base: NewBase(name, p), log: log}
}

func (r *recorder) Before(ctx context.Context, op *Context, next Handler) (storage.Result, error) {
	r.log.add(r.Name() + ".before")
	if r.beforeErr != nil {
		return storage.Result{}, r.beforeErr
	}
	if r.shortCircuit != nil {
		return *r.shortCircuit, nil
	}
	return next(ctx, op)
}

func (r *recorder) After(ctx context.Context, op *Context, result *storage.Result) error {
	r.log.add(r.Name() + ".after")
	return nil
}

func (r *recorder) ProcessResult(ctx context.Context, op *Context, result *storage.Result) error {
	r.log.add(r.Name() + ".process")
	return nil
}

func (r *recorder) HandleError(ctx context.Context, op *Context, err error) error {
	r.log.add(r.Name() + ".handle")
	if r.swallow {
		return nil
	}
	if r.transformTo != nil {
		return r.transformTo
	}
	return err
}

func terminal(log *callLog, result storage.Result, err error) Handler {
	return func(ctx context.Context, op *Context) (storage.Result, error) {
		if log != nil {
			log.add("storage")
		}
		return result, err
	}
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestExecuteNestedWrapperOrdering(t *testing.T) {
	log := &callLog{}
	chain := NewChain([]Interceptor{
		newRecorder("low", PriorityLow, log),
		newRecorder("high", PriorityHigh, log),
		newRecorder("normal", PriorityNormal, log),
	})

	op := NewContext(OpGet, "item")
	if _, err := chain.Execute(context.Background(), op, terminal(log, storage.Result{}, nil)); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []string{
		"high.before", "normal.before", "low.before",
		"storage",
		"low.after", "low.process",
		"normal.after", "normal.process",
		"high.after", "high.process",
	}
	if got := log.entries(); !equalSlices(got, want) {
		t.Errorf("call order = %v, want %v", got, want)
	}
}

func TestExecuteRegistrationOrderBreaksTies(t *testing.T) {
	log := &callLog{}
	chain := NewChain([]Interceptor{
		newRecorder("first", PriorityNormal, log),
		newRecorder("second", PriorityNormal, log),
	})

	op := NewContext(OpGet, "item")
	if _, err := chain.Execute(context.Background(), op, terminal(log, storage.Result{}, nil)); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got := log.entries()
	if got[0] != "first.before" || got[1] != "second.before" {
		t.Errorf("tie order = %v", got)
	}
}

func TestExecuteShortCircuitSkipsDownstream(t *testing.T) {
	log := &callLog{}
	outer := newRecorder("outer", PriorityHigh, log)
	inner := newRecorder("inner", PriorityNormal, log)
	inner.shortCircuit = &storage.Result{Entity: "cached"}

	chain := NewChain([]Interceptor{outer, inner})
	op := NewContext(OpGet, "item")
	result, err := chain.Execute(context.Background(), op, terminal(log, storage.Result{}, nil))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Entity != "cached" {
		t.Errorf("result = %v, want short-circuited value", result.Entity)
	}
	for _, call := range log.entries() {
		if call == "storage" {
			t.Error("storage must not run after a short-circuit")
		}
	}
}

func TestExecuteErrorPropagatesOutward(t *testing.T) {
	log := &callLog{}
	outer := newRecorder("outer", PriorityHigh, log)
	inner := newRecorder("inner", PriorityNormal, log)

	chain := NewChain([]Interceptor{outer, inner})
	op := NewContext(OpUpdate, "item")
	boom := errors.New("storage down")
	_, err := chain.Execute(context.Background(), op, terminal(log, storage.Result{}, boom))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want original error", err)
	}

	got := log.entries()
	want := []string{"outer.before", "inner.before", "storage", "inner.handle", "outer.handle"}
	if !equalSlices(got, want) {
		t.Errorf("call order = %v, want %v", got, want)
	}
}

func TestExecuteSwallowStopsPropagation(t *testing.T) {
	log := &callLog{}
	outer := newRecorder("outer", PriorityHigh, log)
	inner := newRecorder("inner", PriorityNormal, log)
	inner.swallow = true

	chain := NewChain([]Interceptor{outer, inner})
	op := NewContext(OpUpdate, "item")
	result, err := chain.Execute(context.Background(), op, terminal(log, storage.Result{}, errors.New("boom")))
	if err != nil {
		t.Fatalf("swallowed error leaked: %v", err)
	}
	if result.Entity != nil || len(result.Entities) != 0 {
		t.Errorf("swallowed operation should yield an empty result, got %+v", result)
	}
	for _, call := range log.entries() {
		if call == "outer.handle" {
			t.Error("outer HandleError must not run once the error is swallowed")
		}
	}
}

func TestExecuteTransformReplacesError(t *testing.T) {
	log := &callLog{}
	replacement := errors.New("replaced")
	outer := newRecorder("outer", PriorityHigh, log)
	inner := newRecorder("inner", PriorityNormal, log)
	inner.transformTo = replacement

	chain := NewChain([]Interceptor{outer, inner})
	op := NewContext(OpUpdate, "item")
	_, err := chain.Execute(context.Background(), op, terminal(log, storage.Result{}, errors.New("original")))
	if !errors.Is(err, replacement) {
		t.Fatalf("err = %v, want transformed error", err)
	}
}

func TestExecuteBeforeErrorHandledLocally(t *testing.T) {
	log := &callLog{}
	failing := newRecorder("failing", PriorityNormal, log)
	failing.beforeErr = errors.New("refused")

	chain := NewChain([]Interceptor{failing})
	op := NewContext(OpCreate, "item")
	_, err := chain.Execute(context.Background(), op, terminal(log, storage.Result{}, nil))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, call := range log.entries() {
		if call == "storage" {
			t.Error("storage must not run when a before hook fails")
		}
	}
}

func TestExecuteBatchPhases(t *testing.T) {
	log := &callLog{}
	high := newRecorder("high", PriorityHigh, log)
	low := newRecorder("low", PriorityLow, log)

	chain := NewChain([]Interceptor{low, high}, WithWorkers(2))
	op := NewContext(OpBatchCreate, "item")
	op.Entities = []any{"a", "b"}

	result := storage.Result{Entities: []any{"a", "b"}}
	got, err := chain.ExecuteBatch(context.Background(), op, terminal(log, result, nil))
	if err != nil {
		t.Fatalf("ExecuteBatch: %v", err)
	}
	if len(got.Entities) != 2 {
		t.Errorf("entities = %v", got.Entities)
	}

	entries := log.entries()
	// before hooks once over the whole list, then storage.
	if !equalSlices(entries[:3], []string{"high.before", "low.before", "storage"}) {
		t.Errorf("prefix = %v", entries[:3])
	}
	// default fan-out: process per entity per interceptor.
	counts := map[string]int{}
	for _, e := range entries {
		counts[e]++
	}
	if counts["high.process"] != 2 || counts["low.process"] != 2 {
		t.Errorf("process fan-out counts = %v", counts)
	}
	// after hooks in reverse priority order at the tail.
	if entries[len(entries)-2] != "low.after" || entries[len(entries)-1] != "high.after" {
		t.Errorf("tail = %v", entries[len(entries)-2:])
	}
}

func TestExecuteBatchCumulativeRecovery(t *testing.T) {
	log := &callLog{}
	first := newRecorder("first", PriorityHigh, log)
	first.transformTo = errors.New("rewritten")
	second := newRecorder("second", PriorityNormal, log)
	second.swallow = true

	chain := NewChain([]Interceptor{first, second})
	op := NewContext(OpBatchUpdate, "item")
	op.Entities = []any{"a"}

	result, err := chain.ExecuteBatch(context.Background(), op, terminal(log, storage.Result{}, errors.New("boom")))
	if err != nil {
		t.Fatalf("recovered batch must not error: %v", err)
	}
	if result.Entities == nil || len(result.Entities) != 0 {
		t.Errorf("recovered batch should return an empty result set, got %+v", result)
	}

	got := log.entries()
	want := []string{"first.before", "second.before", "storage", "first.handle", "second.handle"}
	if !equalSlices(got, want) {
		t.Errorf("call order = %v, want %v", got, want)
	}
}

func TestExecuteBatchUnrecoveredErrorSurfaces(t *testing.T) {
	log := &callLog{}
	chain := NewChain([]Interceptor{newRecorder("only", PriorityNormal, log)})
	op := NewContext(OpBatchDelete, "item")

	boom := errors.New("boom")
	_, err := chain.ExecuteBatch(context.Background(), op, terminal(log, storage.Result{}, boom))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want original", err)
	}
}

func TestManualPhaseDrivers(t *testing.T) {
	log := &callLog{}
	ic := newRecorder("only", PriorityNormal, log)
	chain := NewChain([]Interceptor{ic})
	op := NewContext(OpUpdate, "item")

	if _, err := chain.ExecuteBefore(context.Background(), op); err != nil {
		t.Fatalf("ExecuteBefore: %v", err)
	}
	result := storage.Result{Entity: "e"}
	if err := chain.ProcessResults(context.Background(), op, &result); err != nil {
		t.Fatalf("ProcessResults: %v", err)
	}
	if err := chain.ExecuteAfter(context.Background(), op, &result); err != nil {
		t.Fatalf("ExecuteAfter: %v", err)
	}
	if err := chain.ExecuteOnError(context.Background(), op, nil); err != nil {
		t.Fatalf("ExecuteOnError(nil): %v", err)
	}

	want := []string{"only.before", "only.process", "only.after"}
	if got := log.entries(); !equalSlices(got, want) {
		t.Errorf("call order = %v, want %v", got, want)
	}
}

func TestContextChildForIsolatesValues(t *testing.T) {
	op := NewContext(OpBatchUpdate, "item")
	op.SetValue("shared", 1)
	op.Entities = []any{"a", "b"}

	child := op.ChildFor("a")
	child.SetValue("shared", 2)

	if v, _ := op.Value("shared"); v != 1 {
		t.Error("child writes must not leak into the parent")
	}
	if child.TxID != op.TxID {
		t.Error("child must share the transaction id")
	}
	if child.Entity != "a" || child.Entities != nil {
		t.Errorf("child subject = %v/%v", child.Entity, child.Entities)
	}
}

func TestOperationTypeClassification(t *testing.T) {
	reads := []OperationType{OpRead, OpGet, OpFind, OpQuery, OpAggregate, OpGroupBy, OpSortLimit, OpPaginate, OpRandomSample}
	for _, op := range reads {
		if !op.IsRead() || op.IsWrite() {
			t.Errorf("%s misclassified", op)
		}
	}
	writes := []OperationType{OpCreate, OpUpdate, OpDelete, OpBatchCreate, OpBatchUpdate, OpBatchDelete}
	for _, op := range writes {
		if !op.IsWrite() || op.IsRead() {
			t.Errorf("%s misclassified", op)
		}
	}
	for _, op := range []OperationType{OpBatchCreate, OpBatchUpdate, OpBatchDelete} {
		if !op.IsBatch() {
			t.Errorf("%s should be batch", op)
		}
	}
	if OpCommit.IsRead() || OpCommit.IsWrite() || OpUpdate.IsBatch() {
		t.Error("commit/update misclassified")
	}
}
