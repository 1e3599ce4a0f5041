package testsupport

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/goliatone/go-persistence/storage"
)

// RecordingPublisher captures published events for assertions.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []any
}

// Publish appends the event to the recording.
func (p *RecordingPublisher) Publish(ctx context.Context, event any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

// Events returns a copy of everything published so far.
func (p *RecordingPublisher) Events() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]any(nil), p.events...)
}

// Reset clears the recording.
func (p *RecordingPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// NopAdapter is a storage adapter whose sessions accept every request and
// return empty results. Useful when a test only exercises the chain.
type NopAdapter struct {
	// NativeVersioning is reported through SupportsNativeVersioning.
	NativeVersioning bool
}

func (a *NopAdapter) Session(ctx context.Context) (storage.Session, error) {
	return nopSession{}, nil
}

func (a *NopAdapter) Begin(ctx context.Context) (storage.Session, error) {
	return nopSession{}, nil
}

func (a *NopAdapter) SupportsNativeVersioning() bool {
	return a.NativeVersioning
}

type nopSession struct{}

func (nopSession) Execute(ctx context.Context, req storage.Request) (storage.Result, error) {
	return storage.Result{}, nil
}

func (nopSession) Commit(ctx context.Context) error   { return nil }
func (nopSession) Rollback(ctx context.Context) error { return nil }

// MemoryStore is a minimal in-memory cache store for tests. Patterns use
// path.Match globs like the production backends.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]any

	// Fail injects a backend error into every operation when set.
	Fail error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]any{}}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return nil, false, s.Fail
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	delete(s.values, key)
	return nil
}

func (s *MemoryStore) DeletePattern(ctx context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return s.Fail
	}
	for key := range s.values {
		if ok, err := path.Match(pattern, key); err == nil && ok {
			delete(s.values, key)
		}
	}
	return nil
}

// Len reports how many entries the store holds.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// Keys returns the stored keys in no particular order.
func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.values))
	for k := range s.values {
		out = append(out, k)
	}
	return out
}
