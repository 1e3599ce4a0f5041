package di

import (
	"testing"
	"time"

	"github.com/goliatone/go-persistence/cache"
	"github.com/goliatone/go-persistence/pkg/testsupport"
)

func TestNewContainer(t *testing.T) {
	adapter := &testsupport.NopAdapter{}
	container, err := NewContainer(adapter)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}

	if container.Adapter() != adapter {
		t.Error("Container should hold the adapter it was built around")
	}
	if container.Store() == nil {
		t.Error("Container should have a non-nil cache store")
	}
	if container.KeySerializer() == nil {
		t.Error("Container should have a non-nil key serializer")
	}
	if container.Registry() == nil {
		t.Error("Container should have a non-nil entity registry")
	}
	if container.Chain() == nil {
		t.Error("Container should have a non-nil interceptor chain")
	}
}

func TestNewContainerRequiresAdapter(t *testing.T) {
	if _, err := NewContainer(nil); err == nil {
		t.Fatal("NewContainer(nil) should fail")
	}
}

func TestNewContainerRejectsBadCacheConfig(t *testing.T) {
	cfg := cache.DefaultConfig()
	cfg.Capacity = -1

	if _, err := NewContainer(&testsupport.NopAdapter{}, WithCacheConfig(cfg)); err == nil {
		t.Fatal("invalid cache config should fail container construction")
	}
}

func TestWithStoreUsesProvidedBackend(t *testing.T) {
	store := testsupport.NewMemoryStore()
	container, err := NewContainer(&testsupport.NopAdapter{}, WithStore(store))
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	if container.Store() != cache.Store(store) {
		t.Error("Container should use the store passed via WithStore")
	}
}

func TestWithoutCacheDropsStore(t *testing.T) {
	container, err := NewContainer(&testsupport.NopAdapter{}, WithoutCache())
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	if container.Store() != nil {
		t.Error("WithoutCache should leave the container without a store")
	}
	if container.Chain() == nil {
		t.Error("chain should still be built without the cache interceptor")
	}
}

type widget struct {
	ID   int64  `bun:"id,pk"`
	Name string `bun:"name"`
}

func TestNewRepositoryDerivesEntityType(t *testing.T) {
	container, err := NewContainer(&testsupport.NopAdapter{})
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}

	repo, err := NewRepository[widget](container)
	if err != nil {
		t.Fatalf("NewRepository() failed: %v", err)
	}
	if got := repo.EntityType(); got != "widget" {
		t.Errorf("EntityType() = %q, want %q", got, "widget")
	}
}

func TestFrozenClockAdvance(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := testsupport.NewFrozenClock(start)

	if !clock.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", clock.Now(), start)
	}
	clock.Advance(time.Hour)
	if !clock.Now().Equal(start.Add(time.Hour)) {
		t.Errorf("Now() after Advance = %v, want %v", clock.Now(), start.Add(time.Hour))
	}
}
