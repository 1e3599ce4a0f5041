package testsupport

import (
	"sync"
	"time"
)

// FrozenClock is a manually advanced clock for deterministic tests of
// audit stamps and temporal criteria.
type FrozenClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFrozenClock pins the clock at the given instant.
func NewFrozenClock(now time.Time) *FrozenClock {
	return &FrozenClock{now: now}
}

// Now returns the pinned instant. Pass the method value wherever a clock
// function is expected.
func (c *FrozenClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *FrozenClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SetTo pins the clock to a new instant.
func (c *FrozenClock) SetTo(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
