package testutil

import (
	"fmt"
	"sync"
	"time"
)

// CatalogEpoch is the instant FixedClock starts at. The catalog stores
// timestamps in whole seconds, so it has no sub-second part.
var CatalogEpoch = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// StubClock stamps volumes, runs and snapshots with a time the test
// controls. Safe for concurrent use by the scan worker and the test.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock at CatalogEpoch.
func FixedClock() *StubClock {
	return NewStubClock(CatalogEpoch)
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward, e.g. between two snapshot pushes.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StubIDGenerator stands in for UUIDs in run ids, request ids and snapshot
// names. It yields "id-1", "id-2" and so on.
type StubIDGenerator struct {
	mu   sync.Mutex
	last int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last++
	return fmt.Sprintf("id-%d", g.last)
}
