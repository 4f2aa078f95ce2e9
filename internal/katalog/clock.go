package katalog

import (
	"time"

	"github.com/google/uuid"
)

// Clock stamps volume created/updated times, run durations and snapshot
// names.
type Clock interface {
	Now() time.Time
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator produces opaque unique identifiers (run ids, request ids,
// snapshot names).
type IDGenerator interface {
	New() string
}

// UUIDGenerator issues random (version 4) UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
