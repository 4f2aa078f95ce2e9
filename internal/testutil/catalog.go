package testutil

import (
	"testing"

	"katalog/internal/database"
	"katalog/internal/katalog"
)

// NewTestCatalog creates a new in-memory catalog with the schema applied.
// The catalog is automatically closed when the test completes.
func NewTestCatalog(t *testing.T, clock katalog.Clock) *database.Catalog {
	t.Helper()

	c, err := database.OpenCatalog(database.DriverCgo, ":memory:", nil, clock)
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}

	t.Cleanup(func() {
		c.Close()
	})

	return c
}
