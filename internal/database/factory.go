package database

import (
	"fmt"

	"katalog/internal/config"
	"katalog/internal/katalog"
)

// NewCatalogFromConfig creates a Catalog based on the catalog config driver.
// File-backed catalogs are returned closed; the service opens the configured
// path lazily or on OpenProject. A "memory" catalog is opened immediately.
func NewCatalogFromConfig(cfg config.CatalogConfig, logger katalog.Logger, clock katalog.Clock) (*Catalog, error) {
	switch cfg.Driver {
	case "", DriverCgo:
		return NewCatalog(DriverCgo, logger, clock), nil
	case DriverPure:
		return NewCatalog(DriverPure, logger, clock), nil
	case "memory":
		return OpenCatalog(DriverCgo, ":memory:", logger, clock)
	default:
		return nil, fmt.Errorf("unknown catalog driver: %s", cfg.Driver)
	}
}
