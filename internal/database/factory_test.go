package database

import (
	"path/filepath"
	"testing"

	"katalog/internal/config"
)

func TestNewCatalogFromConfig(t *testing.T) {
	t.Run("memory catalog is open", func(t *testing.T) {
		got, err := NewCatalogFromConfig(config.CatalogConfig{Driver: "memory"}, nil, nil)
		if err != nil {
			t.Fatalf("NewCatalogFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if !got.IsOpen() {
			t.Error("memory catalog should be open")
		}
	})

	for _, driver := range []string{"", DriverCgo, DriverPure} {
		t.Run("file catalog "+driver, func(t *testing.T) {
			got, err := NewCatalogFromConfig(config.CatalogConfig{Driver: driver}, nil, nil)
			if err != nil {
				t.Fatalf("NewCatalogFromConfig() unexpected error: %v", err)
			}
			defer got.Close()

			if got.IsOpen() {
				t.Error("file catalog should start closed")
			}
			path := filepath.Join(t.TempDir(), "c.katalog")
			if err := got.Open(path); err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if got.Path() != path {
				t.Errorf("Path() = %q, want %q", got.Path(), path)
			}
		})
	}

	t.Run("unknown driver", func(t *testing.T) {
		got, err := NewCatalogFromConfig(config.CatalogConfig{Driver: "postgres"}, nil, nil)
		if err == nil {
			t.Error("NewCatalogFromConfig() expected error for unknown driver, got nil")
		}
		if got != nil {
			t.Error("NewCatalogFromConfig() should return nil on error")
		}
	})
}
