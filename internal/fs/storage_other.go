//go:build !linux

package fs

import (
	"fmt"
	"os"

	"katalog/internal/katalog"
)

// Inspector has no storage introspection on this platform beyond checking
// that the path exists.
type Inspector struct{}

var _ katalog.StorageInspector = (*Inspector)(nil)

func NewInspector() *Inspector {
	return &Inspector{}
}

func (i *Inspector) Inspect(path string) (katalog.StorageInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return katalog.StorageInfo{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return katalog.StorageInfo{}, nil
}
