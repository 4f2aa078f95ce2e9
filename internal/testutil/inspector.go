package testutil

import (
	"sync"

	"katalog/internal/katalog"
)

// FakeInspector returns fixed storage info, keyed by path when PerPath is
// set. Safe for concurrent use.
type FakeInspector struct {
	mu      sync.Mutex
	Info    katalog.StorageInfo
	PerPath map[string]katalog.StorageInfo
	Err     error
	calls   int
}

func (f *FakeInspector) Inspect(path string) (katalog.StorageInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.Err != nil {
		return katalog.StorageInfo{}, f.Err
	}
	if info, ok := f.PerPath[path]; ok {
		return info, nil
	}
	return f.Info, nil
}

// Calls returns how many times Inspect ran.
func (f *FakeInspector) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
