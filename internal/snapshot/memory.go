package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"katalog/internal/katalog"
)

// MemorySink keeps snapshots in memory. Safe for concurrent use.
type MemorySink struct {
	clock katalog.Clock

	mu    sync.RWMutex
	blobs map[string]memoryBlob
}

type memoryBlob struct {
	data []byte
	info Info
}

var _ Sink = (*MemorySink)(nil)

func NewMemorySink(clock katalog.Clock) *MemorySink {
	if clock == nil {
		clock = katalog.RealClock{}
	}
	return &MemorySink{clock: clock, blobs: make(map[string]memoryBlob)}
}

func (m *MemorySink) Put(_ context.Context, name string, r io.Reader, size int64) error {
	if err := validName(name); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[name] = memoryBlob{
		data: data,
		info: Info{Name: name, Size: size, ModTime: m.clock.Now().UTC()},
	}
	return nil
}

func (m *MemorySink) Get(_ context.Context, name string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.blobs[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if _, err := io.Copy(w, bytes.NewReader(b.data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func (m *MemorySink) List(_ context.Context) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Info, 0, len(m.blobs))
	for _, b := range m.blobs {
		out = append(out, b.info)
	}
	sortNewestFirst(out)
	return out, nil
}
