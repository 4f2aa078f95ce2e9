package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("sha256 hex", func(t *testing.T) {
		got, err := HashFile(context.Background(), path)
		if err != nil {
			t.Fatalf("HashFile() error = %v", err)
		}
		want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
		if got != want {
			t.Errorf("HashFile() = %s, want %s", got, want)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := HashFile(context.Background(), filepath.Join(dir, "nope")); err == nil {
			t.Error("HashFile() expected error for missing file")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := HashFile(ctx, path)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("HashFile() error = %v, want context.Canceled", err)
		}
	})
}
