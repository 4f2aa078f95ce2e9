package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// MakeTree creates files under a fresh temporary directory and returns its
// path. Keys are slash-separated relative paths; a key ending in "/" creates
// an empty directory, anything else a file holding the value.
func MakeTree(t *testing.T, entries map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for rel, content := range entries {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if strings.HasSuffix(rel, "/") {
			if err := os.MkdirAll(p, 0o755); err != nil {
				t.Fatalf("creating directory %s: %v", rel, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("creating directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", rel, err)
		}
	}
	return root
}
