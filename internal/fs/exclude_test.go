package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewExcludeMatcher(t *testing.T) {
	t.Run("skips blank lines, comments and bad patterns", func(t *testing.T) {
		t.Parallel()
		m := NewExcludeMatcher([]string{"", "  ", "# comment", "*.log", "[unclosed"})
		got := m.Patterns()
		if len(got) != 2 {
			t.Fatalf("expected 2 patterns, got %v", got)
		}
		if got[0] != ExcludeFileName || got[1] != "*.log" {
			t.Errorf("patterns = %v, want [%s *.log]", got, ExcludeFileName)
		}
	})

	t.Run("trims surrounding slashes", func(t *testing.T) {
		t.Parallel()
		m := NewExcludeMatcher([]string{"/build/output/"})
		if got := m.Patterns()[1]; got != "build/output" {
			t.Errorf("pattern = %q, want build/output", got)
		}
	})
}

func TestExcludeMatcher_Match(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		entry    string
		relPath  string
		want     bool
	}{
		{"name glob matches file in root", []string{"*.log"}, "app.log", "app.log", true},
		{"name glob matches file in subdirectory", []string{"*.log"}, "app.log", "sub/app.log", true},
		{"name glob does not match different extension", []string{"*.log"}, "app.txt", "app.txt", false},
		{"exact name matches directory", []string{"node_modules"}, "node_modules", "web/node_modules", true},
		{"path pattern matches relative path", []string{"build/output"}, "output", "build/output", true},
		{"path pattern does not match elsewhere", []string{"build/output"}, "output", "other/output", false},
		{"leading slash in relative path", []string{"docs/*.md"}, "a.md", "/docs/a.md", true},
		{"exclude file itself is always skipped", nil, ExcludeFileName, ExcludeFileName, true},
		{"no patterns", nil, "a.txt", "a.txt", false},
		{"character class", []string{"*.[oa]"}, "lib.a", "lib/lib.a", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewExcludeMatcher(tt.patterns)
			if got := m.Match(tt.entry, tt.relPath); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.entry, tt.relPath, got, tt.want)
			}
		})
	}
}

func TestParseExcludeFile(t *testing.T) {
	t.Run("reads patterns", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ExcludeFileName)
		if err := os.WriteFile(path, []byte("*.tmp\n# note\ncache\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		got, err := ParseExcludeFile(path)
		if err != nil {
			t.Fatalf("ParseExcludeFile() error = %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 lines, got %d", len(got))
		}
		if !NewExcludeMatcher(got).Match("x.tmp", "a/x.tmp") {
			t.Error("parsed patterns should exclude x.tmp")
		}
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		got, err := ParseExcludeFile(filepath.Join(t.TempDir(), "nope"))
		if err != nil || got != nil {
			t.Errorf("ParseExcludeFile() = %v, %v; want nil, nil", got, err)
		}
	})
}
