package fs

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"
)

// ExcludeFileName is read from a scan root for additional exclude patterns.
const ExcludeFileName = ".katalogignore"

// defaultExcludePatterns are always applied regardless of config or .katalogignore.
var defaultExcludePatterns = []string{ExcludeFileName}

// ExcludeMatcher checks entries against glob-style exclude patterns. Every
// pattern is tested against both the entry's name and its path relative to
// the scan root, so "*.log" excludes log files at any depth and
// "build/output" excludes exactly that subtree.
type ExcludeMatcher struct {
	patterns []string
}

// NewExcludeMatcher creates an ExcludeMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped, as are patterns that
// path.Match rejects.
func NewExcludeMatcher(rawPatterns []string) *ExcludeMatcher {
	var patterns []string
	for _, raw := range append(append([]string(nil), defaultExcludePatterns...), rawPatterns...) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		raw = strings.Trim(raw, "/")
		if _, err := path.Match(raw, ""); err != nil {
			continue
		}
		patterns = append(patterns, raw)
	}
	return &ExcludeMatcher{patterns: patterns}
}

// Match reports whether the entry should be excluded. relPath is the
// slash-separated path relative to the scan root, without a leading slash.
func (m *ExcludeMatcher) Match(name, relPath string) bool {
	relPath = strings.TrimPrefix(relPath, "/")
	for _, p := range m.patterns {
		if ok, _ := path.Match(p, name); ok {
			return true
		}
		if ok, _ := path.Match(p, relPath); ok {
			return true
		}
	}
	return false
}

// Patterns returns the active patterns.
func (m *ExcludeMatcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}

// ParseExcludeFile reads a .katalogignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseExcludeFile(filePath string) ([]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening exclude file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading exclude file: %w", err)
	}
	return patterns, nil
}
