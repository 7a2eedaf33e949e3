package fs

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-root ignore file.
const IgnoreFileName = ".ficignore"

// defaultIgnorePatterns are always applied regardless of config or .ficignore.
var defaultIgnorePatterns = []string{IgnoreFileName}

// ignorePattern is a parsed ignore pattern with its matching strategy.
type ignorePattern struct {
	pattern   string
	matchPath bool // true = match against relative path; false = match against a single name
}

// IgnoreMatcher checks file paths against a set of ignore patterns.
// Patterns without '/' match any single path component, so "*.log" matches
// "a/b.log" and ".git" matches everything under a ".git" directory.
// Patterns with '/' match the relative path from the scan root or any of its
// parent directories; a trailing '/' is dropped.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		raw = strings.TrimSuffix(raw, "/")
		raw = strings.TrimPrefix(raw, "/")
		if raw == "" {
			continue
		}
		patterns = append(patterns, ignorePattern{
			pattern:   raw,
			matchPath: strings.Contains(raw, "/"),
		})
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Match reports whether the given relative path should be ignored.
// relativePath should use filepath separators and be relative to the scan root.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	if len(m.patterns) == 0 || relativePath == "" {
		return false
	}

	normalized := filepath.ToSlash(relativePath)
	components := strings.Split(normalized, "/")

	for _, p := range m.patterns {
		if p.matchPath {
			if matchPrefix(p.pattern, components) {
				return true
			}
			continue
		}
		for _, c := range components {
			if ok, err := path.Match(p.pattern, c); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// matchPrefix tries pattern against every leading run of components.
// Malformed patterns never match.
func matchPrefix(pattern string, components []string) bool {
	for i := 1; i <= len(components); i++ {
		candidate := strings.Join(components[:i], "/")
		ok, err := path.Match(pattern, candidate)
		if err != nil {
			return false
		}
		if ok {
			return true
		}
	}
	return false
}

// ParseIgnoreFile reads a .ficignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
