package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fic-go/internal/fic"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
// It performs actual filesystem operations using the os package.
type OSFilesystemManager struct {
	ignore []string

	mu       sync.Mutex
	matchers map[string]*rootMatcher // root path -> matcher
}

// NewOSFilesystemManager creates a new filesystem manager that operates on the real filesystem.
// ignore holds global patterns applied under every root in addition to the
// root's own ignore file.
func NewOSFilesystemManager(ignore []string) *OSFilesystemManager {
	return &OSFilesystemManager{
		ignore:   ignore,
		matchers: make(map[string]*rootMatcher),
	}
}

// Resolve validates a raw path and returns a Path object.
func (m *OSFilesystemManager) Resolve(rawPath string) (*fic.Path, error) {
	// Convert to absolute path
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	// Stat the path
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	// Check for special file types we don't support
	mode := info.Mode()
	if mode&os.ModeDevice != 0 {
		return nil, fmt.Errorf("device files not supported: %s", absPath)
	}
	if mode&os.ModeNamedPipe != 0 {
		return nil, fmt.Errorf("named pipes not supported: %s", absPath)
	}
	if mode&os.ModeSocket != 0 {
		return nil, fmt.Errorf("sockets not supported: %s", absPath)
	}

	return fic.NewPath(absPath, info.IsDir(), info), nil
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path *fic.Path) (io.ReadCloser, error) {
	if path.IsDir() {
		return nil, fmt.Errorf("cannot open directory as file: %s", path.String())
	}
	return os.Open(path.String())
}

// Walk visits regular files below root. Symlinks are never followed, so the
// walk terminates on any tree. Unreadable entries are reported to fn and
// skipped; only a failure on root itself is returned.
func (m *OSFilesystemManager) Walk(root *fic.Path, fn fic.WalkFunc) error {
	if !root.IsDir() {
		return fmt.Errorf("path is not a directory: %s", root.String())
	}

	// A trailing separator makes a symlinked root resolve to its target
	// while everything below it is still walked without following links.
	walkRoot := root.String()
	if !strings.HasSuffix(walkRoot, string(filepath.Separator)) {
		walkRoot += string(filepath.Separator)
	}

	err := filepath.WalkDir(walkRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == walkRoot {
				return err
			}
			fn(fic.NewPath(p, d != nil && d.IsDir(), nil), err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			fn(fic.NewPath(p, false, nil), fmt.Errorf("stat %s: %w", p, err))
			return nil
		}
		fn(fic.NewPath(p, false, info), nil)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking directory: %w", err)
	}
	return nil
}

// rootMatcher is the cached ignore state of one scan root. loadErr is set
// when the root's ignore file could not be read; matcher then holds only the
// default and global patterns.
type rootMatcher struct {
	matcher *IgnoreMatcher
	loadErr error
}

// IsIgnored reports whether path matches the global patterns or the
// patterns in root's ignore file. The ignore file is read once per root.
// An unreadable ignore file yields a *fic.IgnoreFileError on every call
// alongside the verdict of the remaining patterns.
func (m *OSFilesystemManager) IsIgnored(path *fic.Path, root *fic.Path) (bool, error) {
	rm := m.matcherFor(root)

	rel, err := filepath.Rel(root.String(), path.String())
	if err != nil {
		return false, fmt.Errorf("calculating relative path: %w", err)
	}
	return rm.matcher.Match(rel), rm.loadErr
}

func (m *OSFilesystemManager) matcherFor(root *fic.Path) *rootMatcher {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rm, ok := m.matchers[root.String()]; ok {
		return rm
	}

	patterns := make([]string, 0, len(defaultIgnorePatterns)+len(m.ignore))
	patterns = append(patterns, defaultIgnorePatterns...)
	patterns = append(patterns, m.ignore...)

	rm := &rootMatcher{}
	ignoreFile := filepath.Join(root.String(), IgnoreFileName)
	filePatterns, err := ParseIgnoreFile(ignoreFile)
	if err != nil {
		rm.loadErr = &fic.IgnoreFileError{Path: ignoreFile, Err: err}
	}
	rm.matcher = NewIgnoreMatcher(append(patterns, filePatterns...))
	m.matchers[root.String()] = rm
	return rm
}

// Compile-time check that OSFilesystemManager implements fic.FilesystemManager interface
var _ fic.FilesystemManager = (*OSFilesystemManager)(nil)
