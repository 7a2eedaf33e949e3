package fic

import (
	"fmt"
	"io"
)

// WalkFunc receives each regular file found under a walk root.
// When err is non-nil, p names an entry that could not be read (a file or a
// subdirectory) and the walk has already moved past it.
type WalkFunc func(p *Path, err error)

// FilesystemManager provides an interface for filesystem operations.
// It abstracts file access to enable testing without touching the real filesystem.
type FilesystemManager interface {
	// Resolve validates a raw path and returns a Path object.
	// It resolves the path to an absolute path, stats it, and validates
	// it's a regular file or directory (not a symlink, device, etc.).
	Resolve(rawPath string) (*Path, error)

	// Open opens a file for reading.
	Open(path *Path) (io.ReadCloser, error)

	// Walk visits every regular file below root at any depth, in lexical
	// order. Symbolic links are reported neither as files nor followed.
	// An error is returned only if root itself cannot be read.
	Walk(root *Path, fn WalkFunc) error

	// IsIgnored reports whether path should be left out of a scan of root.
	// When root's ignore file cannot be read it returns an *IgnoreFileError
	// together with the answer of the remaining patterns.
	IsIgnored(path *Path, root *Path) (bool, error)
}

// IgnoreFileError reports an ignore file whose patterns could not be loaded.
type IgnoreFileError struct {
	Path string
	Err  error
}

func (e *IgnoreFileError) Error() string {
	return fmt.Sprintf("reading ignore file %s: %v", e.Path, e.Err)
}

func (e *IgnoreFileError) Unwrap() error { return e.Err }
