package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	ficfs "fic-go/internal/fs"
	"fic-go/internal/fic"
)

// ErrInjected is returned by reads of files marked unreadable.
var ErrInjected = errors.New("injected read failure")

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	IsDirectory bool
	// FailOpen makes Open fail outright.
	FailOpen bool
	// FailAfter makes reads fail once this many bytes were returned.
	// Negative disables the failure.
	FailAfter int
	// FailList makes Walk report the directory as unreadable and skip
	// everything below it.
	FailList bool
}

// MockFilesystemManager is an in-memory filesystem for testing.
type MockFilesystemManager struct {
	files     map[string]*MockFile
	ignore    []string
	ignoreErr error
}

// NewMockFilesystemManager creates a new mock filesystem.
// ignore holds patterns applied under every root.
func NewMockFilesystemManager(ignore ...string) *MockFilesystemManager {
	return &MockFilesystemManager{
		files:  make(map[string]*MockFile),
		ignore: ignore,
	}
}

// AddFile adds a file to the mock filesystem, replacing any previous content.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.files[path] = &MockFile{
		Content:     content,
		Permissions: 0644,
		ModTime:     time.Now(),
		FailAfter:   -1,
	}
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.files[path] = &MockFile{
		Permissions: 0755,
		ModTime:     time.Now(),
		IsDirectory: true,
		FailAfter:   -1,
	}
}

// RemoveFile deletes a file from the mock filesystem.
func (m *MockFilesystemManager) RemoveFile(path string) {
	delete(m.files, path)
}

// SetUnreadable makes opening path fail.
func (m *MockFilesystemManager) SetUnreadable(path string) {
	if f, ok := m.files[path]; ok {
		f.FailOpen = true
	}
}

// SetFailAfter makes reading path fail after n bytes, simulating a file
// that disappears or hits an I/O error part way through.
func (m *MockFilesystemManager) SetFailAfter(path string, n int) {
	if f, ok := m.files[path]; ok {
		f.FailAfter = n
	}
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*fic.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, err
	}

	file, ok := m.files[absPath]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", absPath)
	}

	return fic.NewPath(absPath, file.IsDirectory, newMockFileInfo(absPath, file)), nil
}

func (m *MockFilesystemManager) Open(path *fic.Path) (io.ReadCloser, error) {
	file, ok := m.files[path.String()]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path.String())
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", path.String())
	}
	if file.FailOpen {
		return nil, fmt.Errorf("open %s: %w", path.String(), fs.ErrPermission)
	}
	if file.FailAfter >= 0 {
		return io.NopCloser(&failingReader{data: file.Content, limit: file.FailAfter}), nil
	}
	return io.NopCloser(bytes.NewReader(file.Content)), nil
}

// SetUnlistable makes Walk report the directory at path as unreadable.
func (m *MockFilesystemManager) SetUnlistable(path string) {
	if f, ok := m.files[path]; ok && f.IsDirectory {
		f.FailList = true
	}
}

// Walk visits the regular files stored below root in lexical order.
// Unlistable directories are reported with fs.ErrPermission and their
// contents are not visited.
func (m *MockFilesystemManager) Walk(root *fic.Path, fn fic.WalkFunc) error {
	if !root.IsDir() {
		return fmt.Errorf("path is not a directory: %s", root.String())
	}
	if f, ok := m.files[root.String()]; ok && f.FailList {
		return fmt.Errorf("open %s: %w", root.String(), fs.ErrPermission)
	}

	prefix := strings.TrimSuffix(root.String(), "/") + "/"
	var paths, blocked []string
	for p, f := range m.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		if f.IsDirectory && !f.FailList {
			continue
		}
		if f.FailList {
			blocked = append(blocked, p+"/")
		}
		paths = append(paths, p)
	}
	slices.Sort(paths)

	for _, p := range paths {
		if slices.ContainsFunc(blocked, func(b string) bool { return strings.HasPrefix(p, b) }) {
			continue
		}
		f := m.files[p]
		if f.FailList {
			fn(fic.NewPath(p, true, nil), fmt.Errorf("open %s: %w", p, fs.ErrPermission))
			continue
		}
		fn(fic.NewPath(p, false, newMockFileInfo(p, f)), nil)
	}
	return nil
}

// SetIgnoreFileUnreadable makes IsIgnored report the ignore file at path as
// unreadable. The patterns given to NewMockFilesystemManager still apply.
func (m *MockFilesystemManager) SetIgnoreFileUnreadable(path string) {
	m.ignoreErr = &fic.IgnoreFileError{Path: path, Err: fs.ErrPermission}
}

// IsIgnored applies the patterns given to NewMockFilesystemManager.
func (m *MockFilesystemManager) IsIgnored(path *fic.Path, root *fic.Path) (bool, error) {
	rel, err := filepath.Rel(root.String(), path.String())
	if err != nil {
		return false, err
	}
	return ficfs.NewIgnoreMatcher(m.ignore).Match(rel), m.ignoreErr
}

// failingReader returns data until limit bytes were read, then ErrInjected.
type failingReader struct {
	data  []byte
	off   int
	limit int
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.off >= r.limit {
		return 0, ErrInjected
	}
	end := min(len(r.data), r.limit, r.off+len(p))
	if end <= r.off {
		return 0, ErrInjected
	}
	n := copy(p, r.data[r.off:end])
	r.off += n
	return n, nil
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name     string
	size     int64
	mode     fs.FileMode
	modTime  time.Time
	isDir    bool
	mockFile *MockFile
}

func newMockFileInfo(path string, f *MockFile) *mockFileInfo {
	return &mockFileInfo{
		name:     filepath.Base(path),
		size:     int64(len(f.Content)),
		mode:     f.Permissions,
		modTime:  f.ModTime,
		isDir:    f.IsDirectory,
		mockFile: f,
	}
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return m.mockFile }

// Compile-time check
var _ fic.FilesystemManager = (*MockFilesystemManager)(nil)
