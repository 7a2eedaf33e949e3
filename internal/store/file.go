package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"fic-go/internal/fic"
)

// FileStore keeps the baseline as a JSON document in a single local file.
type FileStore struct {
	path  string
	codec blobCodec
}

var (
	_ fic.SnapshotStore = (*FileStore)(nil)
	_ fic.LocalStore    = (*FileStore)(nil)
)

// NewFileStore creates a store backed by the file at path. The file does not
// need to exist; Load treats a missing file as an empty baseline.
func NewFileStore(path string, opts ...Option) *FileStore {
	return &FileStore{path: path, codec: newBlobCodec(opts)}
}

// LocalPath returns the absolute location of the baseline file.
func (s *FileStore) LocalPath() string {
	abs, err := filepath.Abs(s.path)
	if err != nil {
		return s.path
	}
	return abs
}

// Load reads and parses the baseline file.
func (s *FileStore) Load() (fic.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return fic.NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading baseline %s: %w", s.path, err)
	}

	snap, err := s.codec.unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("loading baseline %s: %w", s.path, err)
	}
	return snap, nil
}

// Save replaces the baseline file with snap. The new content is written to a
// temporary file in the same directory, synced and renamed over the old
// file, so a crash mid-write leaves either the old or the new baseline.
func (s *FileStore) Save(snap fic.Snapshot) error {
	data, err := s.codec.marshal(snap)
	if err != nil {
		return fmt.Errorf("%w: %w", fic.ErrWriteFailed, err)
	}
	if err := writeFileAtomic(s.path, data, 0644); err != nil {
		return fmt.Errorf("%w: %s: %w", fic.ErrWriteFailed, s.path, err)
	}
	return nil
}

// writeFileAtomic writes data to destPath using temp file + fsync + rename.
func writeFileAtomic(destPath string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(destPath)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
