package fic

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"
)

// Skipped names a file or directory left out of a snapshot and why.
type Skipped struct {
	Path string
	Err  error
}

// ScanResult is the outcome of one traversal.
type ScanResult struct {
	Root     string
	Snapshot Snapshot
	Skipped  []Skipped
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithWorkers hashes up to n files concurrently. Values below 1 mean 1.
func WithWorkers(n int) ScannerOption {
	return func(s *Scanner) {
		if n < 1 {
			n = 1
		}
		s.workers = n
	}
}

// WithExclude leaves the given absolute file paths out of every scan.
func WithExclude(absPaths ...string) ScannerOption {
	return func(s *Scanner) {
		for _, p := range absPaths {
			if p == "" {
				continue
			}
			s.exclude[filepath.Clean(p)] = true
		}
	}
}

// Scanner walks a directory tree and fingerprints every regular file in it.
type Scanner struct {
	fsmgr   FilesystemManager
	logger  Logger
	workers int
	exclude map[string]bool
}

// NewScanner creates a Scanner reading through fsmgr.
func NewScanner(fsmgr FilesystemManager, logger Logger, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		fsmgr:   fsmgr,
		logger:  logger,
		workers: 1,
		exclude: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// fileResult is the per-file outcome of hashing.
type fileResult struct {
	id   string
	path *Path
	fp   Fingerprint
	err  error
}

// Scan fingerprints every regular file below root.
// Files or directories that cannot be read are recorded in Skipped and do
// not abort the scan. Only a bad root is fatal.
func (s *Scanner) Scan(root *Path) (*ScanResult, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: no root given", ErrInvalidRoot)
	}
	if !root.IsDir() {
		return nil, fmt.Errorf("%w: not a directory: %s", ErrInvalidRoot, root.String())
	}

	s.logger.Debug("scan started", "root", root.String())

	result := &ScanResult{
		Root:     root.String(),
		Snapshot: NewSnapshot(),
	}

	var pending []*fileResult
	var walkErr error
	ignoreFileReported := false
	err := s.fsmgr.Walk(root, func(p *Path, err error) {
		if walkErr != nil {
			return
		}
		id, relErr := relativeID(root, p)
		if relErr != nil {
			walkErr = relErr
			return
		}
		if s.exclude[filepath.Clean(p.String())] {
			s.logger.Debug("file excluded", "path", id)
			return
		}

		ignored, ignErr := s.fsmgr.IsIgnored(p, root)
		var ife *IgnoreFileError
		switch {
		case errors.As(ignErr, &ife):
			// The remaining patterns still apply; report the file once.
			if !ignoreFileReported {
				ignoreFileReported = true
				s.skip(result, s.ignoreFileID(root, ife), ife)
			}
		case ignErr != nil:
			s.skip(result, id, fmt.Errorf("checking ignore rules: %w", ignErr))
			return
		}
		if ignored {
			s.logger.Debug("file ignored", "path", id)
			return
		}

		if err != nil {
			s.skip(result, id, err)
			return
		}
		if !utf8.ValidString(id) {
			s.skip(result, id, fmt.Errorf("%w: %q", ErrInvalidPathName, id))
			return
		}
		pending = append(pending, &fileResult{id: id, path: p})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoot, err)
	}
	if walkErr != nil {
		return nil, walkErr
	}

	s.hashAll(pending)

	for _, r := range pending {
		if r.err != nil {
			s.skip(result, r.id, r.err)
			continue
		}
		result.Snapshot[r.id] = r.fp
	}

	slices.SortFunc(result.Skipped, func(a, b Skipped) int {
		return strings.Compare(a.Path, b.Path)
	})

	s.logger.Info("scan complete", "root", root.String(), "files", len(result.Snapshot), "skipped", len(result.Skipped))
	return result, nil
}

// hashAll fills in fp or err on every result. Each worker writes only to the
// results it pulled from the queue.
func (s *Scanner) hashAll(results []*fileResult) {
	if s.workers <= 1 || len(results) < 2 {
		for _, r := range results {
			r.fp, r.err = s.hashFile(r.path)
		}
		return
	}

	queue := make(chan *fileResult)
	var wg sync.WaitGroup
	for range min(s.workers, len(results)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range queue {
				r.fp, r.err = s.hashFile(r.path)
			}
		}()
	}
	for _, r := range results {
		queue <- r
	}
	close(queue)
	wg.Wait()
}

// hashFile opens and digests a single file.
func (s *Scanner) hashFile(p *Path) (Fingerprint, error) {
	f, err := s.fsmgr.Open(p)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("%w: opening: %w", ErrUnreadable, err)
	}
	defer f.Close()

	fp, err := Digest(f)
	if err != nil {
		return Fingerprint{}, err
	}
	return fp, nil
}

// ignoreFileID names an unreadable ignore file relative to root when it
// lies inside it.
func (s *Scanner) ignoreFileID(root *Path, ife *IgnoreFileError) string {
	rel, err := filepath.Rel(root.String(), ife.Path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ife.Path
	}
	return filepath.ToSlash(rel)
}

func (s *Scanner) skip(result *ScanResult, id string, err error) {
	s.logger.Warn("skipping unreadable entry", "path", id, "error", err)
	result.Skipped = append(result.Skipped, Skipped{Path: id, Err: err})
}

// relativeID derives the path identifier for p: relative to root and slash
// separated, so the same file yields the same identifier regardless of how
// root was spelled on the command line.
func relativeID(root, p *Path) (string, error) {
	rel, err := filepath.Rel(root.String(), p.String())
	if err != nil {
		return "", fmt.Errorf("calculating relative path: %w", err)
	}
	return filepath.ToSlash(rel), nil
}
