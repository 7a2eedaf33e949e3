package fic

import (
	"fmt"
	"path/filepath"
)

// InitResult summarizes a baseline capture.
type InitResult struct {
	RunID   string
	Root    string
	Files   int
	Skipped []Skipped
}

// CheckResult summarizes a comparison against the baseline.
type CheckResult struct {
	RunID   string
	Root    string
	Files   int
	Skipped []Skipped
	Report  *Report
}

// Service is the orchestration layer that coordinates the scanner, the
// baseline store and the differ for the init and check operations.
type Service struct {
	store   SnapshotStore
	scanner *Scanner
	logger  Logger
	clock   Clock
	idgen   IDGenerator
}

// NewService creates a Service with the provided dependencies.
// If store keeps its baseline in a local file, that file is excluded from
// every scan so that capturing a baseline inside the watched tree does not
// make the next check report it as modified.
func NewService(store SnapshotStore, fsmgr FilesystemManager, logger Logger, clock Clock, idgen IDGenerator, opts ...ScannerOption) *Service {
	if ls, ok := store.(LocalStore); ok && ls.LocalPath() != "" {
		if abs, err := filepath.Abs(ls.LocalPath()); err == nil {
			opts = append(opts, WithExclude(abs))
		}
	}
	return &Service{
		store:   store,
		scanner: NewScanner(fsmgr, logger, opts...),
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
	}
}

// Init scans root and replaces the baseline with the result.
func (s *Service) Init(root *Path) (_ *InitResult, err error) {
	if err := validateRoot(root); err != nil {
		return nil, err
	}

	run := s.startRun(ModeInit, root)
	defer func() { s.finishRun(run, err) }()

	scan, err := s.scanner.Scan(root)
	if err != nil {
		return nil, fmt.Errorf("scanning: %w", err)
	}
	run.Files = len(scan.Snapshot)
	run.Skipped = len(scan.Skipped)

	if err := s.store.Save(scan.Snapshot); err != nil {
		return nil, fmt.Errorf("saving baseline: %w", err)
	}

	s.logger.Info("baseline saved", "root", root.String(), "files", len(scan.Snapshot))
	return &InitResult{
		RunID:   run.ID,
		Root:    root.String(),
		Files:   len(scan.Snapshot),
		Skipped: scan.Skipped,
	}, nil
}

// Check loads the baseline, scans root and classifies every path.
// The baseline is loaded before scanning so a corrupt store fails fast.
func (s *Service) Check(root *Path) (_ *CheckResult, err error) {
	if err := validateRoot(root); err != nil {
		return nil, err
	}

	run := s.startRun(ModeCheck, root)
	defer func() { s.finishRun(run, err) }()

	baseline, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading baseline: %w", err)
	}
	s.logger.Debug("baseline loaded", "files", len(baseline))

	scan, err := s.scanner.Scan(root)
	if err != nil {
		return nil, fmt.Errorf("scanning: %w", err)
	}

	report := Diff(baseline, scan.Snapshot)
	run.Files = len(scan.Snapshot)
	run.Skipped = len(scan.Skipped)
	run.Modified = len(report.Modified)
	run.Deleted = len(report.Deleted)
	run.Added = len(report.Added)

	s.logger.Info("check complete",
		"root", root.String(),
		"modified", len(report.Modified),
		"deleted", len(report.Deleted),
		"added", len(report.Added),
	)
	return &CheckResult{
		RunID:   run.ID,
		Root:    root.String(),
		Files:   len(scan.Snapshot),
		Skipped: scan.Skipped,
		Report:  report,
	}, nil
}

// History returns the most recent runs if the store keeps them.
func (s *Service) History(limit int) ([]*Run, error) {
	rec, ok := s.store.(RunRecorder)
	if !ok {
		return nil, fmt.Errorf("baseline store does not keep run history")
	}
	runs, err := rec.ListRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

func validateRoot(root *Path) error {
	if root == nil {
		return fmt.Errorf("%w: no root given", ErrInvalidRoot)
	}
	if !root.IsDir() {
		return fmt.Errorf("%w: not a directory: %s", ErrInvalidRoot, root.String())
	}
	return nil
}

// startRun records a running Run when the store keeps history.
// Recording failures are logged; history never decides the outcome of a run.
func (s *Service) startRun(mode string, root *Path) *Run {
	run := NewRun(s.idgen.New(), mode, root.String(), s.clock.Now())
	if rec, ok := s.store.(RunRecorder); ok {
		if err := rec.RecordRun(run); err != nil {
			s.logger.Error("recording run start", "run", run.ID, "error", err)
		}
	}
	return run
}

func (s *Service) finishRun(run *Run, err error) {
	run.Finish(s.clock.Now(), err)
	if rec, ok := s.store.(RunRecorder); ok {
		if recErr := rec.RecordRun(run); recErr != nil {
			s.logger.Error("recording run finish", "run", run.ID, "error", recErr)
		}
	}
}
