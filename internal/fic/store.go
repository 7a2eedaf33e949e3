package fic

// SnapshotStore persists the single current baseline.
type SnapshotStore interface {
	// Load returns the saved baseline. If none has been saved yet it
	// returns an empty Snapshot and no error. A baseline that cannot be
	// parsed yields an error wrapping ErrCorrupt.
	Load() (Snapshot, error)

	// Save replaces the baseline with s. Prior content is fully
	// overwritten, never appended to. Failures wrap ErrWriteFailed.
	Save(s Snapshot) error
}

// LocalStore is implemented by stores whose baseline lives in a file on the
// local filesystem. The scanner excludes that file when it falls inside the
// scanned tree.
type LocalStore interface {
	LocalPath() string
}

// RunRecorder is implemented by stores that keep a history of runs.
type RunRecorder interface {
	// RecordRun inserts or updates run (keyed by run.ID).
	RecordRun(run *Run) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*Run, error)
}
