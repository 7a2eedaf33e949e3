package fic

import "errors"

// Sentinel errors shared across the scanner, stores and service.
// Callers wrap them with context and test with errors.Is.
var (
	// ErrUnreadable means a file could not be opened or read to the end.
	// The scanner recovers from it by skipping the file.
	ErrUnreadable = errors.New("unreadable")

	// ErrNotFound means no baseline has been saved yet. Stores translate it
	// into an empty Snapshot; it only escapes from low-level backends.
	ErrNotFound = errors.New("baseline not found")

	// ErrCorrupt means a stored baseline could not be parsed into a Snapshot.
	ErrCorrupt = errors.New("baseline corrupt")

	// ErrWriteFailed means a baseline could not be persisted.
	ErrWriteFailed = errors.New("baseline write failed")

	// ErrInvalidPathName means a file name cannot be stored in a baseline
	// because it is not valid UTF-8. The scanner skips such files.
	ErrInvalidPathName = errors.New("path is not valid UTF-8")

	// ErrInvalidRoot means the scan target is missing or not a directory.
	ErrInvalidRoot = errors.New("invalid scan root")
)
