package testutil

import (
	"testing"

	"fic-go/internal/fic"
	"fic-go/internal/store"
)

// NewTestStore creates a new in-memory baseline store for testing.
func NewTestStore() *store.MemoryStore {
	return store.NewMemoryStore()
}

// NewTestSQLiteStore creates an in-memory SQLite store with migrations applied.
// The store is automatically closed when the test completes.
func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// Compile-time checks
var (
	_ fic.SnapshotStore = (*store.MemoryStore)(nil)
	_ fic.RunRecorder   = (*store.SQLiteStore)(nil)
)
