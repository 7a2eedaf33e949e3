package store

import (
	"fmt"
	"slices"
	"sync"

	"fic-go/internal/fic"
)

// MemoryStore is an in-memory baseline store with run history, for tests
// and dry runs. Saved snapshots are copied so callers cannot mutate them.
type MemoryStore struct {
	mu       sync.Mutex
	snapshot fic.Snapshot
	saves    int
	runs     []*fic.Run

	// SaveErr, if set, is returned (wrapped in fic.ErrWriteFailed) by Save.
	SaveErr error
	// LoadErr, if set, is returned by Load.
	LoadErr error
}

var (
	_ fic.SnapshotStore = (*MemoryStore)(nil)
	_ fic.RunRecorder   = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (fic.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.snapshot.Clone(), nil
}

func (m *MemoryStore) Save(s fic.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return fmt.Errorf("%w: %w", fic.ErrWriteFailed, m.SaveErr)
	}
	m.snapshot = s.Clone()
	m.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryStore) RecordRun(run *fic.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	for i, r := range m.runs {
		if r.ID == run.ID {
			m.runs[i] = &cp
			return nil
		}
	}
	m.runs = append(m.runs, &cp)
	return nil
}

func (m *MemoryStore) ListRuns(limit int) ([]*fic.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*fic.Run, 0, len(m.runs))
	for _, r := range slices.Backward(m.runs) {
		if limit > 0 && len(out) == limit {
			break
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}
