package fic

import (
	"maps"
	"slices"
)

// Snapshot maps root-relative, slash separated path identifiers to the
// fingerprint of the file's content at the time of the scan.
type Snapshot map[string]Fingerprint

// NewSnapshot returns an empty Snapshot.
func NewSnapshot() Snapshot {
	return make(Snapshot)
}

// Paths returns the path identifiers in lexical order.
func (s Snapshot) Paths() []string {
	return slices.Sorted(maps.Keys(s))
}

// Equal reports whether s and other hold the same entries.
// A nil Snapshot equals an empty one.
func (s Snapshot) Equal(other Snapshot) bool {
	return maps.Equal(s, other)
}

// Clone returns a copy of s that shares no state with it.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	maps.Copy(out, s)
	return out
}
