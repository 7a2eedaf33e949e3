package fic

import "slices"

// Report classifies every path of two snapshots.
// Modified, Deleted and Added are pairwise disjoint and sorted.
// Paths present in both snapshots with equal fingerprints are only counted.
type Report struct {
	Modified  []string
	Deleted   []string
	Added     []string
	Unchanged int
}

// HasChanges reports whether any path was modified, deleted or added.
func (r *Report) HasChanges() bool {
	return len(r.Modified) > 0 || len(r.Deleted) > 0 || len(r.Added) > 0
}

// Total returns the number of distinct paths across both snapshots.
func (r *Report) Total() int {
	return len(r.Modified) + len(r.Deleted) + len(r.Added) + r.Unchanged
}

// Diff compares a baseline with a later snapshot. It does not modify
// either argument and returns the same Report for the same inputs.
func Diff(old, new Snapshot) *Report {
	r := &Report{
		Modified: []string{},
		Deleted:  []string{},
		Added:    []string{},
	}

	for path, oldFP := range old {
		newFP, ok := new[path]
		switch {
		case !ok:
			r.Deleted = append(r.Deleted, path)
		case oldFP != newFP:
			r.Modified = append(r.Modified, path)
		default:
			r.Unchanged++
		}
	}

	for path := range new {
		if _, ok := old[path]; !ok {
			r.Added = append(r.Added, path)
		}
	}

	slices.Sort(r.Modified)
	slices.Sort(r.Deleted)
	slices.Sort(r.Added)
	return r
}
