package sync

import "sort"

// Snapshot is a point-in-time mapping from file name to corrected
// modification time (unix seconds) for one store. Built fresh per store per
// pass, never persisted.
type Snapshot map[string]int64

// Names returns the file names in sorted order, so reconciliation steps
// iterate deterministically and can mutate the underlying map safely.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for name, mtime := range s {
		out[name] = mtime
	}
	return out
}
