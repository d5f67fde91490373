package recurrence

import (
	"sort"
	"time"
)

// Materialize answers the windowed query: all occurrences of the schedule
// visible in [from, to] (inclusive bounds), with the exception overlay
// applied, sorted by start instant.
//
// Only the index range whose generated instants can fall in the window is
// enumerated; override indices are probed separately so a Modified override
// that moves an occurrence into the window is still found. Identical inputs
// always produce identical output — callers may cache the result keyed by
// (series, window, version) and must invalidate on any rule or override
// mutation.
func Materialize(s *Schedule, tpl Template, overrides []Override, from, to time.Time) []Occurrence {
	byIndex := overrideIndex(overrides)

	lo, hi := s.indexRange(from, to)

	candidates := make([]int, 0, hi-lo+len(byIndex))
	for k := lo; k < hi; k++ {
		candidates = append(candidates, k)
	}
	// A modified start or end can move an occurrence across the window
	// boundary in either direction, so every overridden index in bounds
	// is considered regardless of where its generated instant falls.
	for k := range byIndex {
		if (k < lo || k >= hi) && k >= 0 && k < s.total {
			candidates = append(candidates, k)
		}
	}

	res := make([]Occurrence, 0, len(candidates))
	for _, k := range candidates {
		occ, ok := resolve(s, tpl, s.InstantAt(k), byIndex[k])
		if !ok {
			continue
		}
		if occ.Start.After(to) || occ.End.Before(from) {
			continue
		}
		res = append(res, occ)
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Start.Before(res[j].Start)
	})

	return res
}
