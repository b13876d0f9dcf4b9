package placement

import (
	"slices"
	"strings"
)

// Set is the viewer-side collection of rendered placements, keyed by id so a
// snapshot and a live stream can be merged in any order without duplicates.
// Not safe for concurrent use.
type Set struct {
	byID map[string]Placement
}

func NewSet(ps ...Placement) *Set {
	s := &Set{byID: make(map[string]Placement, len(ps))}
	s.Merge(ps...)
	return s
}

// Add reports whether p was new.
func (s *Set) Add(p Placement) bool {
	if _, ok := s.byID[p.ID]; ok {
		return false
	}
	s.byID[p.ID] = p
	return true
}

// Merge adds every placement and returns the ones that were not already
// present, in argument order.
func (s *Set) Merge(ps ...Placement) []Placement {
	var added []Placement
	for _, p := range ps {
		if s.Add(p) {
			added = append(added, p)
		}
	}
	return added
}

func (s *Set) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

func (s *Set) Len() int {
	return len(s.byID)
}

// Sorted returns the placements in creation order.
func (s *Set) Sorted() []Placement {
	ps := make([]Placement, 0, len(s.byID))
	for _, p := range s.byID {
		ps = append(ps, p)
	}
	slices.SortFunc(ps, func(a, b Placement) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return ps
}
