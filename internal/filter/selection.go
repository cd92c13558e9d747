package filter

import (
	"sort"

	"penguindash/internal/penguins"
)

// Mass control bounds in grams.
const (
	MinMassThreshold     = 2000
	MaxMassThreshold     = 6000
	DefaultMassThreshold = MaxMassThreshold
)

// SpeciesSet is an unordered set of species names.
type SpeciesSet map[string]struct{}

// NewSpeciesSet builds a set from names. Duplicates collapse.
func NewSpeciesSet(names ...string) SpeciesSet {
	set := make(SpeciesSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Contains reports membership. A nil set contains nothing.
func (s SpeciesSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the members in control order: known species first in their
// fixed order, then any other names lexically.
func (s SpeciesSet) Names() []string {
	out := make([]string, 0, len(s))
	for _, known := range penguins.AllSpecies {
		if s.Contains(known) {
			out = append(out, known)
		}
	}
	var extra []string
	for name := range s {
		if !isKnown(name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func isKnown(name string) bool {
	for _, known := range penguins.AllSpecies {
		if known == name {
			return true
		}
	}
	return false
}

// Selection is the user-chosen filter state: which species to show and the
// exclusive upper bound on body mass.
type Selection struct {
	Species       []string `json:"species"`
	MassThreshold float64  `json:"mass"`
}

// NewSelection returns a Selection with species de-duplicated and in control
// order, so equal choices compare equal.
func NewSelection(species []string, massThreshold float64) Selection {
	return Selection{Species: NewSpeciesSet(species...).Names(), MassThreshold: massThreshold}
}

// DefaultSelection mirrors the initial control state: every species and the
// maximum threshold.
func DefaultSelection() Selection {
	return NewSelection(penguins.AllSpecies, DefaultMassThreshold)
}

// SpeciesSet returns the selected species as a set.
func (s Selection) SpeciesSet() SpeciesSet { return NewSpeciesSet(s.Species...) }

// Equal reports whether two selections choose the same records.
func (s Selection) Equal(other Selection) bool {
	if s.MassThreshold != other.MassThreshold {
		return false
	}
	a, b := s.SpeciesSet(), other.SpeciesSet()
	if len(a) != len(b) {
		return false
	}
	for name := range a {
		if !b.Contains(name) {
			return false
		}
	}
	return true
}
