package describer

import (
	"fmt"
	"slices"
)

// DetermineFields computes the ordered field names exposed for m.
//
// At most one of only and exclude may be non-nil. With neither, every
// candidate field is returned. Candidates are the local fields in catalog
// order followed, when includeReverse is set, by the reverse relation
// fields (one-to-many and non-symmetric many-to-many). The result keeps
// the order of only, or the catalog order for exclude.
func DetermineFields(m Model, only, exclude []string, includeReverse bool) ([]string, error) {
	if only != nil && exclude != nil {
		return nil, NewConfigError(m.Name(), "", "cannot define both only fields and exclude fields", nil)
	}
	candidates := CandidateFields(m, includeReverse)
	check := func(names []string) error {
		for _, name := range names {
			if !slices.Contains(candidates, name) {
				return NewConfigError(m.Name(), name, "", fmt.Errorf("%w: %s", ErrUnknownField, name))
			}
		}
		return nil
	}
	if only != nil {
		if err := check(only); err != nil {
			return nil, err
		}
		return slices.Clone(only), nil
	}
	if err := check(exclude); err != nil {
		return nil, err
	}
	fields := make([]string, 0, len(candidates))
	for _, name := range candidates {
		if !slices.Contains(exclude, name) {
			fields = append(fields, name)
		}
	}
	return fields, nil
}

// CandidateFields returns the names DetermineFields selects from.
func CandidateFields(m Model, includeReverse bool) []string {
	var names []string
	for _, f := range m.Fields() {
		names = append(names, f.Name)
	}
	if !includeReverse {
		return names
	}
	for _, f := range m.ReverseFields() {
		switch {
		case f.Kind == KindOneToMany:
			names = append(names, f.Name)
		case f.Kind == KindManyToMany && !f.Symmetric:
			names = append(names, f.Name)
		}
	}
	return names
}

// IsLocalField reports whether name is a local field of m.
func IsLocalField(m Model, name string) bool {
	for _, f := range m.Fields() {
		if f.Name == name {
			return true
		}
	}
	return false
}
