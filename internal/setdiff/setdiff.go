// Package setdiff compares an old unordered collection of set members with a
// proposed new one.
//
// Membership is tracked by id; equality of content is decided by a
// projection onto the member's comparable fields. Matching for reuse is by
// value, not by id: a resubmitted member with a different id but the same
// comparable fields counts as unchanged and its old row is reused. This can
// fold two distinct historical rows that happen to hold the same value into
// one; callers rely on it so that reordering or re-keying a submission is not
// an edit.
package setdiff

import (
	"slices"

	"github.com/roach88/catalog/internal/value"
)

// Spec describes how to identify and compare members of type T.
type Spec[T any] struct {
	// ID returns the member's identity. For membership-only sets this is
	// the member itself.
	ID func(T) string

	// Compare projects the member onto its comparable fields. Nil means the
	// collection is a plain list of identifiers and only membership matters.
	Compare func(T) value.Object
}

// Key is the value-equality key of item.
func (s Spec[T]) Key(item T) string {
	if s.Compare == nil {
		return s.ID(item)
	}
	return value.Key(s.Compare(item))
}

// HasChanged reports whether the id sets differ, or, for ids present in
// both, the comparable projection differs.
func HasChanged[T any](s Spec[T], old, proposed []T) bool {
	oldIDs := sortedIDs(s, old)
	newIDs := sortedIDs(s, proposed)
	if !slices.Equal(oldIDs, newIDs) {
		return true
	}
	if s.Compare == nil {
		return false
	}

	oldByID := make(map[string]T, len(old))
	for _, item := range old {
		oldByID[s.ID(item)] = item
	}
	for _, item := range proposed {
		prev := oldByID[s.ID(item)]
		if s.Key(prev) != s.Key(item) {
			return true
		}
	}
	return false
}

// Unchanged returns the members of old whose value is resubmitted in
// proposed, in proposed order. Each old member is returned at most once.
// These are the rows a new set attaches by reference.
func Unchanged[T any](s Spec[T], old, proposed []T) []T {
	oldByKey := make(map[string]T, len(old))
	for _, item := range old {
		k := s.Key(item)
		if _, seen := oldByKey[k]; !seen {
			oldByKey[k] = item
		}
	}

	var out []T
	used := make(map[string]bool)
	for _, item := range proposed {
		k := s.Key(item)
		match, ok := oldByKey[k]
		if !ok || used[k] {
			continue
		}
		used[k] = true
		out = append(out, match)
	}
	return out
}

// UpdatedOrNew returns the members of proposed with no value-equal
// counterpart in old. These need fresh storage rows.
func UpdatedOrNew[T any](s Spec[T], old, proposed []T) []T {
	oldKeys := keySet(s, old)
	var out []T
	seen := make(map[string]bool)
	for _, item := range proposed {
		k := s.Key(item)
		if oldKeys[k] || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, item)
	}
	return out
}

// Removed returns the members of old with no value-equal counterpart in proposed.
func Removed[T any](s Spec[T], old, proposed []T) []T {
	newKeys := keySet(s, proposed)
	var out []T
	for _, item := range old {
		if !newKeys[s.Key(item)] {
			out = append(out, item)
		}
	}
	return out
}

// ValueIdentical reports whether old and proposed hold the same set of
// values, ignoring ids, order and duplicates.
func ValueIdentical[T any](s Spec[T], old, proposed []T) bool {
	return len(UpdatedOrNew(s, old, proposed)) == 0 && len(Removed(s, old, proposed)) == 0
}

// Dedupe drops later members that are value-equal to an earlier one.
func Dedupe[T any](s Spec[T], items []T) []T {
	seen := make(map[string]bool, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := s.Key(item)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, item)
	}
	return out
}

func sortedIDs[T any](s Spec[T], items []T) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = s.ID(item)
	}
	slices.Sort(ids)
	return ids
}

func keySet[T any](s Spec[T], items []T) map[string]bool {
	keys := make(map[string]bool, len(items))
	for _, item := range items {
		keys[s.Key(item)] = true
	}
	return keys
}
