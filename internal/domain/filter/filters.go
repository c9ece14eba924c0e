// internal/domain/filter/filters.go

package filter

import (
	"evimap/internal/domain/evidence"
)

// TimeFilter restricts tuples to those whose time span overlaps [Start, End].
type TimeFilter struct {
	Start int
	End   int
}

// Matches reports whether a tuple time span overlaps the filter range.
// A nil filter passes everything. A tuple without a time span also
// passes: the legacy data is full of undated evidence and hiding it
// under a time brush was judged worse than showing it. This leniency is
// a deliberate, recorded decision.
func (f *TimeFilter) Matches(span *evidence.TimeSpan) bool {
	if f == nil {
		return true
	}
	if span == nil {
		return true
	}
	if span.Start != nil && *span.Start > f.End {
		return false
	}
	if span.End != nil && *span.End < f.Start {
		return false
	}
	return true
}

// SourceFilter is an allow-list of source ids. nil means no filter.
type SourceFilter map[int]bool

// Matches reports whether a tuple passes the source filter: filter nil,
// tuple without sources, or any tuple source in the allow-list.
func (f SourceFilter) Matches(t *evidence.Tuple) bool {
	if f == nil {
		return true
	}
	if len(t.SourceIDs) == 0 {
		return true
	}
	for _, id := range t.SourceIDs {
		if f[id] {
			return true
		}
	}
	return false
}

// TagFilter is a closed sum over the three tag filter kinds: no filter,
// a single tag id, or a tag id set.
type TagFilter interface {
	// Matches evaluates the filter against a tuple's tag ids, as
	// resolved through the dataset's tuple-to-tags lookup.
	Matches(tagIDs []int) bool

	tagFilter()
}

// AllTags passes every tuple.
type AllTags struct{}

func (AllTags) Matches([]int) bool { return true }
func (AllTags) tagFilter()         {}

// TagIDFilter passes tuples carrying exactly this tag.
type TagIDFilter int

func (f TagIDFilter) Matches(tagIDs []int) bool {
	for _, id := range tagIDs {
		if id == int(f) {
			return true
		}
	}
	return false
}

func (TagIDFilter) tagFilter() {}

// TagSetFilter passes tuples carrying any tag in the set.
type TagSetFilter map[int]bool

func (f TagSetFilter) Matches(tagIDs []int) bool {
	for _, id := range tagIDs {
		if f[id] {
			return true
		}
	}
	return false
}

func (TagSetFilter) tagFilter() {}

// PlaceFilter is an explicit place allow-list. nil means no filter.
type PlaceFilter map[int]bool

// Matches reports whether a place id passes the allow-list.
func (f PlaceFilter) Matches(placeID int) bool {
	if f == nil {
		return true
	}
	return f[placeID]
}
