// internal/domain/filter/religion.go

package filter

import (
	"evimap/internal/domain/evidence"
)

// ReligionFilter is a closed sum over the three religion filter kinds:
// no filter, a flat id allow-list, or a place-level row filter.
type ReligionFilter interface {
	// MatchesTuple is the tuple-level part of the filter. For the
	// complex variant this is only half the story: the place-level
	// rule is evaluated separately by the dataset engine.
	MatchesTuple(t *evidence.Tuple) bool

	religionFilter()
}

// AllReligions passes every tuple.
type AllReligions struct{}

func (AllReligions) MatchesTuple(*evidence.Tuple) bool { return true }
func (AllReligions) religionFilter()                   {}

// SimpleReligionFilter passes tuples whose religion id is in the list.
type SimpleReligionFilter struct {
	IDs []int
}

func (f SimpleReligionFilter) MatchesTuple(t *evidence.Tuple) bool {
	for _, id := range f.IDs {
		if id == t.ReligionID {
			return true
		}
	}
	return false
}

func (SimpleReligionFilter) religionFilter() {}

// ComplexReligionFilter passes tuples whose religion id appears in any
// row, but additionally requires the tuple's *place* to satisfy at least
// one full row: every religion id of that row must be present among the
// place's predicate-passing tuples (AND within a row, OR across rows).
// The place-level rule needs a full pass over all of a place's tuples
// and therefore lives in the dataset engine, not here.
type ComplexReligionFilter struct {
	Rows [][]int
}

func (f ComplexReligionFilter) MatchesTuple(t *evidence.Tuple) bool {
	for _, row := range f.Rows {
		for _, id := range row {
			if id == t.ReligionID {
				return true
			}
		}
	}
	return false
}

func (ComplexReligionFilter) religionFilter() {}

// MatchesPlace applies the row rule to the set of religion ids with
// predicate-passing evidence at a place.
func (f ComplexReligionFilter) MatchesPlace(activeReligions map[int]bool) bool {
	for _, row := range f.Rows {
		all := len(row) > 0
		for _, id := range row {
			if !activeReligions[id] {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}
