// internal/domain/filter/exportable.go

package filter

import (
	"encoding/json"
	"fmt"
	"sort"

	"evimap/internal/domain/evidence"
)

// This file defines the persisted JSON forms of the filters and the
// conversions in both directions. Malformed payloads are rejected here,
// at deserialization time; the predicates themselves are total functions
// and never see invalid filter state.

// ExportableReligion is the wire form of a ReligionFilter: the JSON
// literal true, or a tagged simple/complex object.
type ExportableReligion struct {
	Filter ReligionFilter
}

type religionEnvelope struct {
	Type   string          `json:"type"`
	Filter json.RawMessage `json:"filter"`
}

// MarshalJSON encodes AllReligions as true and the other variants as
// their tagged object form.
func (e ExportableReligion) MarshalJSON() ([]byte, error) {
	switch f := e.Filter.(type) {
	case nil, AllReligions:
		return []byte("true"), nil
	case SimpleReligionFilter:
		payload, err := json.Marshal(f.IDs)
		if err != nil {
			return nil, err
		}
		return json.Marshal(religionEnvelope{Type: "simple", Filter: payload})
	case ComplexReligionFilter:
		payload, err := json.Marshal(f.Rows)
		if err != nil {
			return nil, err
		}
		return json.Marshal(religionEnvelope{Type: "complex", Filter: payload})
	}
	return nil, fmt.Errorf("unknown religion filter variant %T", e.Filter)
}

// UnmarshalJSON decodes the wire form back into the matching variant.
// null is treated like true: no restriction.
func (e *ExportableReligion) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		e.Filter = AllReligions{}
		return nil
	}

	var all bool
	if err := json.Unmarshal(data, &all); err == nil {
		if !all {
			return fmt.Errorf("religion filter: false is not a valid filter")
		}
		e.Filter = AllReligions{}
		return nil
	}

	var envelope religionEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("religion filter: %w", err)
	}

	switch envelope.Type {
	case "simple":
		var ids []int
		if err := json.Unmarshal(envelope.Filter, &ids); err != nil {
			return fmt.Errorf("simple religion filter: %w", err)
		}
		e.Filter = SimpleReligionFilter{IDs: ids}
	case "complex":
		var rows [][]int
		if err := json.Unmarshal(envelope.Filter, &rows); err != nil {
			return fmt.Errorf("complex religion filter: %w", err)
		}
		e.Filter = ComplexReligionFilter{Rows: rows}
	default:
		return fmt.Errorf("religion filter: unknown type %q", envelope.Type)
	}
	return nil
}

// ExportableTags is the wire form of a TagFilter: true, a single id, or
// an id array.
type ExportableTags struct {
	Filter TagFilter
}

func (e ExportableTags) MarshalJSON() ([]byte, error) {
	switch f := e.Filter.(type) {
	case nil, AllTags:
		return []byte("true"), nil
	case TagIDFilter:
		return json.Marshal(int(f))
	case TagSetFilter:
		return json.Marshal(sortedIntKeys(f))
	}
	return nil, fmt.Errorf("unknown tag filter variant %T", e.Filter)
}

func (e *ExportableTags) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		e.Filter = AllTags{}
		return nil
	}

	var all bool
	if err := json.Unmarshal(data, &all); err == nil {
		if !all {
			return fmt.Errorf("tag filter: false is not a valid filter")
		}
		e.Filter = AllTags{}
		return nil
	}

	var id int
	if err := json.Unmarshal(data, &id); err == nil {
		e.Filter = TagIDFilter(id)
		return nil
	}

	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("tag filter: %w", err)
	}
	set := make(TagSetFilter, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	e.Filter = set
	return nil
}

// ExportConfidence converts confidence aspects to their wire form, a
// mapping from aspect key to permitted values or null.
func ExportConfidence(f ConfidenceAspects) map[string][]string {
	out := make(map[string][]string, len(evidence.Aspects))
	for _, aspect := range evidence.Aspects {
		r, ok := f[aspect]
		if !ok || r == nil {
			out[string(aspect)] = nil
			continue
		}
		values := make([]string, len(r))
		for i, v := range r {
			values[i] = string(v)
		}
		out[string(aspect)] = values
	}
	return out
}

// ParseConfidence converts the wire form back, rejecting unknown aspect
// keys and unknown confidence values.
func ParseConfidence(raw map[string][]string) (ConfidenceAspects, error) {
	aspects := DefaultConfidenceAspects()
	for key, values := range raw {
		aspect := evidence.Aspect(key)
		if !knownAspect(aspect) {
			return nil, fmt.Errorf("confidence filter: unknown aspect %q", key)
		}
		if values == nil {
			aspects[aspect] = nil
			continue
		}
		r := make(ConfidenceRange, 0, len(values))
		for _, v := range values {
			c := evidence.Confidence(v)
			if evidence.ConfidenceRank(c) >= len(evidence.ConfidenceOrder) {
				return nil, fmt.Errorf("confidence filter: unknown value %q", v)
			}
			r = append(r, c)
		}
		aspects[aspect] = r
	}
	return aspects, nil
}

func knownAspect(a evidence.Aspect) bool {
	for _, known := range evidence.Aspects {
		if known == a {
			return true
		}
	}
	return false
}

// ExportIDSet converts an id-set filter to a sorted id slice, or nil for
// the no-filter case.
func ExportIDSet(set map[int]bool) []int {
	if set == nil {
		return nil
	}
	return sortedIntKeys(set)
}

// ParseIDSet converts an id slice to a set filter. nil stays nil.
func ParseIDSet(ids []int) map[int]bool {
	if ids == nil {
		return nil
	}
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func sortedIntKeys(set map[int]bool) []int {
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
