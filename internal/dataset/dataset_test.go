// internal/dataset/dataset_test.go

package dataset

import (
	"encoding/json"
	"reflect"
	"testing"

	"evimap/internal/domain/evidence"
	"evimap/internal/domain/filter"
)

func intPtr(v int) *int { return &v }

func testBundle() Bundle {
	root := &evidence.ReligionNode{
		ID: 0,
		Children: []*evidence.ReligionNode{
			{ID: 5, Name: "Religion Five", Abbreviation: "R5", Color: "#123456"},
			{ID: 9, Name: "Religion Nine", Abbreviation: "R9", Color: "#654321"},
		},
	}
	places := []*evidence.Place{
		{ID: 1, Name: "Alpha", Geoloc: &evidence.Coordinate{Lat: 10, Lng: 10}},
		{ID: 2, Name: "Beta", Geoloc: &evidence.Coordinate{Lat: 20, Lng: 20}},
		{ID: 3, Name: "Gamma", Geoloc: &evidence.Coordinate{Lat: 30, Lng: 30}},
	}
	tuples := []*evidence.Tuple{
		{
			TupleID: 100, PlaceID: 1, ReligionID: 5, SourceIDs: []int{7},
			TimeSpan:           &evidence.TimeSpan{Start: intPtr(100), End: intPtr(200)},
			ReligionConfidence: evidence.ConfidenceCertain,
			SourceConfidences:  []evidence.Confidence{evidence.ConfidenceProbable},
		},
		{
			TupleID: 101, PlaceID: 1, ReligionID: 9, SourceIDs: []int{7, 8},
			TimeSpan:           &evidence.TimeSpan{Start: intPtr(150), End: intPtr(250)},
			ReligionConfidence: evidence.ConfidenceProbable,
		},
		{
			TupleID: 102, PlaceID: 2, ReligionID: 5, SourceIDs: []int{8},
			TimeSpan:           &evidence.TimeSpan{Start: intPtr(300), End: intPtr(400)},
			ReligionConfidence: evidence.ConfidenceUncertain,
		},
		{
			TupleID: 103, PlaceID: 3, ReligionID: 9, SourceIDs: nil,
			TimeSpan: nil,
		},
	}
	tags := []*evidence.Tag{
		{ID: 50, Name: "excavated", TupleIDs: []int{100, 102}},
	}
	sources := []*evidence.Source{
		{ID: 7, Name: "Chronicle", ShortName: "CHR"},
		{ID: 8, Name: "Inscription", ShortName: "INS"},
	}
	return Bundle{
		Tuples:    tuples,
		Places:    places,
		Hierarchy: evidence.NewHierarchy(root),
		Tags:      tags,
		Sources:   sources,
	}
}

func activeIDs(d *Dataset) []int {
	var ids []int
	for _, t := range d.tuples {
		if t.Active {
			ids = append(ids, t.TupleID)
		}
	}
	return ids
}

func TestDefaultFiltersActivateEverything(t *testing.T) {
	d := New(testBundle(), Options{})
	total, active := d.TupleCount()
	if total != 4 || active != 4 {
		t.Errorf("Expected 4/4 active, got %d/%d", active, total)
	}
}

func TestSimpleReligionFilter(t *testing.T) {
	d := New(testBundle(), Options{})
	d.SetReligionFilter(filter.SimpleReligionFilter{IDs: []int{9}})

	got := activeIDs(d)
	want := []int{101, 103}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected active tuples %v, got %v", want, got)
	}
}

func TestComplexReligionFilterIsPlaceLevel(t *testing.T) {
	d := New(testBundle(), Options{})

	// Only place 1 has evidence for both religion 5 and religion 9.
	d.SetReligionFilter(filter.ComplexReligionFilter{Rows: [][]int{{5, 9}}})

	got := activeIDs(d)
	want := []int{100, 101}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected active tuples %v, got %v", want, got)
	}
}

func TestComplexReligionFilterRespectsOtherFilters(t *testing.T) {
	d := New(testBundle(), Options{})

	// The time filter knocks out tuple 100, so place 1 no longer has
	// predicate-passing evidence for religion 5 and the row fails for
	// everything. Tuple 103 has no time span and passes the time filter,
	// but its place only ever sees religion 9.
	d.SuspendEvents()
	d.SetReligionFilter(filter.ComplexReligionFilter{Rows: [][]int{{5, 9}}})
	d.SetTimeFilter(&filter.TimeFilter{Start: 210, End: 500})
	d.ResumeEvents()

	if got := activeIDs(d); got != nil {
		t.Errorf("Expected no active tuples, got %v", got)
	}
}

func TestTimeFilterLenientOnUndated(t *testing.T) {
	d := New(testBundle(), Options{})
	d.SetTimeFilter(&filter.TimeFilter{Start: 0, End: 50})

	// Only the undated tuple survives a range that predates everything.
	got := activeIDs(d)
	want := []int{103}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected active tuples %v, got %v", want, got)
	}
}

func TestConfidenceEmptyRangeMatchesNothing(t *testing.T) {
	d := New(testBundle(), Options{})

	aspects := filter.DefaultConfidenceAspects()
	aspects[evidence.AspectReligion] = filter.ConfidenceRange{}
	d.SetConfidenceFilter(aspects)

	if got := activeIDs(d); got != nil {
		t.Errorf("Expected empty range to deactivate everything, got %v", got)
	}

	// A nil range is unrestricted, unlike the empty one.
	aspects = filter.DefaultConfidenceAspects()
	aspects[evidence.AspectReligion] = nil
	d.SetConfidenceFilter(aspects)

	if _, active := d.TupleCount(); active != 4 {
		t.Errorf("Expected nil range to keep all 4 tuples active, got %d", active)
	}
}

func TestFilterIdempotence(t *testing.T) {
	d := New(testBundle(), Options{})
	f := filter.SimpleReligionFilter{IDs: []int{5}}

	d.SetReligionFilter(f)
	first := activeIDs(d)
	d.SetReligionFilter(f)
	second := activeIDs(d)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Re-applying the same filter changed the result: %v vs %v", first, second)
	}
}

func TestSuspendResumeBatchesToOneChange(t *testing.T) {
	d := New(testBundle(), Options{})

	var changes []Change
	d.OnChange(func(c Change) { changes = append(changes, c) })

	d.SuspendEvents()
	d.SetReligionFilter(filter.SimpleReligionFilter{IDs: []int{5}})
	d.SetTimeFilter(&filter.TimeFilter{Start: 0, End: 1000})
	d.SetTagsFilter(filter.TagIDFilter(50))
	d.ResumeEvents()

	if len(changes) != 1 {
		t.Fatalf("Expected 1 batched change, got %d", len(changes))
	}
	wantScopes := []ChangeScope{ScopeReligion, ScopeTime, ScopeTags}
	if !reflect.DeepEqual(changes[0].Scopes, wantScopes) {
		t.Errorf("Expected scopes %v, got %v", wantScopes, changes[0].Scopes)
	}

	got := activeIDs(d)
	want := []int{100, 102}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected active tuples %v, got %v", want, got)
	}
}

func TestLookupTablesBidirectional(t *testing.T) {
	d := New(testBundle(), Options{})
	lk := d.Lookup()

	for placeID, tupleIDs := range lk.TupleIDsForPlaceID {
		for _, tupleID := range tupleIDs {
			found := false
			for _, sourceID := range lk.SourceIDsForTupleID[tupleID] {
				if !lk.PlaceIDsForSourceID[sourceID][placeID] {
					t.Errorf("Source %d lists tuple %d but not its place %d", sourceID, tupleID, placeID)
				}
				if !lk.SourceIDsForPlaceID[placeID][sourceID] {
					t.Errorf("Place %d missing source %d", placeID, sourceID)
				}
				found = true
			}
			_ = found
		}
	}

	for religionID, placeSet := range lk.PlaceIDsForReligionID {
		for placeID := range placeSet {
			if !lk.ReligionIDsForPlaceID[placeID][religionID] {
				t.Errorf("Religion %d lists place %d but the reverse entry is missing", religionID, placeID)
			}
		}
	}

	if got := lk.TupleIDsForTagID[50]; !reflect.DeepEqual(got, []int{100, 102}) {
		t.Errorf("Expected tag 50 to map to tuples [100 102], got %v", got)
	}
}

func TestBrushOnlyActiveRestrictsLookups(t *testing.T) {
	d := New(testBundle(), Options{BrushOnlyActive: true})
	d.SetReligionFilter(filter.SimpleReligionFilter{IDs: []int{5}})

	lk := d.Lookup()
	if _, ok := lk.TupleIDsForReligionID[9]; ok {
		t.Errorf("Expected religion 9 to vanish from active-only lookups")
	}
	if got := lk.TupleIDsForPlaceID[1]; !reflect.DeepEqual(got, []int{100}) {
		t.Errorf("Expected place 1 to map to [100], got %v", got)
	}
}

func TestStateRoundTrip(t *testing.T) {
	d := New(testBundle(), Options{})

	d.SuspendEvents()
	d.SetReligionFilter(filter.SimpleReligionFilter{IDs: []int{5, 9}})
	d.SetTimeFilter(&filter.TimeFilter{Start: 100, End: 300})
	d.SetSourceFilter(filter.SourceFilter{7: true})
	d.SetShowFiltered(true)
	d.ResumeEvents()

	payload, err := json.Marshal(d.ExportState())
	if err != nil {
		t.Fatalf("Failed to marshal state: %v", err)
	}

	fresh := New(testBundle(), Options{})
	if err := fresh.ImportState(payload); err != nil {
		t.Fatalf("Failed to import state: %v", err)
	}

	if !reflect.DeepEqual(activeIDs(fresh), activeIDs(d)) {
		t.Errorf("Imported session disagrees: %v vs %v", activeIDs(fresh), activeIDs(d))
	}
	if !fresh.View().ShowFiltered {
		t.Errorf("Expected show-filtered to survive the round trip")
	}
}

func TestImportRejectsWithoutMutating(t *testing.T) {
	d := New(testBundle(), Options{})
	d.SetReligionFilter(filter.SimpleReligionFilter{IDs: []int{5}})
	before := activeIDs(d)
	versionBefore := d.Version()

	bad := []byte(`{
		"filters": {"religion": false},
		"metadata": {"version": 1},
		"display-mode": "religion",
		"timeline-mode": "qualitative",
		"map-mode": "clustered",
		"source-sort-mode": "name",
		"confidence-aspect": "religion_confidence"
	}`)
	if err := d.ImportState(bad); err == nil {
		t.Fatalf("Expected import of religion filter false to fail")
	}

	unknownAspect := []byte(`{
		"filters": {"religion": true, "confidence": {"bogus_confidence": ["certain"]}},
		"metadata": {"version": 1},
		"display-mode": "religion",
		"timeline-mode": "qualitative",
		"map-mode": "clustered",
		"source-sort-mode": "name",
		"confidence-aspect": "religion_confidence"
	}`)
	if err := d.ImportState(unknownAspect); err == nil {
		t.Fatalf("Expected import with unknown confidence aspect to fail")
	}

	if !reflect.DeepEqual(activeIDs(d), before) {
		t.Errorf("Rejected import mutated the active set")
	}
	if d.Version() != versionBefore {
		t.Errorf("Rejected import bumped the version: %d vs %d", d.Version(), versionBefore)
	}
}

func TestHistoryTracksMutations(t *testing.T) {
	d := New(testBundle(), Options{})
	d.SetReligionFilter(filter.SimpleReligionFilter{IDs: []int{9}})
	d.SetTimeFilter(&filter.TimeFilter{Start: 0, End: 1000})

	tree := d.History()
	if tree.Size() != 3 {
		t.Fatalf("Expected 3 history entries, got %d", tree.Size())
	}

	node, err := tree.Back()
	if err != nil {
		t.Fatalf("Back failed: %v", err)
	}
	if err := d.ApplyState(node.State); err != nil {
		t.Fatalf("Failed to apply history snapshot: %v", err)
	}
	if got, want := activeIDs(d), []int{101, 103}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected active tuples %v after undo, got %v", want, got)
	}
	if tree.Size() != 3 {
		t.Errorf("History navigation grew the tree to %d entries", tree.Size())
	}
}
