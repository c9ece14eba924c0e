// internal/dataset/lookup.go

package dataset

// LookupTables holds the brushing/linking indexes. They answer "which
// entities relate to the thing under the cursor" in constant time and
// are rebuilt wholesale on every recomputation; a table struct is never
// mutated after publication.
type LookupTables struct {
	TupleIDsForPlaceID    map[int][]int
	TupleIDsForReligionID map[int][]int
	TupleIDsForSourceID   map[int][]int
	TupleIDsForTagID      map[int][]int

	SourceIDsForTupleID map[int][]int
	TagIDsForTupleID    map[int][]int

	PlaceIDsForReligionID  map[int]map[int]bool
	ReligionIDsForPlaceID  map[int]map[int]bool
	PlaceIDsForSourceID    map[int]map[int]bool
	SourceIDsForPlaceID    map[int]map[int]bool
	ReligionIDsForSourceID map[int]map[int]bool
	SourceIDsForReligionID map[int]map[int]bool
}

func newLookupTables() LookupTables {
	return LookupTables{
		TupleIDsForPlaceID:     make(map[int][]int),
		TupleIDsForReligionID:  make(map[int][]int),
		TupleIDsForSourceID:    make(map[int][]int),
		TupleIDsForTagID:       make(map[int][]int),
		SourceIDsForTupleID:    make(map[int][]int),
		TagIDsForTupleID:       make(map[int][]int),
		PlaceIDsForReligionID:  make(map[int]map[int]bool),
		ReligionIDsForPlaceID:  make(map[int]map[int]bool),
		PlaceIDsForSourceID:    make(map[int]map[int]bool),
		SourceIDsForPlaceID:    make(map[int]map[int]bool),
		ReligionIDsForSourceID: make(map[int]map[int]bool),
		SourceIDsForReligionID: make(map[int]map[int]bool),
	}
}

func add(m map[int]map[int]bool, key, value int) {
	set, ok := m[key]
	if !ok {
		set = make(map[int]bool)
		m[key] = set
	}
	set[value] = true
}

// rebuildLookupTablesLocked rebuilds every index from scratch and swaps
// it in atomically. When brushOnlyActive is set only active tuples feed
// the tables, so highlighting never points at filtered-out evidence.
func (d *Dataset) rebuildLookupTablesLocked() {
	lk := newLookupTables()
	for _, t := range d.tuples {
		if d.brushOnlyActive && !t.Active {
			continue
		}
		lk.TupleIDsForPlaceID[t.PlaceID] = append(lk.TupleIDsForPlaceID[t.PlaceID], t.TupleID)
		lk.TupleIDsForReligionID[t.ReligionID] = append(lk.TupleIDsForReligionID[t.ReligionID], t.TupleID)
		add(lk.PlaceIDsForReligionID, t.ReligionID, t.PlaceID)
		add(lk.ReligionIDsForPlaceID, t.PlaceID, t.ReligionID)

		lk.SourceIDsForTupleID[t.TupleID] = append([]int(nil), t.SourceIDs...)
		for _, sourceID := range t.SourceIDs {
			lk.TupleIDsForSourceID[sourceID] = append(lk.TupleIDsForSourceID[sourceID], t.TupleID)
			add(lk.PlaceIDsForSourceID, sourceID, t.PlaceID)
			add(lk.SourceIDsForPlaceID, t.PlaceID, sourceID)
			add(lk.ReligionIDsForSourceID, sourceID, t.ReligionID)
			add(lk.SourceIDsForReligionID, t.ReligionID, sourceID)
		}

		tagIDs := d.tagIDsForTuple[t.TupleID]
		lk.TagIDsForTupleID[t.TupleID] = append([]int(nil), tagIDs...)
		for _, tagID := range tagIDs {
			lk.TupleIDsForTagID[tagID] = append(lk.TupleIDsForTagID[tagID], t.TupleID)
		}
	}
	d.lookup = lk
}
