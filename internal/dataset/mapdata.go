// internal/dataset/mapdata.go

package dataset

import (
	"evimap/internal/domain/evidence"
)

// MapData is the read-only snapshot the map worker consumes. Tuples are
// copied by value so a later recomputation flipping active flags never
// races an in-flight render.
type MapData struct {
	Places        map[int]*evidence.Place
	TuplesByPlace map[int][]*evidence.Tuple
	Hierarchy     *evidence.Hierarchy
	View          ViewState
	Version       uint64
}

// MapData builds a snapshot of everything the worker needs for one
// render pass.
func (d *Dataset) MapData() MapData {
	d.mu.RLock()
	defer d.mu.RUnlock()

	byPlace := make(map[int][]*evidence.Tuple, len(d.places))
	for _, t := range d.tuples {
		copied := *t
		byPlace[t.PlaceID] = append(byPlace[t.PlaceID], &copied)
	}
	return MapData{
		Places:        d.places,
		TuplesByPlace: byPlace,
		Hierarchy:     d.hierarchy,
		View:          d.view,
		Version:       d.version,
	}
}
