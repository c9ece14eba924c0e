// internal/domain/filter/location.go

package filter

import (
	"evimap/internal/domain/evidence"
)

// LocationFilter restricts tuples to places inside a geographic polygon.
// Unplaced places (nil geolocation) count as matching so that they never
// vanish from list views when a map brush is active.
type LocationFilter struct {
	Polygon []evidence.Coordinate
}

// Matches reports whether a place lies inside the filter polygon. A nil
// filter or an empty polygon passes everything.
func (f *LocationFilter) Matches(p *evidence.Place) bool {
	if f == nil || len(f.Polygon) < 3 {
		return true
	}
	if p == nil || p.Geoloc == nil {
		return true
	}
	return pointInPolygon(*p.Geoloc, f.Polygon)
}

// pointInPolygon is a standard ray-casting test counting crossings of a
// horizontal ray with the polygon edges.
func pointInPolygon(pt evidence.Coordinate, polygon []evidence.Coordinate) bool {
	inside := false
	j := len(polygon) - 1
	for i := 0; i < len(polygon); i++ {
		pi, pj := polygon[i], polygon[j]
		intersects := (pi.Lat > pt.Lat) != (pj.Lat > pt.Lat) &&
			pt.Lng < (pj.Lng-pi.Lng)*(pt.Lat-pi.Lat)/(pj.Lat-pi.Lat)+pi.Lng
		if intersects {
			inside = !inside
		}
		j = i
	}
	return inside
}
