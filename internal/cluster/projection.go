// internal/cluster/projection.go

package cluster

import (
	"math"
)

// tileExtent is the pixel extent of one tile; projected coordinates at
// zoom z live in [0, tileExtent * 2^z].
const tileExtent = 256

// Project converts a lat/lng coordinate to Web-Mercator pixel space at
// the given zoom level.
func Project(lat, lng float64, zoom int) (x, y float64) {
	sin := math.Sin(lat * math.Pi / 180)
	nx := (lng + 180) / 360
	ny := 0.5 - 0.25*math.Log((1+sin)/(1-sin))/math.Pi

	scale := float64(tileExtent) * math.Pow(2, float64(zoom))
	return nx * scale, ny * scale
}

// Unproject converts Web-Mercator pixel coordinates at a zoom level back
// to lat/lng.
func Unproject(x, y float64, zoom int) (lat, lng float64) {
	scale := float64(tileExtent) * math.Pow(2, float64(zoom))
	nx := x / scale
	ny := y / scale

	lng = nx*360 - 180
	lat = math.Atan(math.Sinh(math.Pi*(1-2*ny))) * 180 / math.Pi
	return lat, lng
}
