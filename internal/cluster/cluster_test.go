// internal/cluster/cluster_test.go

package cluster

import (
	"math"
	"testing"
)

func TestAgglomerateBasicGrouping(t *testing.T) {
	points := []Point{
		{X: 0, Y: 0, PlaceID: 1},
		{X: 0, Y: 1, PlaceID: 2},
		{X: 10, Y: 10, PlaceID: 3},
	}

	clusters := Agglomerate(points, 4)

	if len(clusters) != 2 {
		t.Fatalf("Expected 2 clusters, got %d", len(clusters))
	}

	var merged, lone *Cluster
	for i := range clusters {
		if clusters[i].Count == 2 {
			merged = &clusters[i]
		} else {
			lone = &clusters[i]
		}
	}

	if merged == nil || lone == nil {
		t.Fatalf("Expected one cluster of 2 and one of 1, got %+v", clusters)
	}
	if merged.X != 0 || merged.Y != 0.5 {
		t.Errorf("Expected merged centroid (0, 0.5), got (%f, %f)", merged.X, merged.Y)
	}
	if lone.X != 10 || lone.Y != 10 {
		t.Errorf("Expected lone centroid (10, 10), got (%f, %f)", lone.X, lone.Y)
	}
	if lone.Count != 1 {
		t.Errorf("Expected lone count 1, got %d", lone.Count)
	}
}

func TestAgglomerateCountConservation(t *testing.T) {
	points := []Point{
		{X: 0, Y: 0, PlaceID: 1},
		{X: 1, Y: 0, PlaceID: 2},
		{X: 0, Y: 1, PlaceID: 3},
		{X: 5, Y: 5, PlaceID: 4},
		{X: 5.5, Y: 5, PlaceID: 5},
		{X: 20, Y: 20, PlaceID: 6},
	}

	clusters := Agglomerate(points, 3)

	total := 0
	seen := make(map[int]int)
	for _, c := range clusters {
		total += c.Count
		if c.Count != len(c.Members) {
			t.Errorf("Cluster count %d does not match member count %d", c.Count, len(c.Members))
		}
		for _, m := range c.Members {
			seen[m.PlaceID]++
		}
	}

	if total != len(points) {
		t.Errorf("Expected total count %d, got %d", len(points), total)
	}
	for _, p := range points {
		if seen[p.PlaceID] != 1 {
			t.Errorf("Expected place %d to appear exactly once, appeared %d times", p.PlaceID, seen[p.PlaceID])
		}
	}
}

func TestAgglomerateNonOverlap(t *testing.T) {
	points := []Point{
		{X: 0, Y: 0, PlaceID: 1},
		{X: 2, Y: 0, PlaceID: 2},
		{X: 4, Y: 0, PlaceID: 3},
		{X: 12, Y: 0, PlaceID: 4},
		{X: 13, Y: 1, PlaceID: 5},
		{X: 30, Y: 30, PlaceID: 6},
	}
	threshold := 5.0

	clusters := Agglomerate(points, threshold)

	for i := 0; i < len(clusters)-1; i++ {
		for j := i + 1; j < len(clusters); j++ {
			d := distance(clusters[i], clusters[j])
			if d < threshold {
				t.Errorf("Clusters %d and %d are %f apart, expected at least %f", i, j, d, threshold)
			}
		}
	}
}

func TestAgglomerateEmptyInput(t *testing.T) {
	clusters := Agglomerate(nil, 4)
	if len(clusters) != 0 {
		t.Errorf("Expected 0 clusters for empty input, got %d", len(clusters))
	}
}

func TestAgglomerateSinglePoint(t *testing.T) {
	clusters := Agglomerate([]Point{{X: 3, Y: 4, PlaceID: 7}}, 4)
	if len(clusters) != 1 {
		t.Fatalf("Expected 1 cluster, got %d", len(clusters))
	}
	if clusters[0].X != 3 || clusters[0].Y != 4 || clusters[0].Count != 1 {
		t.Errorf("Expected singleton at (3,4) with count 1, got %+v", clusters[0])
	}
}

func TestAgglomerateCoincidentPoints(t *testing.T) {
	points := []Point{
		{X: 1, Y: 1, PlaceID: 1},
		{X: 1, Y: 1, PlaceID: 2},
		{X: 1, Y: 1, PlaceID: 3},
	}

	clusters := Agglomerate(points, 4)

	if len(clusters) != 1 {
		t.Fatalf("Expected 1 cluster for coincident points, got %d", len(clusters))
	}
	if clusters[0].Count != 3 {
		t.Errorf("Expected count 3, got %d", clusters[0].Count)
	}
	if clusters[0].X != 1 || clusters[0].Y != 1 {
		t.Errorf("Expected centroid (1,1), got (%f,%f)", clusters[0].X, clusters[0].Y)
	}
}

func TestAgglomerateGridMatchesNaive(t *testing.T) {
	// Enough points to trip the grid path, arranged in distinct groups
	// so the aggregate grouping is unambiguous.
	var points []Point
	id := 0
	for group := 0; group < 20; group++ {
		baseX := float64(group%5) * 100
		baseY := float64(group/5) * 100
		for k := 0; k < 15; k++ {
			id++
			points = append(points, Point{
				X:       baseX + float64(k%4),
				Y:       baseY + float64(k/4),
				PlaceID: id,
			})
		}
	}

	clusters := Agglomerate(points, 10)

	if len(clusters) != 20 {
		t.Fatalf("Expected 20 clusters, got %d", len(clusters))
	}
	total := 0
	for _, c := range clusters {
		if c.Count != 15 {
			t.Errorf("Expected every cluster to hold 15 points, got %d", c.Count)
		}
		total += c.Count
	}
	if total != len(points) {
		t.Errorf("Expected total count %d, got %d", len(points), total)
	}
}

func TestClutteredMode(t *testing.T) {
	points := []Point{
		{X: 0, Y: 0, PlaceID: 1},
		{X: 0, Y: 0.1, PlaceID: 2},
	}

	clusters := Cluttered(points)

	if len(clusters) != 2 {
		t.Fatalf("Expected 2 singleton clusters, got %d", len(clusters))
	}
	for i, c := range clusters {
		if c.Count != 1 || len(c.Members) != 1 {
			t.Errorf("Cluster %d should be a singleton, got %+v", i, c)
		}
		if c.Members[0].PlaceID != points[i].PlaceID {
			t.Errorf("Expected input order preserved at %d", i)
		}
	}
}

func TestProjectionRoundTrip(t *testing.T) {
	testCases := []struct {
		lat, lng float64
		zoom     int
	}{
		{0, 0, 0},
		{85, 180, 10},
		{-85, -180, 5},
		{48.77, 9.18, 8},
	}

	for _, tc := range testCases {
		x, y := Project(tc.lat, tc.lng, tc.zoom)
		lat, lng := Unproject(x, y, tc.zoom)

		const epsilon = 0.0001
		if math.Abs(tc.lat-lat) > epsilon || math.Abs(tc.lng-lng) > epsilon {
			t.Errorf("Projection round trip failed for (%f,%f) at zoom %d: got (%f,%f)",
				tc.lat, tc.lng, tc.zoom, lat, lng)
		}
	}
}
