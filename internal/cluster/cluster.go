// internal/cluster/cluster.go

package cluster

import (
	"math"
)

const (
	// coincidenceEpsilon short-circuits the closest-pair scan: points
	// stacked at the same place merge immediately without finishing
	// the scan.
	coincidenceEpsilon = 1e-4

	// gridCutoff is the input size above which the grid-accelerated
	// neighbor scan replaces the naive quadratic one.
	gridCutoff = 256
)

// Point is one projected input point carrying its place identity. Count
// is the merge weight, normally 1.
type Point struct {
	X, Y    float64
	PlaceID int
	Count   int
}

// Cluster is a spatial grouping of points. X/Y is the count-weighted
// centroid of all members; Count is the sum of member counts.
type Cluster struct {
	X, Y    float64
	Count   int
	Members []Point
}

// Cluttered puts every point into its own singleton cluster. No merging
// happens; the output order matches the input order.
func Cluttered(points []Point) []Cluster {
	clusters := make([]Cluster, len(points))
	for i, p := range points {
		clusters[i] = singleton(p)
	}
	return clusters
}

// Agglomerate groups points by repeated nearest-pair merging: while the
// globally closest pair of cluster centroids is closer than threshold,
// the pair is merged (weighted centroid, counts summed, members
// concatenated). On termination every two distinct clusters are at
// least threshold apart, which is what keeps glyph footprints from
// overlapping when threshold is twice the glyph radius.
func Agglomerate(points []Point, threshold float64) []Cluster {
	if len(points) == 0 {
		return nil
	}

	clusters := make([]Cluster, len(points))
	for i, p := range points {
		clusters[i] = singleton(p)
	}

	for len(clusters) > 1 {
		var i, j int
		var dist float64
		if len(clusters) > gridCutoff {
			i, j, dist = findClosestGrid(clusters, threshold)
		} else {
			i, j, dist = findClosest(clusters)
		}
		if i < 0 || dist >= threshold {
			break
		}
		clusters[i] = merge(clusters[i], clusters[j])
		clusters[j] = clusters[len(clusters)-1]
		clusters = clusters[:len(clusters)-1]
	}

	return clusters
}

func singleton(p Point) Cluster {
	count := p.Count
	if count <= 0 {
		count = 1
		p.Count = 1
	}
	return Cluster{X: p.X, Y: p.Y, Count: count, Members: []Point{p}}
}

// merge combines two clusters into one with a count-weighted centroid.
func merge(a, b Cluster) Cluster {
	total := a.Count + b.Count
	inv := 1.0 / float64(total)
	members := make([]Point, 0, len(a.Members)+len(b.Members))
	members = append(members, a.Members...)
	members = append(members, b.Members...)
	return Cluster{
		X:       (a.X*float64(a.Count) + b.X*float64(b.Count)) * inv,
		Y:       (a.Y*float64(a.Count) + b.Y*float64(b.Count)) * inv,
		Count:   total,
		Members: members,
	}
}

// findClosest scans all pairs for the minimum centroid distance. A pair
// closer than coincidenceEpsilon ends the scan immediately.
func findClosest(clusters []Cluster) (int, int, float64) {
	bestI, bestJ := -1, -1
	best := math.Inf(1)
	for i := 0; i < len(clusters)-1; i++ {
		for j := i + 1; j < len(clusters); j++ {
			d := distance(clusters[i], clusters[j])
			if d < best {
				best = d
				bestI, bestJ = i, j
				if best < coincidenceEpsilon {
					return bestI, bestJ, best
				}
			}
		}
	}
	return bestI, bestJ, best
}

// findClosestGrid buckets centroids into cells of size threshold and
// compares only same-cell and neighboring-cell pairs. Any pair closer
// than threshold necessarily shares a cell boundary at this cell size,
// so the minimum over candidate pairs is exact for every distance the
// merge loop cares about.
func findClosestGrid(clusters []Cluster, threshold float64) (int, int, float64) {
	type cell struct{ cx, cy int }
	grid := make(map[cell][]int, len(clusters))
	for i, c := range clusters {
		key := cell{int(math.Floor(c.X / threshold)), int(math.Floor(c.Y / threshold))}
		grid[key] = append(grid[key], i)
	}

	bestI, bestJ := -1, -1
	best := math.Inf(1)
	for key, indices := range grid {
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				neighbor := cell{key.cx + dx, key.cy + dy}
				others, ok := grid[neighbor]
				if !ok {
					continue
				}
				for _, i := range indices {
					for _, j := range others {
						if j <= i {
							continue
						}
						d := distance(clusters[i], clusters[j])
						if d < best {
							best = d
							bestI, bestJ = i, j
							if best < coincidenceEpsilon {
								return bestI, bestJ, best
							}
						}
					}
				}
			}
		}
	}
	return bestI, bestJ, best
}

func distance(a, b Cluster) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
