// internal/glyph/glyph.go

package glyph

import (
	"math"
	"sort"

	"evimap/internal/cluster"
	"evimap/internal/domain/evidence"
)

// DisplayMode selects what the pie arcs encode.
type DisplayMode string

const (
	DisplayReligion   DisplayMode = "religion"
	DisplayConfidence DisplayMode = "confidence"
)

// MapMode selects the clustering strategy and with it the symbol layout.
type MapMode string

const (
	MapModeClustered MapMode = "clustered"
	MapModeCluttered MapMode = "cluttered"
)

const (
	// SymbolBudget is the maximum number of distinct pie symbols one
	// glyph may show. TrimHierarchy coarsens the hierarchy level until
	// no cluster needs more.
	SymbolBudget = 4

	// DefaultRadius is the visual radius of one pie symbol in
	// projected pixels. The clustering threshold is kept at twice this
	// value so that no two glyph footprints can overlap.
	DefaultRadius = 12.0
)

// Arc is one pie slice of a symbol.
type Arc struct {
	ReligionID int                 `json:"religion_id,omitempty"`
	Confidence evidence.Confidence `json:"confidence,omitempty"`
	Active     bool                `json:"active"`
	Count      int                 `json:"count"`
	Color      string              `json:"color"`
}

// Symbol is one pie of a glyph, grouped by the trimmed hierarchy level
// and offset from the cluster centroid.
type Symbol struct {
	GroupID int     `json:"group_id"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	Arcs    []Arc   `json:"arcs"`
}

// MapGlyph is the renderable aggregate for one cluster: its symbols,
// identifier sets for cross-view brushing, and a tooltip.
type MapGlyph struct {
	Circles     []string              `json:"circles"`
	CenterX     float64               `json:"center_x"`
	CenterY     float64               `json:"center_y"`
	Geolocs     []evidence.Coordinate `json:"geolocs"`
	Radius      float64               `json:"radius"`
	Symbols     []Symbol              `json:"symbols"`
	PlaceIDs    []int                 `json:"place_ids"`
	ReligionIDs []int                 `json:"religion_ids"`
	TupleIDs    []int                 `json:"tuple_ids"`
	SourceIDs   []int                 `json:"source_ids"`
	Tooltip     string                `json:"tooltip"`
}

// ConfidenceColors is the fixed confidence color scale.
var ConfidenceColors = map[evidence.Confidence]string{
	evidence.ConfidenceCertain:   "#1a9850",
	evidence.ConfidenceProbable:  "#91cf60",
	evidence.ConfidenceContested: "#fee08b",
	evidence.ConfidenceUncertain: "#fc8d59",
	evidence.ConfidenceFalse:     "#d73027",
	evidence.ConfidenceNone:      "#bbbbbb",
}

// Builder turns clusters into glyphs against one snapshot of the
// place-joined dataset.
type Builder struct {
	Hierarchy        *evidence.Hierarchy
	Places           map[int]*evidence.Place
	TuplesByPlace    map[int][]*evidence.Tuple
	ShowFiltered     bool
	ConfidenceAspect evidence.Aspect
	Radius           float64
}

// displayTuples returns the tuples a glyph shows for one place: active
// tuples, plus inactive ones when filtered evidence is displayed.
func (b *Builder) displayTuples(placeID int) []*evidence.Tuple {
	all := b.TuplesByPlace[placeID]
	if b.ShowFiltered {
		return all
	}
	active := make([]*evidence.Tuple, 0, len(all))
	for _, t := range all {
		if t.Active {
			active = append(active, t)
		}
	}
	return active
}

// TrimHierarchy returns the deepest hierarchy level at which no cluster
// needs more than budget distinct parent religions. Distinct counts are
// non-decreasing with depth, so the satisfying levels form a prefix and
// a linear scan that stops at the first violation returns the last
// satisfying level. Level 0 is returned even when it exceeds the budget:
// there is nothing coarser to fall back to.
func (b *Builder) TrimHierarchy(clusters []cluster.Cluster, budget int) int {
	level := 0
	for l := 0; l < b.Hierarchy.MaxDepth(); l++ {
		maxDistinct := 0
		for _, c := range clusters {
			distinct := make(map[int]bool)
			for _, m := range c.Members {
				for _, t := range b.displayTuples(m.PlaceID) {
					distinct[b.Hierarchy.ParentAtLevel(t.ReligionID, l)] = true
				}
			}
			if len(distinct) > maxDistinct {
				maxDistinct = len(distinct)
			}
		}
		if maxDistinct > budget {
			break
		}
		level = l
	}
	return level
}

// BuildGlyph converts one cluster into its renderable glyph at the given
// hierarchy level.
func (b *Builder) BuildGlyph(c cluster.Cluster, level int, mode DisplayMode, mapMode MapMode) MapGlyph {
	radius := b.Radius
	if radius <= 0 {
		radius = DefaultRadius
	}

	glyph := MapGlyph{
		CenterX: c.X,
		CenterY: c.Y,
		Radius:  radius,
	}

	placeIDs := make(map[int]bool)
	religionIDs := make(map[int]bool)
	tupleIDs := make(map[int]bool)
	sourceIDs := make(map[int]bool)
	tuplesByGroup := make(map[int][]*evidence.Tuple)

	for _, m := range c.Members {
		placeIDs[m.PlaceID] = true
		if p := b.Places[m.PlaceID]; p != nil && p.Geoloc != nil {
			glyph.Geolocs = append(glyph.Geolocs, *p.Geoloc)
		}
		for _, t := range b.displayTuples(m.PlaceID) {
			religionIDs[t.ReligionID] = true
			tupleIDs[t.TupleID] = true
			for _, s := range t.SourceIDs {
				sourceIDs[s] = true
			}
			group := b.Hierarchy.ParentAtLevel(t.ReligionID, level)
			tuplesByGroup[group] = append(tuplesByGroup[group], t)
		}
	}

	groups := make([]int, 0, len(tuplesByGroup))
	for id := range tuplesByGroup {
		groups = append(groups, id)
	}
	sort.Slice(groups, func(i, j int) bool {
		return b.Hierarchy.Order(groups[i]) < b.Hierarchy.Order(groups[j])
	})

	offsets := symbolOffsets(len(groups), radius, mapMode)
	for i, group := range groups {
		symbol := Symbol{
			GroupID: group,
			OffsetX: offsets[i][0],
			OffsetY: offsets[i][1],
		}
		switch mode {
		case DisplayConfidence:
			symbol.Arcs = b.confidenceArcs(tuplesByGroup[group])
		default:
			symbol.Arcs = b.religionArcs(tuplesByGroup[group])
		}
		glyph.Symbols = append(glyph.Symbols, symbol)

		if node := b.Hierarchy.Node(group); node != nil {
			glyph.Circles = append(glyph.Circles, node.Abbreviation)
		} else {
			glyph.Circles = append(glyph.Circles, "")
		}
	}

	glyph.PlaceIDs = sortedKeys(placeIDs)
	glyph.ReligionIDs = sortedKeys(religionIDs)
	glyph.TupleIDs = sortedKeys(tupleIDs)
	glyph.SourceIDs = sortedKeys(sourceIDs)
	glyph.Tooltip = b.tooltip(glyph.PlaceIDs)

	return glyph
}

// religionArcs builds one arc per (religion, active) pair, ordered by
// the hierarchy display order with active before inactive.
func (b *Builder) religionArcs(tuples []*evidence.Tuple) []Arc {
	type key struct {
		religion int
		active   bool
	}
	counts := make(map[key]int)
	for _, t := range tuples {
		counts[key{t.ReligionID, t.Active}]++
	}

	arcs := make([]Arc, 0, len(counts))
	for k, n := range counts {
		arcs = append(arcs, Arc{
			ReligionID: k.religion,
			Active:     k.active,
			Count:      n,
			Color:      b.Hierarchy.Color(k.religion),
		})
	}
	sort.Slice(arcs, func(i, j int) bool {
		oi, oj := b.Hierarchy.Order(arcs[i].ReligionID), b.Hierarchy.Order(arcs[j].ReligionID)
		if oi != oj {
			return oi < oj
		}
		return arcs[i].Active && !arcs[j].Active
	})
	return arcs
}

// confidenceArcs builds one arc per (confidence, active) pair of the
// selected aspect, ordered by confidence severity with active before
// inactive.
func (b *Builder) confidenceArcs(tuples []*evidence.Tuple) []Arc {
	type key struct {
		confidence evidence.Confidence
		active     bool
	}
	aspect := b.ConfidenceAspect
	if aspect == "" {
		aspect = evidence.AspectReligion
	}

	counts := make(map[key]int)
	for _, t := range tuples {
		values := t.AspectValues(aspect)
		c := evidence.ConfidenceNone
		if len(values) > 0 {
			c = values[0]
		}
		counts[key{c, t.Active}]++
	}

	arcs := make([]Arc, 0, len(counts))
	for k, n := range counts {
		arcs = append(arcs, Arc{
			Confidence: k.confidence,
			Active:     k.active,
			Count:      n,
			Color:      ConfidenceColors[k.confidence],
		})
	}
	sort.Slice(arcs, func(i, j int) bool {
		ri, rj := evidence.ConfidenceRank(arcs[i].Confidence), evidence.ConfidenceRank(arcs[j].Confidence)
		if ri != rj {
			return ri < rj
		}
		return arcs[i].Active && !arcs[j].Active
	})
	return arcs
}

// packingOffsets holds unit offsets (in multiples of the symbol radius)
// for small symbol counts in cluttered mode: center first, then a tight
// hexagonal ring.
var packingOffsets = [][][2]float64{
	{},
	{{0, 0}},
	{{-1, 0}, {1, 0}},
	{{0, -1.1547}, {-1, 0.5774}, {1, 0.5774}},
	{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}},
	{{0, 0}, {-2, 0}, {2, 0}, {-1, -1.7321}, {1, 1.7321}},
	{{-1, -1.7321}, {1, -1.7321}, {-2, 0}, {2, 0}, {-1, 1.7321}, {1, 1.7321}},
	{{0, 0}, {-2, 0}, {2, 0}, {-1, -1.7321}, {1, -1.7321}, {-1, 1.7321}, {1, 1.7321}},
}

// symbolOffsets arranges count symbols around the centroid. In clustered
// mode they are evenly spaced on a circle sized so adjacent symbols just
// touch; in cluttered mode a fixed packing table covers small counts and
// larger counts fall back to a horizontal line.
func symbolOffsets(count int, radius float64, mapMode MapMode) [][2]float64 {
	if count <= 0 {
		return nil
	}
	if count == 1 {
		return [][2]float64{{0, 0}}
	}

	if mapMode == MapModeCluttered {
		if count < len(packingOffsets) {
			offsets := make([][2]float64, count)
			for i, o := range packingOffsets[count] {
				offsets[i] = [2]float64{o[0] * radius, o[1] * radius}
			}
			return offsets
		}
		offsets := make([][2]float64, count)
		for i := range offsets {
			offsets[i] = [2]float64{(float64(i) - float64(count-1)/2) * 2 * radius, 0}
		}
		return offsets
	}

	ring := radius / math.Sin(math.Pi/float64(count))
	offsets := make([][2]float64, count)
	for i := range offsets {
		angle := 2*math.Pi*float64(i)/float64(count) - math.Pi/2
		offsets[i] = [2]float64{ring * math.Cos(angle), ring * math.Sin(angle)}
	}
	return offsets
}

func sortedKeys(set map[int]bool) []int {
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
