// internal/worker/worker.go

package worker

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"evimap/internal/cluster"
	"evimap/internal/dataset"
	"evimap/internal/domain/evidence"
	"evimap/internal/glyph"
)

// MessageType tags the closed vocabulary of worker messages.
type MessageType string

const (
	MsgSetData        MessageType = "set-data"
	MsgSetZoomLevel   MessageType = "set-zoom-level"
	MsgSetMapMode     MessageType = "set-map-mode"
	MsgSetDisplayMode MessageType = "set-display-mode"
	MsgSetFilter      MessageType = "set-filter"
)

// Message is one fire-and-forget instruction to the worker. Only the
// field matching the type is read.
type Message struct {
	Type        MessageType
	Data        dataset.MapData
	Zoom        int
	MapMode     glyph.MapMode
	DisplayMode glyph.DisplayMode
}

// Result is one clustering+glyph pass over the latest state. Generation
// increases monotonically so consumers can discard results that were
// superseded while in flight; the original fire-and-forget protocol had
// no such correlation and could misapply a stale result.
type Result struct {
	Generation   uint64            `json:"generation"`
	DataVersion  uint64            `json:"data_version"`
	Zoom         int               `json:"zoom"`
	Level        int               `json:"level"`
	MapMode      glyph.MapMode     `json:"map_mode"`
	DisplayMode  glyph.DisplayMode `json:"display_mode"`
	Glyphs       []glyph.MapGlyph  `json:"glyphs"`
	Diversity    int               `json:"diversity"`
	Distribution map[int]int       `json:"distribution"`
}

// ResultSubject is the NATS subject results are published on.
const ResultSubject = "map.result"

// Publisher is the subset of a NATS connection the worker needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Config holds the tunables of the clustering pipeline.
type Config struct {
	// Threshold is the merge distance in projected pixels.
	Threshold float64
	// Radius is the glyph circle radius in pixels.
	Radius float64
	// SymbolBudget caps distinct symbols per glyph before the hierarchy
	// is coarsened.
	SymbolBudget int
	// Publisher, when set, receives each Result as JSON.
	Publisher Publisher
}

// DefaultThreshold is the merge distance used when none is configured.
const DefaultThreshold = 50.0

// Worker runs the clustering and glyph pipeline off the interactive
// path. Messages are coalesced: when several arrive while a pass is
// running, the worker drains them all and recomputes once from the
// latest state. Arrival order across message types is therefore
// irrelevant, only the final state matters.
type Worker struct {
	cfg   Config
	inbox chan Message

	mu       sync.RWMutex
	latest   *Result
	results  chan Result
	gen      uint64
	hasData  bool
	data     dataset.MapData
	zoom     int
	mapMode  glyph.MapMode
	display  glyph.DisplayMode
}

// New creates a worker. Start must be called before sending messages.
func New(cfg Config) *Worker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Radius <= 0 {
		cfg.Radius = glyph.DefaultRadius
	}
	if cfg.SymbolBudget <= 0 {
		cfg.SymbolBudget = glyph.SymbolBudget
	}
	return &Worker{
		cfg:     cfg,
		inbox:   make(chan Message, 64),
		results: make(chan Result, 1),
		mapMode: glyph.MapModeClustered,
		display: glyph.DisplayReligion,
	}
}

// Send queues a message for the worker.
func (w *Worker) Send(msg Message) {
	w.inbox <- msg
}

// Results returns a latest-wins channel of results: a slow consumer
// only ever sees the newest pass.
func (w *Worker) Results() <-chan Result {
	return w.results
}

// Latest returns the most recent result, or nil before the first pass.
func (w *Worker) Latest() *Result {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.latest
}

// Start runs the worker loop until the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *Worker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-w.inbox:
			w.apply(msg)
			w.drain()
			w.recompute()
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case msg := <-w.inbox:
			w.apply(msg)
		default:
			return
		}
	}
}

func (w *Worker) apply(msg Message) {
	switch msg.Type {
	case MsgSetData, MsgSetFilter:
		w.data = msg.Data
		w.hasData = true
	case MsgSetZoomLevel:
		w.zoom = msg.Zoom
	case MsgSetMapMode:
		w.mapMode = msg.MapMode
	case MsgSetDisplayMode:
		w.display = msg.DisplayMode
	default:
		log.Printf("Unknown worker message type %q, ignoring", msg.Type)
	}
}

func (w *Worker) recompute() {
	if !w.hasData {
		return
	}
	result := w.computePass()

	w.mu.Lock()
	w.gen++
	result.Generation = w.gen
	w.latest = &result
	w.mu.Unlock()

	// Latest-wins hand-off: replace an unconsumed result.
	select {
	case w.results <- result:
	default:
		select {
		case <-w.results:
		default:
		}
		w.results <- result
	}

	if w.cfg.Publisher != nil {
		payload, err := json.Marshal(result)
		if err != nil {
			log.Printf("Failed to marshal worker result: %v", err)
			return
		}
		if err := w.cfg.Publisher.Publish(ResultSubject, payload); err != nil {
			log.Printf("Failed to publish worker result: %v", err)
		}
	}
}

// computePass projects the displayable places, clusters them, trims the
// hierarchy to the symbol budget and builds one glyph per cluster.
func (w *Worker) computePass() Result {
	points := w.projectPlaces()

	var clusters []cluster.Cluster
	if w.mapMode == glyph.MapModeCluttered {
		clusters = cluster.Cluttered(points)
	} else {
		clusters = cluster.Agglomerate(points, w.cfg.Threshold)
	}

	builder := &glyph.Builder{
		Hierarchy:        w.data.Hierarchy,
		Places:           w.data.Places,
		TuplesByPlace:    w.data.TuplesByPlace,
		ShowFiltered:     w.data.View.ShowFiltered,
		ConfidenceAspect: w.data.View.ConfidenceAspect,
		Radius:           w.cfg.Radius,
	}
	level := builder.TrimHierarchy(clusters, w.cfg.SymbolBudget)

	glyphs := make([]glyph.MapGlyph, 0, len(clusters))
	for _, c := range clusters {
		glyphs = append(glyphs, builder.BuildGlyph(c, level, w.display, w.mapMode))
	}
	distribution := w.tupleDistribution()

	return Result{
		DataVersion:  w.data.Version,
		Zoom:         w.zoom,
		Level:        level,
		MapMode:      w.mapMode,
		DisplayMode:  w.display,
		Glyphs:       glyphs,
		Diversity:    len(distribution),
		Distribution: distribution,
	}
}

// projectPlaces turns each displayable, geolocated place into one unit
// point in projected pixel space. A place is displayable when it has an
// active tuple, or any tuple at all when filtered evidence is shown.
func (w *Worker) projectPlaces() []cluster.Point {
	var points []cluster.Point
	for placeID, tuples := range w.data.TuplesByPlace {
		place := w.data.Places[placeID]
		if place == nil || place.Geoloc == nil {
			continue
		}
		if !w.displayable(tuples) {
			continue
		}
		x, y := cluster.Project(place.Geoloc.Lat, place.Geoloc.Lng, w.zoom)
		points = append(points, cluster.Point{X: x, Y: y, PlaceID: placeID, Count: 1})
	}
	return points
}

func (w *Worker) displayable(tuples []*evidence.Tuple) bool {
	if w.data.View.ShowFiltered {
		return len(tuples) > 0
	}
	for _, t := range tuples {
		if t.Active {
			return true
		}
	}
	return false
}

// tupleDistribution counts displayed tuples per religion across the
// whole dataset snapshot.
func (w *Worker) tupleDistribution() map[int]int {
	dist := make(map[int]int)
	for _, tuples := range w.data.TuplesByPlace {
		for _, t := range tuples {
			if t.Active || w.data.View.ShowFiltered {
				dist[t.ReligionID]++
			}
		}
	}
	return dist
}
