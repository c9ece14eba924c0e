// internal/worker/worker_test.go

package worker

import (
	"context"
	"testing"
	"time"

	"evimap/internal/dataset"
	"evimap/internal/domain/evidence"
	"evimap/internal/glyph"
)

func intPtr(v int) *int { return &v }

func testMapData() dataset.MapData {
	root := &evidence.ReligionNode{
		ID: 0,
		Children: []*evidence.ReligionNode{
			{ID: 1, Name: "One", Abbreviation: "O", Color: "#111111"},
			{ID: 2, Name: "Two", Abbreviation: "T", Color: "#222222"},
		},
	}
	places := map[int]*evidence.Place{
		1: {ID: 1, Name: "Alpha", Geoloc: &evidence.Coordinate{Lat: 0, Lng: 0}},
		2: {ID: 2, Name: "Beta", Geoloc: &evidence.Coordinate{Lat: 0, Lng: 0.001}},
		3: {ID: 3, Name: "Gamma", Geoloc: &evidence.Coordinate{Lat: 45, Lng: 90}},
		4: {ID: 4, Name: "Unplaced"},
	}
	byPlace := map[int][]*evidence.Tuple{
		1: {{TupleID: 10, PlaceID: 1, ReligionID: 1, Active: true, TimeSpan: &evidence.TimeSpan{Start: intPtr(100), End: intPtr(200)}}},
		2: {{TupleID: 11, PlaceID: 2, ReligionID: 2, Active: true}},
		3: {{TupleID: 12, PlaceID: 3, ReligionID: 1, Active: false}},
		4: {{TupleID: 13, PlaceID: 4, ReligionID: 2, Active: true}},
	}
	return dataset.MapData{
		Places:        places,
		TuplesByPlace: byPlace,
		Hierarchy:     evidence.NewHierarchy(root),
		View:          dataset.ViewState{ConfidenceAspect: evidence.AspectReligion},
		Version:       7,
	}
}

func TestRecomputeClustersNearbyPlaces(t *testing.T) {
	w := New(Config{})
	w.apply(Message{Type: MsgSetData, Data: testMapData()})
	w.apply(Message{Type: MsgSetZoomLevel, Zoom: 2})
	w.recompute()

	r := w.Latest()
	if r == nil {
		t.Fatal("Expected a result after recompute")
	}
	// Places 1 and 2 are ~meters apart and merge at zoom 2; place 3 is
	// inactive and place 4 has no geolocation, so neither produces a
	// point.
	if len(r.Glyphs) != 1 {
		t.Fatalf("Expected 1 glyph, got %d", len(r.Glyphs))
	}
	if r.DataVersion != 7 {
		t.Errorf("Expected data version 7, got %d", r.DataVersion)
	}
	if r.Zoom != 2 {
		t.Errorf("Expected zoom 2, got %d", r.Zoom)
	}
}

func TestShowFilteredIncludesInactivePlaces(t *testing.T) {
	data := testMapData()
	data.View.ShowFiltered = true

	w := New(Config{})
	w.apply(Message{Type: MsgSetData, Data: data})
	w.recompute()

	r := w.Latest()
	// Place 3 now shows despite having no active evidence. At zoom 0 it
	// is far from places 1 and 2, so it clusters alone.
	if len(r.Glyphs) != 2 {
		t.Fatalf("Expected 2 glyphs with filtered evidence shown, got %d", len(r.Glyphs))
	}
}

func TestGenerationMonotonic(t *testing.T) {
	w := New(Config{})
	w.apply(Message{Type: MsgSetData, Data: testMapData()})

	w.recompute()
	first := w.Latest().Generation
	w.recompute()
	second := w.Latest().Generation

	if second <= first {
		t.Errorf("Expected generations to increase, got %d then %d", first, second)
	}
}

func TestDistributionCountsActiveTuples(t *testing.T) {
	w := New(Config{})
	w.apply(Message{Type: MsgSetData, Data: testMapData()})
	w.recompute()

	r := w.Latest()
	if r.Distribution[1] != 1 || r.Distribution[2] != 2 {
		t.Errorf("Expected distribution {1:1 2:2}, got %v", r.Distribution)
	}
	if r.Diversity != 2 {
		t.Errorf("Expected diversity 2, got %d", r.Diversity)
	}
}

func TestClutteredModeSkipsMerging(t *testing.T) {
	w := New(Config{})
	w.apply(Message{Type: MsgSetData, Data: testMapData()})
	w.apply(Message{Type: MsgSetMapMode, MapMode: glyph.MapModeCluttered})
	w.apply(Message{Type: MsgSetZoomLevel, Zoom: 10})
	w.recompute()

	r := w.Latest()
	if len(r.Glyphs) != 2 {
		t.Fatalf("Expected 2 singleton glyphs in cluttered mode, got %d", len(r.Glyphs))
	}
	for _, g := range r.Glyphs {
		if len(g.PlaceIDs) != 1 {
			t.Errorf("Expected singleton glyph, got places %v", g.PlaceIDs)
		}
	}
}

func TestWorkerLoopCoalesces(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(Config{})
	w.Start(ctx)

	w.Send(Message{Type: MsgSetData, Data: testMapData()})
	w.Send(Message{Type: MsgSetZoomLevel, Zoom: 3})
	w.Send(Message{Type: MsgSetDisplayMode, DisplayMode: glyph.DisplayConfidence})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case r := <-w.Results():
			// Intermediate results for superseded state may arrive
			// first; the final one reflects every queued message.
			if r.Zoom == 3 && r.DisplayMode == glyph.DisplayConfidence {
				return
			}
		case <-deadline:
			t.Fatal("Timed out waiting for a result covering all queued messages")
		}
	}
}
