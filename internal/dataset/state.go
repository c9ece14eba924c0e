// internal/dataset/state.go

package dataset

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"evimap/internal/domain/evidence"
	"evimap/internal/domain/filter"
	"evimap/internal/glyph"
)

// StateVersion is the persisted state format version. Imports carrying a
// different version are rejected.
const StateVersion = 1

var validate = validator.New()

// State is the full persisted session: all filters plus view modes. It
// round-trips through JSON for export, import and history snapshots.
type State struct {
	Filters          StateFilters  `json:"filters"`
	Metadata         StateMetadata `json:"metadata"`
	ShowFiltered     bool          `json:"show-filtered"`
	DisplayMode      string        `json:"display-mode" validate:"oneof=religion confidence"`
	TimelineMode     string        `json:"timeline-mode" validate:"oneof=qualitative quantitative"`
	MapMode          string        `json:"map-mode" validate:"oneof=clustered cluttered"`
	SourceSortMode   string        `json:"source-sort-mode" validate:"oneof=name count"`
	ConfidenceAspect string        `json:"confidence-aspect" validate:"oneof=time_confidence religion_confidence location_confidence place_attribution_confidence source_confidences interpretation_confidence"`
	MapState         MapState      `json:"map-state"`
}

// StateFilters is the wire form of the filter set. Absent or null fields
// mean "no restriction" for every filter.
type StateFilters struct {
	Religion   filter.ExportableReligion `json:"religion"`
	Time       *[2]int                   `json:"time"`
	Sources    []int                     `json:"sources"`
	Confidence map[string][]string       `json:"confidence"`
	Tags       filter.ExportableTags     `json:"tags"`
	Location   []evidence.Coordinate     `json:"location"`
	Places     []int                     `json:"places"`
}

// StateMetadata describes where an exported state came from.
type StateMetadata struct {
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
	Source        string    `json:"source"`
	EvidenceCount int       `json:"evidenceCount"`
	Version       int       `json:"version" validate:"required"`
}

// ExportState captures the current filters and view modes.
func (d *Dataset) ExportState() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.exportStateLocked()
}

func (d *Dataset) exportStateLocked() State {
	f := d.filters
	v := d.view

	var timeFilter *[2]int
	if f.Time != nil {
		timeFilter = &[2]int{f.Time.Start, f.Time.End}
	}
	var location []evidence.Coordinate
	if f.Location != nil {
		location = f.Location.Polygon
	}

	return State{
		Filters: StateFilters{
			Religion:   filter.ExportableReligion{Filter: f.Religion},
			Time:       timeFilter,
			Sources:    filter.ExportIDSet(f.Sources),
			Confidence: filter.ExportConfidence(f.Confidence),
			Tags:       filter.ExportableTags{Filter: f.Tags},
			Location:   location,
			Places:     filter.ExportIDSet(f.Places),
		},
		Metadata: StateMetadata{
			CreatedBy:     "evimap",
			CreatedAt:     time.Now().UTC(),
			Source:        "session export",
			EvidenceCount: len(d.tuples),
			Version:       StateVersion,
		},
		ShowFiltered:     v.ShowFiltered,
		DisplayMode:      string(v.DisplayMode),
		TimelineMode:     v.TimelineMode,
		MapMode:          string(v.MapMode),
		SourceSortMode:   v.SourceSortMode,
		ConfidenceAspect: string(v.ConfidenceAspect),
		MapState:         v.MapState,
	}
}

func (d *Dataset) exportStateJSON() json.RawMessage {
	state := d.ExportState()
	payload, err := json.Marshal(state)
	if err != nil {
		return json.RawMessage("{}")
	}
	return payload
}

// ImportState parses, validates and applies a full persisted state. The
// apply is all or nothing: any parse or validation failure returns an
// error before a single filter has moved, and the whole batch lands as
// one suspended mutation with a single change notification.
func (d *Dataset) ImportState(data []byte) error {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("state import: %w", err)
	}
	if err := validate.Struct(state); err != nil {
		return fmt.Errorf("state import: %w", err)
	}
	if state.Metadata.Version != StateVersion {
		return fmt.Errorf("state import: unsupported version %d", state.Metadata.Version)
	}

	confidence, err := filter.ParseConfidence(state.Filters.Confidence)
	if err != nil {
		return fmt.Errorf("state import: %w", err)
	}
	if len(state.Filters.Location) > 0 && len(state.Filters.Location) < 3 {
		return fmt.Errorf("state import: location polygon needs at least 3 vertices")
	}

	var timeFilter *filter.TimeFilter
	if state.Filters.Time != nil {
		if state.Filters.Time[0] > state.Filters.Time[1] {
			return fmt.Errorf("state import: time filter start after end")
		}
		timeFilter = &filter.TimeFilter{Start: state.Filters.Time[0], End: state.Filters.Time[1]}
	}
	var location *filter.LocationFilter
	if state.Filters.Location != nil {
		location = &filter.LocationFilter{Polygon: state.Filters.Location}
	}

	d.SuspendEvents()
	d.SetReligionFilter(state.Filters.Religion.Filter)
	d.SetTimeFilter(timeFilter)
	d.SetSourceFilter(filter.ParseIDSet(state.Filters.Sources))
	d.SetConfidenceFilter(confidence)
	d.SetTagsFilter(state.Filters.Tags.Filter)
	d.SetPlaceFilter(filter.ParseIDSet(state.Filters.Places))
	d.SetMapFilter(location)
	d.SetShowFiltered(state.ShowFiltered)
	d.SetDisplayMode(glyph.DisplayMode(state.DisplayMode))
	d.SetTimelineMode(state.TimelineMode)
	d.SetMapMode(glyph.MapMode(state.MapMode))
	d.SetSourceSortMode(state.SourceSortMode)
	d.SetConfidenceAspect(evidence.Aspect(state.ConfidenceAspect))
	d.SetMapState(state.MapState)
	d.ResumeEvents()
	return nil
}

// ApplyState applies a state snapshot without recording a new history
// entry. Used when navigating the session history, where the snapshot
// came from ExportState and pushing again would corrupt the tree.
func (d *Dataset) ApplyState(data json.RawMessage) error {
	d.mu.Lock()
	d.suppressHistory = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.suppressHistory = false
		d.mu.Unlock()
	}()
	return d.ImportState(data)
}
