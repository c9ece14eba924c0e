// internal/dataset/dataset.go

package dataset

import (
	"encoding/json"
	"log"
	"strings"
	"sync"

	"evimap/internal/domain/evidence"
	"evimap/internal/domain/filter"
	"evimap/internal/glyph"
	"evimap/internal/history"
)

// ChangeScope tags a change notification with the part of the dataset
// state that moved.
type ChangeScope string

const (
	ScopeReligion   ChangeScope = "religion"
	ScopeTime       ChangeScope = "time"
	ScopeSources    ChangeScope = "sources"
	ScopeConfidence ChangeScope = "confidence"
	ScopeTags       ChangeScope = "tags"
	ScopePlaceSet   ChangeScope = "place-set"
	ScopeLocation   ChangeScope = "location"
	ScopeViewMode   ChangeScope = "view-mode"
	ScopeData       ChangeScope = "data"
)

// Change describes one (possibly batched) dataset mutation.
type Change struct {
	Scopes      []ChangeScope `json:"scopes"`
	Description string        `json:"description"`
	Version     uint64        `json:"version"`
}

// Listener receives change notifications after recomputation completes.
type Listener func(Change)

// Publisher is the subset of a NATS connection the dataset needs to
// broadcast change events.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// ChangeSubject is the NATS subject dataset changes are published on.
const ChangeSubject = "dataset.changed"

// Filters bundles the six independently composable filters.
type Filters struct {
	Religion   filter.ReligionFilter
	Time       *filter.TimeFilter
	Sources    filter.SourceFilter
	Confidence filter.ConfidenceAspects
	Tags       filter.TagFilter
	Places     filter.PlaceFilter
	Location   *filter.LocationFilter
}

// DefaultFilters returns the unrestricted filter set.
func DefaultFilters() Filters {
	return Filters{
		Religion:   filter.AllReligions{},
		Confidence: filter.DefaultConfidenceAspects(),
		Tags:       filter.AllTags{},
	}
}

// MapState is the persisted map viewport.
type MapState struct {
	Zoom      int     `json:"zoom"`
	CenterLat float64 `json:"center_lat"`
	CenterLng float64 `json:"center_lng"`
}

// ViewState bundles the view-mode toggles persisted alongside filters.
type ViewState struct {
	ShowFiltered     bool
	DisplayMode      glyph.DisplayMode
	TimelineMode     string
	MapMode          glyph.MapMode
	SourceSortMode   string
	ConfidenceAspect evidence.Aspect
	MapState         MapState
}

// DefaultViewState returns the view modes a fresh session starts with.
func DefaultViewState() ViewState {
	return ViewState{
		DisplayMode:      glyph.DisplayReligion,
		TimelineMode:     "qualitative",
		MapMode:          glyph.MapModeClustered,
		SourceSortMode:   "name",
		ConfidenceAspect: evidence.AspectReligion,
	}
}

// Bundle is the startup feed: all evidence records and their referenced
// entities, loaded once.
type Bundle struct {
	Tuples    []*evidence.Tuple
	Places    []*evidence.Place
	Hierarchy *evidence.Hierarchy
	Tags      []*evidence.Tag
	Sources   []*evidence.Source
}

// Options configures a Dataset.
type Options struct {
	// BrushOnlyActive makes the brushing/linking lookup tables cover
	// only active tuples instead of all tuples.
	BrushOnlyActive bool

	// Publisher, when set, receives a JSON Change on every
	// non-suspended mutation.
	Publisher Publisher
}

// Dataset is the central in-memory store of all evidence tuples. It is
// the single owner and mutator of the per-tuple active flags and of the
// lookup tables; all other components receive read-only snapshots.
type Dataset struct {
	mu sync.RWMutex

	tuples    []*evidence.Tuple
	places    map[int]*evidence.Place
	hierarchy *evidence.Hierarchy
	tags      map[int]*evidence.Tag
	sources   map[int]*evidence.Source

	tagIDsForTuple map[int][]int

	filters   Filters
	view      ViewState
	lookup    LookupTables
	version   uint64
	suspended bool

	pendingScopes   []ChangeScope
	changelog       []string
	suppressHistory bool

	listeners []Listener
	publisher Publisher
	history   *history.Tree

	brushOnlyActive bool
}

// New builds a dataset from a loaded bundle and runs the initial
// recomputation. Tuples referencing unknown places are a data-integrity
// problem: they are logged and excluded from all derived structures.
func New(b Bundle, opts Options) *Dataset {
	d := &Dataset{
		places:          make(map[int]*evidence.Place, len(b.Places)),
		hierarchy:       b.Hierarchy,
		tags:            make(map[int]*evidence.Tag, len(b.Tags)),
		sources:         make(map[int]*evidence.Source, len(b.Sources)),
		tagIDsForTuple:  make(map[int][]int),
		filters:         DefaultFilters(),
		view:            DefaultViewState(),
		publisher:       opts.Publisher,
		brushOnlyActive: opts.BrushOnlyActive,
	}
	if d.hierarchy == nil {
		d.hierarchy = evidence.NewHierarchy(nil)
	}

	for _, p := range b.Places {
		d.places[p.ID] = p
	}
	for _, s := range b.Sources {
		d.sources[s.ID] = s
	}
	for _, tag := range b.Tags {
		d.tags[tag.ID] = tag
		for _, tupleID := range tag.TupleIDs {
			d.tagIDsForTuple[tupleID] = append(d.tagIDsForTuple[tupleID], tag.ID)
		}
	}

	countByReligion := make(map[int]int)
	for _, t := range b.Tuples {
		if _, ok := d.places[t.PlaceID]; !ok {
			log.Printf("Evidence tuple %d references unknown place %d, skipping", t.TupleID, t.PlaceID)
			continue
		}
		d.tuples = append(d.tuples, t)
		countByReligion[t.ReligionID]++
	}
	d.hierarchy.AnnotateDataCounts(countByReligion)

	d.mu.Lock()
	d.recomputeLocked()
	d.mu.Unlock()

	d.history = history.New("initial state", d.exportStateJSON())
	return d
}

// OnChange registers a listener for change notifications.
func (d *Dataset) OnChange(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// History exposes the undo tree.
func (d *Dataset) History() *history.Tree {
	return d.history
}

// Filter setters. Each replaces one filter wholesale, recomputes the
// active flags and lookup tables, and notifies listeners, unless events
// are suspended.

func (d *Dataset) SetReligionFilter(f filter.ReligionFilter) {
	if f == nil {
		f = filter.AllReligions{}
	}
	d.mutate(ScopeReligion, "set religion filter", func() { d.filters.Religion = f })
}

func (d *Dataset) SetTimeFilter(f *filter.TimeFilter) {
	d.mutate(ScopeTime, "set time filter", func() { d.filters.Time = f })
}

func (d *Dataset) SetSourceFilter(f filter.SourceFilter) {
	d.mutate(ScopeSources, "set source filter", func() { d.filters.Sources = f })
}

func (d *Dataset) SetConfidenceFilter(f filter.ConfidenceAspects) {
	if f == nil {
		f = filter.DefaultConfidenceAspects()
	}
	d.mutate(ScopeConfidence, "set confidence filter", func() { d.filters.Confidence = f })
}

func (d *Dataset) SetTagsFilter(f filter.TagFilter) {
	if f == nil {
		f = filter.AllTags{}
	}
	d.mutate(ScopeTags, "set tag filter", func() { d.filters.Tags = f })
}

func (d *Dataset) SetPlaceFilter(f filter.PlaceFilter) {
	d.mutate(ScopePlaceSet, "set place filter", func() { d.filters.Places = f })
}

func (d *Dataset) SetMapFilter(f *filter.LocationFilter) {
	d.mutate(ScopeLocation, "set location filter", func() { d.filters.Location = f })
}

// View-mode setters.

func (d *Dataset) SetShowFiltered(v bool) {
	d.mutate(ScopeViewMode, "toggle filtered evidence display", func() { d.view.ShowFiltered = v })
}

func (d *Dataset) SetDisplayMode(m glyph.DisplayMode) {
	d.mutate(ScopeViewMode, "set display mode", func() { d.view.DisplayMode = m })
}

func (d *Dataset) SetMapMode(m glyph.MapMode) {
	d.mutate(ScopeViewMode, "set map mode", func() { d.view.MapMode = m })
}

func (d *Dataset) SetTimelineMode(m string) {
	d.mutate(ScopeViewMode, "set timeline mode", func() { d.view.TimelineMode = m })
}

func (d *Dataset) SetSourceSortMode(m string) {
	d.mutate(ScopeViewMode, "set source sort mode", func() { d.view.SourceSortMode = m })
}

func (d *Dataset) SetConfidenceAspect(a evidence.Aspect) {
	d.mutate(ScopeViewMode, "set confidence aspect", func() { d.view.ConfidenceAspect = a })
}

func (d *Dataset) SetMapState(s MapState) {
	d.mutate(ScopeViewMode, "move map viewport", func() { d.view.MapState = s })
}

// SuspendEvents defers recomputation and listener notification until
// ResumeEvents. Used to bracket full-state imports so that one batch of
// setter calls triggers a single recomputation pass.
func (d *Dataset) SuspendEvents() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.suspended = true
}

// ResumeEvents runs the single deferred recomputation and emits one
// combined change carrying the accumulated changelog.
func (d *Dataset) ResumeEvents() {
	d.mu.Lock()
	d.suspended = false
	if len(d.pendingScopes) == 0 {
		d.mu.Unlock()
		return
	}
	scopes := d.pendingScopes
	description := strings.Join(d.changelog, "; ")
	d.pendingScopes = nil
	d.changelog = nil

	d.recomputeLocked()
	change := Change{Scopes: dedupeScopes(scopes), Description: description, Version: d.version}
	listeners := append([]Listener(nil), d.listeners...)
	d.mu.Unlock()

	d.emit(change, listeners)
}

func (d *Dataset) mutate(scope ChangeScope, description string, apply func()) {
	d.mu.Lock()
	apply()
	if d.suspended {
		d.pendingScopes = append(d.pendingScopes, scope)
		d.changelog = append(d.changelog, description)
		d.mu.Unlock()
		return
	}

	d.recomputeLocked()
	change := Change{Scopes: []ChangeScope{scope}, Description: description, Version: d.version}
	listeners := append([]Listener(nil), d.listeners...)
	d.mu.Unlock()

	d.emit(change, listeners)
}

func (d *Dataset) emit(change Change, listeners []Listener) {
	d.mu.RLock()
	suppress := d.suppressHistory
	d.mu.RUnlock()
	if d.history != nil && !suppress {
		d.history.Push(change.Description, d.exportStateJSON())
	}
	if d.publisher != nil {
		if payload, err := json.Marshal(change); err == nil {
			if err := d.publisher.Publish(ChangeSubject, payload); err != nil {
				log.Printf("Failed to publish dataset change: %v", err)
			}
		}
	}
	for _, l := range listeners {
		l(change)
	}
}

// recomputeLocked re-derives every tuple's active flag and rebuilds the
// lookup tables. Must hold the write lock.
func (d *Dataset) recomputeLocked() {
	d.updatePlacesActiveLocked()
	d.rebuildLookupTablesLocked()
	d.version++
}

// updatePlacesActiveLocked recomputes the active flag of every tuple.
//
// With a simple (or absent) religion filter one pass suffices: active is
// the conjunction of the six predicates. The complex religion filter has
// place-level semantics ("this place has evidence for religion A and
// religion B together") and needs two passes: no single tuple can know
// whether its place qualifies until all of the place's tuples have been
// seen.
func (d *Dataset) updatePlacesActiveLocked() {
	complex, isComplex := d.filters.Religion.(filter.ComplexReligionFilter)
	if !isComplex {
		for _, t := range d.tuples {
			t.Active = d.tuplePredicateLocked(t)
		}
		return
	}

	// Pass 1: evaluate the per-tuple predicate and gather each place's
	// set of predicate-passing religion ids.
	passed := make(map[int]bool, len(d.tuples))
	religionsByPlace := make(map[int]map[int]bool)
	for _, t := range d.tuples {
		ok := d.tuplePredicateLocked(t)
		passed[t.TupleID] = ok
		if !ok {
			continue
		}
		set, found := religionsByPlace[t.PlaceID]
		if !found {
			set = make(map[int]bool)
			religionsByPlace[t.PlaceID] = set
		}
		set[t.ReligionID] = true
	}

	// Pass 2: a tuple is active iff its own predicate passed and its
	// place satisfies some full filter row.
	placeOK := make(map[int]bool, len(religionsByPlace))
	for placeID, religions := range religionsByPlace {
		placeOK[placeID] = complex.MatchesPlace(religions)
	}
	for _, t := range d.tuples {
		t.Active = passed[t.TupleID] && placeOK[t.PlaceID]
	}
}

// tuplePredicateLocked is the per-tuple conjunction of all filters. For
// the complex religion filter this covers only the tuple-level part.
func (d *Dataset) tuplePredicateLocked(t *evidence.Tuple) bool {
	if !d.filters.Confidence.Matches(t) {
		return false
	}
	if !d.filters.Religion.MatchesTuple(t) {
		return false
	}
	if !d.filters.Time.Matches(t.TimeSpan) {
		return false
	}
	if !d.filters.Sources.Matches(t) {
		return false
	}
	if !d.filters.Tags.Matches(d.tagIDsForTuple[t.TupleID]) {
		return false
	}
	if !d.filters.Places.Matches(t.PlaceID) {
		return false
	}
	if !d.filters.Location.Matches(d.places[t.PlaceID]) {
		return false
	}
	return true
}

func dedupeScopes(scopes []ChangeScope) []ChangeScope {
	seen := make(map[ChangeScope]bool, len(scopes))
	out := make([]ChangeScope, 0, len(scopes))
	for _, s := range scopes {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Accessors. All return snapshots or values safe to read concurrently.

// Version returns the recomputation counter, bumped on every rebuild.
func (d *Dataset) Version() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Filters returns the current filter set.
func (d *Dataset) Filters() Filters {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.filters
}

// View returns the current view state.
func (d *Dataset) View() ViewState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.view
}

// Hierarchy returns the religion hierarchy.
func (d *Dataset) Hierarchy() *evidence.Hierarchy {
	return d.hierarchy
}

// Place returns a place by id, or nil.
func (d *Dataset) Place(id int) *evidence.Place {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.places[id]
}

// TupleCount returns total and active tuple counts.
func (d *Dataset) TupleCount() (total, active int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	total = len(d.tuples)
	for _, t := range d.tuples {
		if t.Active {
			active++
		}
	}
	return total, active
}

// Lookup returns the current lookup tables. The returned struct is
// replaced, never mutated in place, so holding onto it is safe.
func (d *Dataset) Lookup() LookupTables {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lookup
}
