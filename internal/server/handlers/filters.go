// internal/server/handlers/filters.go

package handlers

import (
	"encoding/json"
	"net/http"

	"evimap/internal/dataset"
	"evimap/internal/domain/evidence"
	"evimap/internal/domain/filter"
)

// FilterHandler handles filter mutation requests
type FilterHandler struct {
	dataset *dataset.Dataset
}

// NewFilterHandler creates a new filter handler
func NewFilterHandler(ds *dataset.Dataset) *FilterHandler {
	return &FilterHandler{
		dataset: ds,
	}
}

// GetFilters returns the current filter set in its exportable form
func (h *FilterHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.dataset.ExportState().Filters)
}

// SetReligion replaces the religion filter. The body is the exportable
// form: true, or a tagged simple/complex object.
func (h *FilterHandler) SetReligion(w http.ResponseWriter, r *http.Request) {
	var body filter.ExportableReligion
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid religion filter", err)
		return
	}

	h.dataset.SetReligionFilter(body.Filter)
	respondWithResult(w, nil)
}

// SetTime replaces the time filter. The body is null or {start, end}.
func (h *FilterHandler) SetTime(w http.ResponseWriter, r *http.Request) {
	var body *struct {
		Start int `json:"start"`
		End   int `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid time filter", err)
		return
	}

	var f *filter.TimeFilter
	if body != nil {
		if body.Start > body.End {
			respondWithError(w, http.StatusBadRequest, "Time filter start after end", nil)
			return
		}
		f = &filter.TimeFilter{Start: body.Start, End: body.End}
	}

	h.dataset.SetTimeFilter(f)
	respondWithResult(w, nil)
}

// SetSources replaces the source filter. The body is null or an id array.
func (h *FilterHandler) SetSources(w http.ResponseWriter, r *http.Request) {
	var ids []int
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid source filter", err)
		return
	}

	h.dataset.SetSourceFilter(filter.ParseIDSet(ids))
	respondWithResult(w, nil)
}

// SetConfidence replaces the confidence filter. The body maps aspect
// keys to permitted values or null.
func (h *FilterHandler) SetConfidence(w http.ResponseWriter, r *http.Request) {
	var raw map[string][]string
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid confidence filter", err)
		return
	}

	aspects, err := filter.ParseConfidence(raw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	h.dataset.SetConfidenceFilter(aspects)
	respondWithResult(w, nil)
}

// SetTags replaces the tag filter. The body is true, an id, or an id
// array.
func (h *FilterHandler) SetTags(w http.ResponseWriter, r *http.Request) {
	var body filter.ExportableTags
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid tag filter", err)
		return
	}

	h.dataset.SetTagsFilter(body.Filter)
	respondWithResult(w, nil)
}

// SetPlaces replaces the place filter. The body is null or an id array.
func (h *FilterHandler) SetPlaces(w http.ResponseWriter, r *http.Request) {
	var ids []int
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid place filter", err)
		return
	}

	h.dataset.SetPlaceFilter(filter.ParseIDSet(ids))
	respondWithResult(w, nil)
}

// SetLocation replaces the location filter. The body is null or a
// polygon of at least 3 coordinates.
func (h *FilterHandler) SetLocation(w http.ResponseWriter, r *http.Request) {
	var polygon []evidence.Coordinate
	if err := json.NewDecoder(r.Body).Decode(&polygon); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid location filter", err)
		return
	}

	if polygon == nil {
		h.dataset.SetMapFilter(nil)
	} else {
		if len(polygon) < 3 {
			respondWithError(w, http.StatusBadRequest, "Location polygon needs at least 3 vertices", nil)
			return
		}
		h.dataset.SetMapFilter(&filter.LocationFilter{Polygon: polygon})
	}
	respondWithResult(w, nil)
}
