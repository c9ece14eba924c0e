// internal/server/handlers/lookup.go

package handlers

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"evimap/internal/dataset"
)

// LookupHandler answers brushing/linking queries from the lookup tables
type LookupHandler struct {
	dataset *dataset.Dataset
}

// NewLookupHandler creates a new lookup handler
func NewLookupHandler(ds *dataset.Dataset) *LookupHandler {
	return &LookupHandler{
		dataset: ds,
	}
}

type relatedEntities struct {
	TupleIDs    []int `json:"tuple_ids"`
	PlaceIDs    []int `json:"place_ids"`
	ReligionIDs []int `json:"religion_ids"`
	SourceIDs   []int `json:"source_ids"`
}

// ByPlace returns everything related to one place
func (h *LookupHandler) ByPlace(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid place id", err)
		return
	}

	lk := h.dataset.Lookup()
	respondWithJSON(w, http.StatusOK, relatedEntities{
		TupleIDs:    lk.TupleIDsForPlaceID[id],
		PlaceIDs:    []int{id},
		ReligionIDs: setToSorted(lk.ReligionIDsForPlaceID[id]),
		SourceIDs:   setToSorted(lk.SourceIDsForPlaceID[id]),
	})
}

// ByReligion returns everything related to one religion
func (h *LookupHandler) ByReligion(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid religion id", err)
		return
	}

	lk := h.dataset.Lookup()
	respondWithJSON(w, http.StatusOK, relatedEntities{
		TupleIDs:    lk.TupleIDsForReligionID[id],
		PlaceIDs:    setToSorted(lk.PlaceIDsForReligionID[id]),
		ReligionIDs: []int{id},
		SourceIDs:   setToSorted(lk.SourceIDsForReligionID[id]),
	})
}

// BySource returns everything related to one source
func (h *LookupHandler) BySource(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid source id", err)
		return
	}

	lk := h.dataset.Lookup()
	respondWithJSON(w, http.StatusOK, relatedEntities{
		TupleIDs:    lk.TupleIDsForSourceID[id],
		PlaceIDs:    setToSorted(lk.PlaceIDsForSourceID[id]),
		ReligionIDs: setToSorted(lk.ReligionIDsForSourceID[id]),
		SourceIDs:   []int{id},
	})
}

// ByTag returns the tuples carrying one tag
func (h *LookupHandler) ByTag(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid tag id", err)
		return
	}

	lk := h.dataset.Lookup()
	respondWithJSON(w, http.StatusOK, map[string][]int{
		"tuple_ids": lk.TupleIDsForTagID[id],
	})
}

func idParam(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

func setToSorted(set map[int]bool) []int {
	if len(set) == 0 {
		return nil
	}
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
