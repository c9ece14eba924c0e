// internal/server/handlers/map.go

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"evimap/internal/cache"
	"evimap/internal/dataset"
	"evimap/internal/domain/evidence"
	"evimap/internal/glyph"
	"evimap/internal/worker"
)

// MapHandler serves clustering results and view-mode mutations
type MapHandler struct {
	dataset *dataset.Dataset
	worker  *worker.Worker
	cache   *cache.MemoryCache
}

// NewMapHandler creates a new map handler
func NewMapHandler(ds *dataset.Dataset, w *worker.Worker, c *cache.MemoryCache) *MapHandler {
	return &MapHandler{
		dataset: ds,
		worker:  w,
		cache:   c,
	}
}

// GetMap returns the latest clustering result
func (h *MapHandler) GetMap(w http.ResponseWriter, r *http.Request) {
	result := h.worker.Latest()
	if result == nil {
		respondWithError(w, http.StatusServiceUnavailable, "No map result computed yet", nil)
		return
	}

	key := fmt.Sprintf("map:%d", result.Generation)
	if payload, found := h.cache.Get(key); found {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(payload)
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to marshal map result", err)
		return
	}
	h.cache.Set(key, payload, 0)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

// SetZoom updates the zoom level the worker clusters at
func (h *MapHandler) SetZoom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Zoom int `json:"zoom"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid zoom payload", err)
		return
	}
	if body.Zoom < 0 || body.Zoom > 22 {
		respondWithError(w, http.StatusBadRequest, "Zoom out of range", nil)
		return
	}

	h.worker.Send(worker.Message{Type: worker.MsgSetZoomLevel, Zoom: body.Zoom})
	respondWithResult(w, nil)
}

// SetMapMode switches between clustered and cluttered rendering
func (h *MapHandler) SetMapMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MapMode glyph.MapMode `json:"map_mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid map mode payload", err)
		return
	}
	if body.MapMode != glyph.MapModeClustered && body.MapMode != glyph.MapModeCluttered {
		respondWithError(w, http.StatusBadRequest, "Unknown map mode", nil)
		return
	}

	h.dataset.SetMapMode(body.MapMode)
	h.worker.Send(worker.Message{Type: worker.MsgSetMapMode, MapMode: body.MapMode})
	respondWithResult(w, nil)
}

// SetDisplayMode switches between religion and confidence arcs
func (h *MapHandler) SetDisplayMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DisplayMode      glyph.DisplayMode `json:"display_mode"`
		ConfidenceAspect evidence.Aspect   `json:"confidence_aspect"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid display mode payload", err)
		return
	}
	if body.DisplayMode != glyph.DisplayReligion && body.DisplayMode != glyph.DisplayConfidence {
		respondWithError(w, http.StatusBadRequest, "Unknown display mode", nil)
		return
	}

	h.dataset.SetDisplayMode(body.DisplayMode)
	if body.ConfidenceAspect != "" {
		h.dataset.SetConfidenceAspect(body.ConfidenceAspect)
	}
	h.worker.Send(worker.Message{Type: worker.MsgSetDisplayMode, DisplayMode: body.DisplayMode})
	respondWithResult(w, nil)
}

// GetHierarchy returns the religion tree with evidence counts
func (h *MapHandler) GetHierarchy(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.dataset.Hierarchy().Root)
}
