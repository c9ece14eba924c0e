// internal/server/handlers/state.go

package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"evimap/internal/adapter/storage"
	"evimap/internal/dataset"
)

// StateHandler handles state export/import and snapshot persistence
type StateHandler struct {
	dataset   *dataset.Dataset
	snapshots *storage.SnapshotStore
}

// NewStateHandler creates a new state handler
func NewStateHandler(ds *dataset.Dataset, snapshots *storage.SnapshotStore) *StateHandler {
	return &StateHandler{
		dataset:   ds,
		snapshots: snapshots,
	}
}

// GetState exports the full session state
func (h *StateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.dataset.ExportState())
}

// SetState imports a full session state. Invalid payloads are rejected
// wholesale without mutating anything.
func (h *StateHandler) SetState(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	respondWithResult(w, h.dataset.ImportState(body))
}

// ListSnapshots returns stored snapshots, newest first
func (h *StateHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	infos, err := h.snapshots.List()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to list snapshots", err)
		return
	}
	respondWithJSON(w, http.StatusOK, infos)
}

// SaveSnapshot persists the current session state
func (h *StateHandler) SaveSnapshot(w http.ResponseWriter, r *http.Request) {
	state, err := json.Marshal(h.dataset.ExportState())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to marshal state", err)
		return
	}

	info, err := h.snapshots.Save(state)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to save snapshot", err)
		return
	}
	respondWithJSON(w, http.StatusCreated, info)
}

// GetSnapshot returns one stored snapshot payload
func (h *StateHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := h.snapshots.Load(id)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Snapshot not found", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(state)
}

// ApplySnapshot loads a snapshot and imports it as the current state
func (h *StateHandler) ApplySnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := h.snapshots.Load(id)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Snapshot not found", nil)
		return
	}

	respondWithResult(w, h.dataset.ImportState(state))
}

// DeleteSnapshot removes one stored snapshot
func (h *StateHandler) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.snapshots.Delete(id); err != nil {
		respondWithError(w, http.StatusNotFound, "Snapshot not found", nil)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}
