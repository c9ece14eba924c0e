// internal/server/handlers/history.go

package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"evimap/internal/dataset"
	"evimap/internal/history"
)

// HistoryHandler exposes the tree-shaped undo history
type HistoryHandler struct {
	dataset *dataset.Dataset
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(ds *dataset.Dataset) *HistoryHandler {
	return &HistoryHandler{
		dataset: ds,
	}
}

type historyNode struct {
	ID          string    `json:"id"`
	ParentID    string    `json:"parent_id,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Children    []string  `json:"children"`
	Current     bool      `json:"current"`
}

func toHistoryNode(n *history.Node, currentID string) historyNode {
	return historyNode{
		ID:          n.ID,
		ParentID:    n.ParentID,
		Description: n.Description,
		CreatedAt:   n.CreatedAt,
		Children:    n.Children(),
		Current:     n.ID == currentID,
	}
}

// GetHistory returns all history nodes
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	tree := h.dataset.History()
	currentID := tree.Current().ID

	nodes := tree.Nodes()
	out := make([]historyNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, toHistoryNode(n, currentID))
	}
	respondWithJSON(w, http.StatusOK, out)
}

// Back steps to the parent history entry and applies its state
func (h *HistoryHandler) Back(w http.ResponseWriter, r *http.Request) {
	tree := h.dataset.History()
	node, err := tree.Back()
	if err != nil {
		respondWithError(w, http.StatusConflict, "Already at the first entry", nil)
		return
	}

	if err := h.dataset.ApplyState(node.State); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to apply history entry", err)
		return
	}
	respondWithJSON(w, http.StatusOK, toHistoryNode(node, node.ID))
}

// Forward re-applies the most recently undone entry
func (h *HistoryHandler) Forward(w http.ResponseWriter, r *http.Request) {
	tree := h.dataset.History()
	node, err := tree.Forward()
	if err != nil {
		respondWithError(w, http.StatusConflict, "Nothing to redo", nil)
		return
	}

	if err := h.dataset.ApplyState(node.State); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to apply history entry", err)
		return
	}
	respondWithJSON(w, http.StatusOK, toHistoryNode(node, node.ID))
}

// GoTo jumps to an arbitrary history entry by id
func (h *HistoryHandler) GoTo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tree := h.dataset.History()

	node, err := tree.GoTo(id)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "History entry not found", nil)
		return
	}

	if err := h.dataset.ApplyState(node.State); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to apply history entry", err)
		return
	}
	respondWithJSON(w, http.StatusOK, toHistoryNode(node, node.ID))
}

// Prune collapses the history to the path from root to current
func (h *HistoryHandler) Prune(w http.ResponseWriter, r *http.Request) {
	tree := h.dataset.History()
	tree.Prune()
	respondWithJSON(w, http.StatusOK, map[string]int{"size": tree.Size()})
}

// Condense collapses the history to the root and current entries only
func (h *HistoryHandler) Condense(w http.ResponseWriter, r *http.Request) {
	tree := h.dataset.History()
	tree.PruneCondense()
	respondWithJSON(w, http.StatusOK, map[string]int{"size": tree.Size()})
}
