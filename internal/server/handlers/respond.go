// internal/server/handlers/respond.go

package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	response := map[string]string{"error": message}

	if err != nil && code >= 500 {
		log.Printf("HTTP %d: %s: %v", code, message, err)
	}

	jsonResponse, _ := json.Marshal(response)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(jsonResponse)
}

// respondWithResult writes the {success, error_message} envelope used by
// the state import endpoints.
func respondWithResult(w http.ResponseWriter, err error) {
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success":       false,
			"error_message": err.Error(),
		})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// Common errors
var (
	ErrNotFound = errors.New("not found")
)
