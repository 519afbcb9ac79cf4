package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// MutationResponse is returned by create, update, delete and upload calls
type MutationResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	URL     string `json:"url,omitempty"`
}

// respondJSON writes data without HTML escaping so stored content is
// returned exactly as it was saved.
func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
