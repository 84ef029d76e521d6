// Package handlers implements the local web frontend's HTTP handlers.
package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/englishstudent/client/internal/api"
)

// BaseHandler provides common handler functionality.
type BaseHandler struct {
	Logger *zap.Logger
}

// RespondJSON sends a JSON response.
func (h *BaseHandler) RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// RespondError sends an error JSON response.
func (h *BaseHandler) RespondError(w http.ResponseWriter, status int, message string) {
	h.RespondJSON(w, status, map[string]string{"error": message})
}

// RespondAPIError translates a platform API failure into the matching
// HTTP status and a human-readable message, per error class.
func (h *BaseHandler) RespondAPIError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch api.Classify(err) {
	case api.KindConnection:
		status = http.StatusBadGateway
	case api.KindUnauthorized:
		status = http.StatusUnauthorized
	case api.KindNotFound:
		status = http.StatusNotFound
	case api.KindValidation:
		status = http.StatusBadRequest
	}
	h.RespondError(w, status, api.UserMessage(err))
}
