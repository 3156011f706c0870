package handler

import (
	"encoding/json"
	"net/http"
)

// Error codes shared across the feed endpoints.
const (
	CodeNotFound            = "not_found"
	CodeInvalidRequest      = "invalid_request"
	CodeInvalidAnnouncement = "invalid_announcement"
	CodeInternal            = "internal_error"
)

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
		}
	}
}

type ErrorResponse struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func Error(w http.ResponseWriter, status int, code string, message string) {
	JSON(w, status, ErrorResponse{
		Status:  status,
		Error:   code,
		Message: message,
	})
}

// NotFound writes the standard response for an identity that is not in the
// feed.
func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, CodeNotFound, "video is not in the feed")
}
