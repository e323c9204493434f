// Package handlers provides JSON response helpers shared by HTTP handlers.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// RespondJSON writes data as a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// headers are already written; nothing recoverable remains
		return
	}
}

// RespondError logs the error and writes a JSON error body with the given status code.
// Internal errors (5xx) are logged with full context but surfaced with a generic message.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	message := err.Error()

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
		message = "internal server error"
	} else {
		logger.Warn("request rejected", "status", status, "error", err)
	}

	RespondJSON(w, status, map[string]string{"error": message})
}
