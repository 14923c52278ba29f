package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperr "github.com/swipe4care/opportunity-feed/internal/errors"
)

// ErrorResponse is the standard error shape returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "not_found"
	Message string `json:"message"` // human-readable description
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers already sent; nothing left to do but log
			slog.Error("failed to encode JSON response", "err", err)
		}
	}
}

// writeError maps a domain error to its HTTP status code and sends it.
// The service layer knows nothing about HTTP; the whole taxonomy is mapped
// here and nowhere else.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, apperr.ErrBusy):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "busy",
			Message: err.Error(),
		})
	default:
		// persistence and unknown failures: never leak internals
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "an internal error occurred",
		})
	}
}
