// Package handler translates HTTP requests into service calls and service
// results into JSON responses.
//
// Every error goes through writeError, so the status code for a domain
// error is decided in one place:
//
//	apperror.ErrValidation → 400 {"field": ["message", ...]}
//	apperror.ErrNotFound   → 404
//	apperror.ErrForbidden  → 403
//	apperror.ErrConflict   → 409
//	apperror.ErrUpstream   → 502
//	anything else          → 500 with a generic message
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/deployhub/internal/apperror"
)

// ErrorResponse is the body of every non-validation error.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "not_found"
	Message string `json:"message"` // human-readable description
}

// writeJSON sets headers and status before the body; headers written after
// the first Write are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are gone already; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		kind := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			if len(appErr.Fields) > 0 {
				writeJSON(w, http.StatusBadRequest, appErr.Fields)
				return
			}
			status, kind = http.StatusBadRequest, "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status, kind = http.StatusNotFound, "not_found"
		case errors.Is(err, apperror.ErrForbidden):
			status, kind = http.StatusForbidden, "forbidden"
		case errors.Is(err, apperror.ErrConflict):
			status, kind = http.StatusConflict, "conflict"
		case errors.Is(err, apperror.ErrUpstream):
			status, kind = http.StatusBadGateway, "upstream_error"
		}

		writeJSON(w, status, ErrorResponse{Error: kind, Message: appErr.Message})
		return
	}

	// Never echo internal errors: they can carry SQL or file paths.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// writeMessage writes the single-key bodies the auth endpoints use, such
// as {"error": "Code not provided"}.
func writeMessage(w http.ResponseWriter, status int, key, msg string) {
	writeJSON(w, status, map[string]string{key: msg})
}
