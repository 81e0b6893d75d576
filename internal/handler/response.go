package handler

// Response helpers shared by every handler in this package. All API
// responses are JSON, and all errors use the same two-field shape:
//
//	{"error": "not_found", "message": "habit not found with id abc123"}
//
// writeError is the single place where domain errors become HTTP status
// codes — the service layer never sees a status code, and the handlers
// never inspect error strings.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/habitflow/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "not_found"
	Message string `json:"message"` // human-readable description
}

// writeJSON sends data as JSON with the given status. Headers must be set
// before WriteHeader, and WriteHeader before the body — once Encode writes,
// the status is locked in.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status and sends the standard
// error body. errors.Is walks the wrap chain, so services are free to
// annotate errors with fmt.Errorf("...: %w", err) on the way up.
func writeError(w http.ResponseWriter, err error) {
	var status int
	var kind string

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, kind = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		status, kind = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status, kind = http.StatusConflict, "conflict"
	default:
		// Unknown errors (including ErrUnavailable) get a generic 500 — the
		// real cause goes to the log, never to the client.
		slog.Error("internal error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "an internal error occurred",
		})
		return
	}

	writeJSON(w, status, ErrorResponse{Error: kind, Message: err.Error()})
}

// decodeJSON reads a request body into dst, rejecting unknown fields so
// client typos surface as 400s instead of silently dropped data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("body", "invalid JSON request body")
	}
	return nil
}
