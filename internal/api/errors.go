package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/sensor-registry/internal/sensor"
)

// Client-facing messages for errors outside the sensor domain.
const (
	msgRouteNotFound    = "Not found"
	msgMethodNotAllowed = "Method not allowed"
	msgInternal         = "Internal server error"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the body of a successful delete.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes {"error": message}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, msgInternal)
}

// writeSensorError maps registry errors to status codes.
func writeSensorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sensor.ErrNotFound):
		writeNotFound(w, sensor.MsgNotFound)
	case errors.Is(err, sensor.ErrInvalidInput):
		writeBadRequest(w, sensor.Message(err))
	default:
		writeInternalError(w)
	}
}
