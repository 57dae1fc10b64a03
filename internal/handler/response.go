// Package handler provides the HTTP and websocket bindings of the payment service.
package handler

import (
	"encoding/json"
	"net/http"

	"paydash/pkg/errors"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, kind, message string) {
	respondJSON(w, status, errorResponse{Error: kind, Message: message})
}

func respondValidationErrors(w http.ResponseWriter, fields map[string]string) {
	respondJSON(w, http.StatusBadRequest, errorResponse{
		Error:   errors.KindValidation,
		Message: "Validation failed",
		Fields:  fields,
	})
}

// respondServiceError maps a facade error to its kind and status. Store
// error text is logged but never returned to the client.
func respondServiceError(w http.ResponseWriter, log Logger, err error) {
	var vErr *errors.ValidationError
	if errors.As(err, &vErr) {
		respondValidationErrors(w, vErr.Fields)
		return
	}

	var fErr *errors.FilterError
	if errors.As(err, &fErr) {
		respondJSON(w, http.StatusBadRequest, errorResponse{
			Error:   errors.KindInvalidFilter,
			Message: fErr.Error(),
			Fields:  map[string]string{fErr.Field: fErr.Reason},
		})
		return
	}

	switch errors.Kind(err) {
	case errors.KindNotFound:
		respondError(w, http.StatusNotFound, errors.KindNotFound, "Payment not found")
	case errors.KindInvalidFilter:
		respondError(w, http.StatusBadRequest, errors.KindInvalidFilter, "Invalid filter")
	case errors.KindStoreUnavailable:
		log.Warn("Record store unavailable", map[string]interface{}{"error": err.Error()})
		w.Header().Set("Retry-After", "1")
		respondError(w, http.StatusServiceUnavailable, errors.KindStoreUnavailable, "Service temporarily unavailable, please retry")
	default:
		log.Error("Unhandled service error", map[string]interface{}{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, errors.KindInternal, "Internal server error")
	}
}
