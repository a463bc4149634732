package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"comfybridge/internal/engine"
	"comfybridge/internal/jobs"
)

// ErrorResponse is the failure payload returned to the caller.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// writeError writes a standardized JSON error response.
func writeError(w http.ResponseWriter, status int, message string, details []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message, Details: details})
}

// writeJobError maps the job error taxonomy to HTTP statuses and the failure
// payload shape.
func writeJobError(w http.ResponseWriter, err error) {
	var inputErr *jobs.InputValidationError
	if errors.As(err, &inputErr) {
		writeError(w, http.StatusBadRequest, inputErr.Message, inputErr.Details)
		return
	}

	var validationErr *engine.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, validationErr.Message, validationErr.Details)
		return
	}

	var transportErr *engine.TransportError
	if errors.As(err, &transportErr) {
		writeError(w, http.StatusBadGateway, "HTTP communication error: "+transportErr.Error(), nil)
		return
	}

	var protocolErr *engine.ProtocolError
	if errors.As(err, &protocolErr) {
		writeError(w, http.StatusInternalServerError, protocolErr.Message, nil)
		return
	}

	var processingErr *jobs.ProcessingError
	if errors.As(err, &processingErr) {
		writeError(w, http.StatusInternalServerError, processingErr.Message, processingErr.Details)
		return
	}

	writeError(w, http.StatusInternalServerError, "Unexpected error: "+err.Error(), nil)
}
