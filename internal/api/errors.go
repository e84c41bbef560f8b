package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/brewlab/brewsync/internal/models"
)

// Error code constants for structured API error responses.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeInternal       = "internal"
	ErrCodeConflictBusy   = "sync_in_progress"
	ErrCodeDeviceRejected = "device_rejected"
	ErrCodeUnresolved     = "conflict_unresolved"
	ErrCodeRetention      = "retention_violation"
	ErrCodeIntegrity      = "integrity_check_failed"
)

// APIError represents a structured error returned by the API.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError for JSON serialization.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// writeError writes a JSON error response with the given HTTP status code.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error: APIError{Code: code, Message: message},
	}); err != nil {
		slog.Error("write error response", "err", err)
	}
}

// writeJSON writes a JSON response with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write json response", "err", err)
	}
}

// writeEngineError maps an engine error to an API response.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrDeviceNotFound),
		errors.Is(err, models.ErrPreferencesNotFound),
		errors.Is(err, models.ErrBackupNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, models.ErrSyncInProgress):
		writeError(w, http.StatusConflict, ErrCodeConflictBusy, err.Error())
	case errors.Is(err, models.ErrDeviceRejected):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeDeviceRejected, err.Error())
	case errors.Is(err, models.ErrConflictUnresolved):
		writeError(w, http.StatusConflict, ErrCodeUnresolved, err.Error())
	case errors.Is(err, models.ErrRetentionViolation):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeRetention, err.Error())
	case errors.Is(err, models.ErrIntegrityCheckFailed):
		writeError(w, http.StatusConflict, ErrCodeIntegrity, err.Error())
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}
