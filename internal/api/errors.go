package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/creator-sync/internal/errors"
	"github.com/creator-sync/internal/logging"
	"github.com/creator-sync/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// Common error codes
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	respondJSON(w, statusCode, ErrorResponse{
		Error: types.ServiceError{Code: code, Message: message, Details: details},
	})
}

// respondAppError maps an error from the service layer onto its HTTP status.
// Server-side failures hide their cause from the caller.
func respondAppError(w http.ResponseWriter, r *http.Request, err error) {
	catErr := apperrors.Categorize(err)
	if catErr.StatusCode >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).WithError(err).Error("Request failed")
	}

	body := catErr.ToServiceError()
	if catErr.Code == apperrors.CodeInternal || catErr.Code == apperrors.CodeDatabase {
		body.Message = "An internal error occurred"
		body.Details = nil
	}
	respondJSON(w, catErr.StatusCode, ErrorResponse{Error: *body})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
