// Package errors defines the categorized error taxonomy of the sync engine.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/creator-sync/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryAuthorization ErrorCategory = "authorization"
	CategoryNotFound      ErrorCategory = "not_found"
	CategoryConflict      ErrorCategory = "conflict"
	CategoryRateLimit     ErrorCategory = "rate_limit"
	CategoryProvider      ErrorCategory = "provider"
	CategoryMedia         ErrorCategory = "media"
	CategoryDatabase      ErrorCategory = "database"
	CategorySystem        ErrorCategory = "system"
)

// Error codes
const (
	CodeProviderFetch    = "PROVIDER_FETCH_ERROR"
	CodeDownload         = "DOWNLOAD_ERROR"
	CodeConversion       = "CONVERSION_ERROR"
	CodeUpload           = "UPLOAD_ERROR"
	CodePersistenceBatch = "PERSISTENCE_BATCH_ERROR"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeSyncInProgress   = "SYNC_IN_PROGRESS"
	CodeInvalidParameter = "INVALID_PARAMETER"
	CodeRateLimit        = "RATE_LIMIT_EXCEEDED"
	CodeDatabase         = "DATABASE_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to the wire error shape
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// Sync pipeline errors

// NewProviderFetchError is returned when the content provider fails or times out
func NewProviderFetchError(platform types.Platform, target string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryProvider,
		StatusCode: http.StatusBadGateway,
		Code:       CodeProviderFetch,
		Message:    fmt.Sprintf("failed to fetch %s content for %s", platform, target),
		Cause:      cause,
		Details: map[string]interface{}{
			"platform": string(platform),
			"target":   target,
		},
	}
}

// NewDownloadError covers non-2xx responses and undersized payloads
func NewDownloadError(url string, reason string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryMedia,
		StatusCode: http.StatusBadGateway,
		Code:       CodeDownload,
		Message:    fmt.Sprintf("media download failed: %s", reason),
		Cause:      cause,
		Details: map[string]interface{}{
			"url": url,
		},
	}
}

// NewConversionError is recoverable: the original bytes are uploaded instead
func NewConversionError(filename string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryMedia,
		StatusCode: http.StatusUnprocessableEntity,
		Code:       CodeConversion,
		Message:    fmt.Sprintf("image conversion failed for %s", filename),
		Cause:      cause,
		Details: map[string]interface{}{
			"filename": filename,
		},
	}
}

// NewUploadError is returned when object storage rejects a write
func NewUploadError(path string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryMedia,
		StatusCode: http.StatusBadGateway,
		Code:       CodeUpload,
		Message:    fmt.Sprintf("upload failed for %s", path),
		Cause:      cause,
		Details: map[string]interface{}{
			"path": path,
		},
	}
}

// NewPersistenceBatchError reports the failing chunk of a commit
func NewPersistenceBatchError(chunk, chunks, committed int, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDatabase,
		StatusCode: http.StatusInternalServerError,
		Code:       CodePersistenceBatch,
		Message:    fmt.Sprintf("write batch %d of %d failed", chunk+1, chunks),
		Cause:      cause,
		Details: map[string]interface{}{
			"chunk":           chunk,
			"chunks":          chunks,
			"writesCommitted": committed,
		},
	}
}

// Caller errors

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidParameter,
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewUnauthorizedError is returned when the caller has no valid credential
func NewUnauthorizedError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusUnauthorized,
		Code:       CodeUnauthorized,
		Message:    message,
	}
}

// NewForbiddenError is returned when an authenticated caller lacks access to the org
func NewForbiddenError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusForbidden,
		Code:       CodeForbidden,
		Message:    message,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// NewSyncInProgressError is returned when another run holds the account lease
func NewSyncInProgressError(accountID string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConflict,
		StatusCode: http.StatusConflict,
		Code:       CodeSyncInProgress,
		Message:    fmt.Sprintf("a sync is already running for account %s", accountID),
		Details: map[string]interface{}{
			"accountId": accountID,
		},
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(retryAfter int) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Code:       CodeRateLimit,
		Message:    "rate limit exceeded",
		Details: map[string]interface{}{
			"retryAfter": retryAfter,
		},
	}
}

// System errors

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDatabase,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeDatabase,
		Message:    fmt.Sprintf("database error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternal,
		Message:    message,
		Cause:      cause,
	}
}

// Categorize finds the categorized error in err's chain, or wraps err as internal
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	var svcErr *types.ServiceError
	if stderrors.As(err, &svcErr) {
		return &CategorizedError{
			Category:   CategorySystem,
			StatusCode: http.StatusInternalServerError,
			Code:       svcErr.Code,
			Message:    svcErr.Message,
			Details:    svcErr.Details,
		}
	}

	return NewInternalError("unexpected error", err)
}

// Is reports whether err carries the given code
func Is(err error, code string) bool {
	var catErr *CategorizedError
	if !stderrors.As(err, &catErr) {
		return false
	}
	return catErr.Code == code
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsRetryable determines if an error is worth retrying
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	switch catErr.Category {
	case CategoryProvider, CategoryDatabase:
		return true
	case CategoryMedia:
		return catErr.Code == CodeDownload || catErr.Code == CodeUpload
	default:
		return false
	}
}

// IsRecoverable reports errors that degrade a run without failing it
func IsRecoverable(err error) bool {
	return Is(err, CodeConversion)
}

// IsUserError determines if an error is a user error (4xx)
func IsUserError(err error) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.StatusCode >= 400 && catErr.StatusCode < 500
}
