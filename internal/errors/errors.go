package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes, one per kind of failure the service reports
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeConflict     = "CONFLICT"
	CodeNotFound     = "NOT_FOUND"
	CodePermission   = "PERMISSION_DENIED"
	CodeGeneration   = "GENERATION_FAILED"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInternal     = "INTERNAL_ERROR"
)

// AppError represents an application error with HTTP context
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError with the same code, so callers can test the
// kind with errors.Is(err, errors.ErrNotFound).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinels for errors.Is
var (
	ErrValidation   = &AppError{Code: CodeValidation}
	ErrConflict     = &AppError{Code: CodeConflict}
	ErrNotFound     = &AppError{Code: CodeNotFound}
	ErrPermission   = &AppError{Code: CodePermission}
	ErrGeneration   = &AppError{Code: CodeGeneration}
	ErrUnauthorized = &AppError{Code: CodeUnauthorized}
	ErrInternal     = &AppError{Code: CodeInternal}
)

// ErrorResponse is the JSON response format for errors
type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// WriteJSON writes the error as JSON response
func (e *AppError) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: e})
}

// From returns err as an *AppError, converting unknown errors to Internal
func From(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal("")
}

// ============================================================
// ERROR CONSTRUCTORS
// ============================================================

// Validation Errors (400)
func Validation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func InvalidURL(details string) *AppError {
	e := Validation("The provided URL is invalid")
	e.Details = details
	return e
}

func InvalidAlias(alias string) *AppError {
	e := Validation("Alias must be 3-20 alphanumeric characters")
	e.Details = alias
	return e
}

func InvalidExpiration(value string, err error) *AppError {
	e := Validation("invalid expiration format")
	e.Details = value
	e.Err = err
	return e
}

func InvalidExpiresInDays(days, max int) *AppError {
	e := Validation(fmt.Sprintf("expires_in_days must be at most %d", max))
	e.Details = fmt.Sprintf("%d", days)
	return e
}

func InvalidJSON(details string) *AppError {
	e := Validation("Invalid JSON in request body")
	e.Details = details
	return e
}

func MissingField(field string) *AppError {
	return Validation(fmt.Sprintf("Required field '%s' is missing", field))
}

// Unauthorized (401)
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// Permission Errors (403)
func Forbidden(code string) *AppError {
	return &AppError{
		Code:       CodePermission,
		Message:    fmt.Sprintf("You are not allowed to modify '%s'", code),
		StatusCode: http.StatusForbidden,
	}
}

// Not Found Errors (404)
func URLNotFound(code string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("Short URL '%s' not found", code),
		StatusCode: http.StatusNotFound,
	}
}

// Conflict Errors (409)
func AliasTaken(code string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    fmt.Sprintf("Short code '%s' already exists", code),
		StatusCode: http.StatusConflict,
	}
}

// Generation Errors (503), retryable by the caller
func GenerationExhausted(attempts int) *AppError {
	return &AppError{
		Code:       CodeGeneration,
		Message:    "Could not generate a unique short code, please retry",
		Details:    fmt.Sprintf("%d attempts", attempts),
		StatusCode: http.StatusServiceUnavailable,
	}
}

// Server Errors (500)
func Internal(details string) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "An internal server error occurred",
		Details:    details,
		StatusCode: http.StatusInternalServerError,
	}
}
