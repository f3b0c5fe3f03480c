package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// Error codes carried by request-level errors. Pipeline failures use
// AppError instead.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeValidationFailed = "VALIDATION_FAILED"
)

// APIError is a request that was rejected before reaching the enrollment
// service, such as a bad year path segment or an unknown query value.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError names one rejected request parameter.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the details payload of a VALIDATION_FAILED error.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// New creates an APIError without details.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewValidationErrors reports every failed parameter of one request.
func NewValidationErrors(errs []ValidationError) *APIError {
	e := New(http.StatusBadRequest, CodeValidationFailed, "Request validation failed")
	e.Details = ValidationErrors{Errors: errs}
	return e
}

// ErrValidation rejects a single parameter that failed to parse.
func ErrValidation(field, message string) *APIError {
	return NewValidationErrors([]ValidationError{{Field: field, Message: message}})
}
