package errors

import (
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeInvalidYear       ErrorType = "INVALID_YEAR"
	ErrTypeNoData            ErrorType = "NO_DATA"
	ErrTypeSourceUnavailable ErrorType = "SOURCE_UNAVAILABLE"
	ErrTypeParsing           ErrorType = "PARSING"
	ErrTypeStorage           ErrorType = "STORAGE"
	ErrTypeValidation        ErrorType = "VALIDATION"
	ErrTypeConfig            ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to reach the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError of the same type. This lets
// callers match against the package sentinels with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Sentinels for errors.Is matching.
var (
	ErrInvalidYear       = &AppError{Type: ErrTypeInvalidYear, Message: "invalid year"}
	ErrNoDataForYear     = &AppError{Type: ErrTypeNoData, Message: "no data for year"}
	ErrSourceUnavailable = &AppError{Type: ErrTypeSourceUnavailable, Message: "source unavailable"}
)

// NewInvalidYearError reports a year outside the published range.
func NewInvalidYearError(year, minYear, maxYear int) *AppError {
	return NewAppError(ErrTypeInvalidYear,
		fmt.Sprintf("end year %d is outside the available range %d-%d", year, minYear, maxYear), nil).
		WithContext("end_year", year).
		WithContext("min_year", minYear).
		WithContext("max_year", maxYear)
}

// NewNoDataForYearError reports that reconciliation left nothing for year.
func NewNoDataForYearError(year int) *AppError {
	return NewAppError(ErrTypeNoData, fmt.Sprintf("no enrollment data for end year %d", year), nil).
		WithContext("end_year", year)
}

// NewSourceUnavailableError wraps a fetch failure. The cause is kept intact
// so callers can still inspect it.
func NewSourceUnavailableError(dataset string, cause error) *AppError {
	return NewAppError(ErrTypeSourceUnavailable, fmt.Sprintf("source %s unavailable", dataset), cause).
		WithContext("dataset", dataset)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
