package errors

import (
	"fmt"
)

// KestrelError is the structured error type for Kestrel.
// It provides rich context for error handling, logging, and user presentation.
type KestrelError struct {
	// Code is the unique error code (e.g., "ERR_401_INVALID_QUERY").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Backend, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried by a layer above.
	Retryable bool
}

// Error implements the error interface.
func (e *KestrelError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *KestrelError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with KestrelError.
func (e *KestrelError) Is(target error) bool {
	if t, ok := target.(*KestrelError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *KestrelError) WithDetail(key, value string) *KestrelError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new KestrelError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *KestrelError {
	return &KestrelError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a KestrelError from an existing error.
// The error's message becomes the KestrelError message.
func Wrap(code string, err error) *KestrelError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *KestrelError {
	return New(ErrCodeInvalidQuery, message, cause)
}

// StorageError creates a storage-related error.
func StorageError(message string, cause error) *KestrelError {
	return New(ErrCodeIndexCorrupt, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *KestrelError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a KestrelError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if ke, ok := err.(*KestrelError); ok {
		return ke.Retryable
	}
	return false
}

// GetCode extracts the error code from a KestrelError.
// Returns empty string if not a KestrelError.
func GetCode(err error) string {
	if ke, ok := err.(*KestrelError); ok {
		return ke.Code
	}
	return ""
}

// GetCategory extracts the category from a KestrelError.
// Returns empty string if not a KestrelError.
func GetCategory(err error) Category {
	if ke, ok := err.(*KestrelError); ok {
		return ke.Category
	}
	return ""
}
