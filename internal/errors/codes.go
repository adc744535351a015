// Package errors provides structured error handling for Kestrel.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (index, metadata)
//   - 3XX: Backend errors (timeout, unavailable)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates index and metadata store errors.
	CategoryStorage Category = "STORAGE"
	// CategoryBackend indicates search backend errors.
	CategoryBackend Category = "BACKEND"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299)
	ErrCodeIndexNotFound = "ERR_201_INDEX_NOT_FOUND"
	ErrCodeIndexCorrupt  = "ERR_202_INDEX_CORRUPT"
	ErrCodeStoreClosed   = "ERR_203_STORE_CLOSED"
	ErrCodeStoreLocked   = "ERR_204_STORE_LOCKED"

	// Backend errors (300-399)
	ErrCodeBackendTimeout     = "ERR_301_BACKEND_TIMEOUT"
	ErrCodeBackendUnavailable = "ERR_302_BACKEND_UNAVAILABLE"
	ErrCodeEmbeddingFailed    = "ERR_303_EMBEDDING_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidQuery   = "ERR_401_INVALID_QUERY"
	ErrCodeTenantNotFound = "ERR_402_TENANT_NOT_FOUND"
	ErrCodeInvalidFilter  = "ERR_403_INVALID_FILTER"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeFusionFailed = "ERR_502_FUSION_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract leading digit of the numeric portion (e.g., "1" from "ERR_101_...")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryBackend
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode derives severity from error code.
// Backend errors are warnings: the fallback controller degrades instead of failing.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryConfig:
		return SeverityFatal
	case CategoryBackend:
		return SeverityWarning
	case CategoryValidation:
		return SeverityError
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether the operation behind the code may succeed on retry.
// Retries are not performed inside the retrieval core; this informs callers above it.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeBackendTimeout, ErrCodeBackendUnavailable, ErrCodeEmbeddingFailed, ErrCodeStoreLocked:
		return true
	default:
		return false
	}
}
