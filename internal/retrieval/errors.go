package retrieval

import (
	stderrors "errors"
	"fmt"

	kerrors "github.com/kestrel-search/kestrel/internal/errors"
)

// InvalidQueryError rejects a malformed query before any backend call.
func InvalidQueryError(message string) error {
	return kerrors.New(kerrors.ErrCodeInvalidQuery, message, nil)
}

// TenantNotFoundError indicates the named tenant has no registered indices.
func TenantNotFoundError(tenantID string) error {
	return kerrors.New(kerrors.ErrCodeTenantNotFound,
		fmt.Sprintf("tenant %q is not registered", tenantID), nil).
		WithDetail("tenant_id", tenantID)
}

// TimeoutError marks a backend call that was still pending when the shared
// deadline elapsed.
func TimeoutError(backend Backend, cause error) error {
	return kerrors.New(kerrors.ErrCodeBackendTimeout,
		fmt.Sprintf("%s search exceeded deadline", backend), cause).
		WithDetail("backend", string(backend))
}

// UnavailableError marks a backend-reported failure, distinct from a timeout
// so degradation can be logged accurately.
func UnavailableError(backend Backend, cause error) error {
	return kerrors.New(kerrors.ErrCodeBackendUnavailable,
		fmt.Sprintf("%s search failed", backend), cause).
		WithDetail("backend", string(backend))
}

func hasCode(err error, code string) bool {
	var ke *kerrors.KestrelError
	if stderrors.As(err, &ke) {
		return ke.Code == code
	}
	return false
}

// IsInvalidQuery reports whether err is a query-validation failure.
func IsInvalidQuery(err error) bool {
	return hasCode(err, kerrors.ErrCodeInvalidQuery)
}

// IsTenantNotFound reports whether err marks an unknown tenant.
func IsTenantNotFound(err error) bool {
	return hasCode(err, kerrors.ErrCodeTenantNotFound)
}

// IsTimeout reports whether err marks a deadline-exceeded backend call.
func IsTimeout(err error) bool {
	return hasCode(err, kerrors.ErrCodeBackendTimeout)
}

// IsUnavailable reports whether err marks a failed backend call.
func IsUnavailable(err error) bool {
	return hasCode(err, kerrors.ErrCodeBackendUnavailable)
}
