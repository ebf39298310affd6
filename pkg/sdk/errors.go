package obstore

import "github.com/kailas-cloud/obstore/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound           = domain.ErrNotFound
	ErrForbidden          = domain.ErrForbidden
	ErrMalformedRequest   = domain.ErrMalformedRequest
	ErrInvalidRangeFormat = domain.ErrInvalidRangeFormat
	ErrUnacceptableFilter = domain.ErrUnacceptableFilterField
	ErrUnacceptableSort   = domain.ErrUnacceptableSortField
	ErrCreateFailed       = domain.ErrCreateFailed
	ErrUpdateFailed       = domain.ErrUpdateFailed
	ErrDeleteFailed       = domain.ErrDeleteFailed
	ErrStoreUnavailable   = domain.ErrStoreUnavailable
	ErrTimeout            = domain.ErrTimeout
	ErrInvariantViolation = domain.ErrInvariantViolation
)

// NotFoundError lists the ids a lookup could not find.
type NotFoundError = domain.NotFoundError

// ForbiddenError names the id the caller may not touch.
type ForbiddenError = domain.ForbiddenError
