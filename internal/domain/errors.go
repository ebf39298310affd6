package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound signals a missing object or a subset of missing objects.
	ErrNotFound = errors.New("not found")
	// ErrForbidden signals a caller without a matching access grant.
	ErrForbidden = errors.New("forbidden")
	// ErrMalformedRequest signals a request that cannot be served as given.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrInvalidRangeFormat signals a range filter that is neither "exact" nor "from..to".
	ErrInvalidRangeFormat = fmt.Errorf("invalid range format: %w", ErrMalformedRequest)
	// ErrUnacceptableFilterField signals a filter on a field outside the allow-list.
	ErrUnacceptableFilterField = fmt.Errorf("filter field not acceptable: %w", ErrMalformedRequest)
	// ErrUnacceptableSortField signals a sort on a field that cannot be resolved.
	ErrUnacceptableSortField = fmt.Errorf("sort field not acceptable: %w", ErrMalformedRequest)
	// ErrMalformedDocument signals a stored or submitted document that fails to parse.
	ErrMalformedDocument = fmt.Errorf("malformed document: %w", ErrMalformedRequest)

	// ErrCreateFailed signals the store did not report a creation.
	ErrCreateFailed = errors.New("create failed")
	// ErrUpdateFailed signals the store did not report an update.
	ErrUpdateFailed = errors.New("update failed")
	// ErrDeleteFailed signals the store did not report a deletion.
	ErrDeleteFailed = errors.New("delete failed")

	// ErrStoreUnavailable signals a transport-level failure talking to the store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrTimeout signals the operation timeout elapsed.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvariantViolation signals a programming error, such as a payload that does not match its type.
	ErrInvariantViolation = errors.New("invariant violation")
)

// NotFoundError wraps ErrNotFound with the ids that were requested but absent.
type NotFoundError struct {
	IDs []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNotFound.Error(), strings.Join(e.IDs, ","))
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFound creates a not-found error for the given ids.
func NewNotFound(ids ...string) error {
	return &NotFoundError{IDs: ids}
}

// ForbiddenError wraps ErrForbidden with the id the caller may not touch.
type ForbiddenError struct {
	ID string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s: permission denied for %s", ErrForbidden.Error(), e.ID)
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// NewForbidden creates a forbidden error for the given id.
func NewForbidden(id string) error {
	return &ForbiddenError{ID: id}
}
