package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist or is not visible to the caller.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidCredentials hides whether email or password failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked signals temporary lockout after repeated failed logins.
	ErrAccountLocked       = errors.New("account locked")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("conflict")
	ErrIdempotencyConflict = errors.New("idempotency conflict")
	ErrRateLimited         = errors.New("rate limited")
	// ErrDuplicateOrder is returned when the same table submits an identical basket inside the dedup window.
	ErrDuplicateOrder = errors.New("duplicate order")
	// ErrInvalidTransition is returned for order status changes the lifecycle does not allow.
	ErrInvalidTransition  = errors.New("invalid order status transition")
	ErrOrderNotArchivable = errors.New("order is not in a terminal status")
	ErrOrderNotDeletable  = errors.New("only cancelled orders can be deleted")
	// ErrCodeSpaceExhausted is returned when no unique table code was found within the retry budget.
	ErrCodeSpaceExhausted    = errors.New("table code space exhausted")
	ErrOrderingDisabled      = errors.New("ordering disabled")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
