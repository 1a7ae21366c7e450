package services

import "errors"

// Sentinel errors returned by the coordinator. Handlers map these onto
// HTTP status codes; repository sentinels that surface unchanged
// (ErrNotFound, ErrStockChanged, ErrInsufficientStock) keep their own
// mappings.
var (
	// ErrValidation indicates the request is malformed beyond what gin
	// binding can express: unknown reason, unregistered location,
	// duplicate product lines, a receipt that shrinks.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState indicates the resource exists but its lifecycle
	// state does not permit the requested transition.
	ErrInvalidState = errors.New("invalid state transition")
)
