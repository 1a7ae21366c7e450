package repository

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned when an optimistic-lock update loses
	// the race: the stored version no longer matches the one read. Safe to
	// retry after a re-read.
	ErrVersionConflict = errors.New("version conflict - record was modified by another request")

	// ErrStockChanged is returned when the live on-hand quantity no longer
	// matches the snapshot a pending decision was based on. Not retried
	// mechanically - a human must re-decide against current data.
	ErrStockChanged = errors.New("stock level changed since submission")

	// ErrInsufficientStock is returned when a shipment would require more
	// stock than the source location holds. A business refusal, not a bug.
	ErrInsufficientStock = errors.New("insufficient stock at source location")

	// ErrNegativeStock is returned when applying a delta would drive
	// on-hand below zero past the workflow validations. Indicates an
	// upstream check failed; treated as fatal by callers.
	ErrNegativeStock = errors.New("delta would drive on-hand negative")

	// ErrDuplicateKey is returned when an idempotency key has already been
	// recorded by a concurrent request.
	ErrDuplicateKey = errors.New("idempotency key already recorded")
)
