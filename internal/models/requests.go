package models

import "github.com/google/uuid"

// Request models. Validation that gin binding can express lives in the
// tags; workflow rules (reason enumeration, location registry, state
// transitions) are enforced by the services layer.

type SubmitAdjustmentRequest struct {
	Location string                  `json:"location" binding:"required,min=1,max=20"`
	Reason   AdjustmentReason        `json:"reason" binding:"required"`
	Notes    *string                 `json:"notes,omitempty"`
	Lines    []AdjustmentLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type AdjustmentLineRequest struct {
	ProductID        string  `json:"productId" binding:"required,min=1,max=100"`
	AdjustedQuantity *int    `json:"adjustedQuantity" binding:"required,gte=0"`
	Notes            *string `json:"notes,omitempty"`
}

type RejectAdjustmentRequest struct {
	Reason string `json:"reason" binding:"required,min=1"`
}

type CreateCycleCountRequest struct {
	Location   string   `json:"location" binding:"required,min=1,max=20"`
	ProductIDs []string `json:"productIds" binding:"required,min=1,dive,min=1"`
	Notes      *string  `json:"notes,omitempty"`
}

type RecordCountRequest struct {
	ProductID       string `json:"productId" binding:"required,min=1,max=100"`
	CountedQuantity *int   `json:"countedQuantity" binding:"required,gte=0"`
}

type CreateTransferRequest struct {
	FromLocation string                `json:"fromLocation" binding:"required,min=1,max=20"`
	ToLocation   string                `json:"toLocation" binding:"required,min=1,max=20"`
	OrderID      *string               `json:"orderId,omitempty"`
	Notes        *string               `json:"notes,omitempty"`
	Lines        []TransferLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type TransferLineRequest struct {
	ProductID string `json:"productId" binding:"required,min=1,max=100"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type RecordReceiptRequest struct {
	LineID           uuid.UUID `json:"lineId" binding:"required"`
	ReceivedQuantity *int      `json:"receivedQuantity" binding:"required,gte=0"`
}

type UpdateStockPolicyRequest struct {
	ProductID       string `json:"productId" binding:"required,min=1,max=100"`
	Location        string `json:"location" binding:"required,min=1,max=20"`
	ReorderPoint    *int   `json:"reorderPoint,omitempty" binding:"omitempty,gte=0"`
	ReorderQuantity *int   `json:"reorderQuantity,omitempty" binding:"omitempty,gte=0"`
	MinimumStock    *int   `json:"minimumStock,omitempty" binding:"omitempty,gte=0"`
	MaximumStock    *int   `json:"maximumStock,omitempty" binding:"omitempty,gte=0"`
}

// SetReservationRequest sets the absolute reserved quantity for a level.
// Reservations belong to the order collaborator; the engine only records
// them so available (onHand - reserved) stays meaningful.
type SetReservationRequest struct {
	ProductID string `json:"productId" binding:"required,min=1,max=100"`
	Location  string `json:"location" binding:"required,min=1,max=20"`
	Reserved  *int   `json:"reserved" binding:"required,gte=0"`
}

type SyncLocationItem struct {
	Code   string `json:"code" binding:"required,min=1,max=20"`
	Name   string `json:"name" binding:"required,min=1,max=255"`
	Active *bool  `json:"active,omitempty"`
}

type SyncLocationsRequest struct {
	Locations []SyncLocationItem `json:"locations" binding:"required,min=1,dive"`
}
