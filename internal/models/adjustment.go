package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdjustmentStatus represents the lifecycle state of a stock adjustment
type AdjustmentStatus string

const (
	AdjustmentStatusPending   AdjustmentStatus = "PENDING"
	AdjustmentStatusApproved  AdjustmentStatus = "APPROVED"
	AdjustmentStatusRejected  AdjustmentStatus = "REJECTED"
	AdjustmentStatusCancelled AdjustmentStatus = "CANCELLED"
)

// AdjustmentReason enumerates why a quantity correction was proposed
type AdjustmentReason string

const (
	AdjustmentReasonInitialCount   AdjustmentReason = "INITIAL_COUNT"
	AdjustmentReasonCycleCount     AdjustmentReason = "CYCLE_COUNT"
	AdjustmentReasonDamaged        AdjustmentReason = "DAMAGED"
	AdjustmentReasonExpired        AdjustmentReason = "EXPIRED"
	AdjustmentReasonFound          AdjustmentReason = "FOUND"
	AdjustmentReasonLost           AdjustmentReason = "LOST"
	AdjustmentReasonDataCorrection AdjustmentReason = "DATA_CORRECTION"
	AdjustmentReasonOther          AdjustmentReason = "OTHER"
)

// ValidAdjustmentReason reports whether reason is one of the enumerated values
func ValidAdjustmentReason(reason AdjustmentReason) bool {
	switch reason {
	case AdjustmentReasonInitialCount, AdjustmentReasonCycleCount,
		AdjustmentReasonDamaged, AdjustmentReasonExpired,
		AdjustmentReasonFound, AdjustmentReasonLost,
		AdjustmentReasonDataCorrection, AdjustmentReasonOther:
		return true
	}
	return false
}

// StockAdjustment proposes a quantity correction per product at one
// location. It is held PENDING until a distinct approver decides it;
// only approval applies the line differences to the ledger. Terminal
// states are immutable.
type StockAdjustment struct {
	ID       uuid.UUID        `json:"id" gorm:"type:uuid;primary_key"`
	Number   string           `json:"number" gorm:"type:varchar(50);not null;uniqueIndex"`
	Location string           `json:"location" gorm:"type:varchar(20);not null;index"`
	Reason   AdjustmentReason `json:"reason" gorm:"type:varchar(30);not null"`
	Notes    *string          `json:"notes,omitempty" gorm:"type:text"`

	Status  AdjustmentStatus `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Version int              `json:"version" gorm:"not null;default:1"` // Optimistic locking

	SubmittedBy string    `json:"submittedBy" gorm:"type:varchar(255);not null"`
	SubmittedAt time.Time `json:"submittedAt" gorm:"not null"`

	DecidedBy       *string    `json:"decidedBy,omitempty" gorm:"type:varchar(255)"`
	DecidedAt       *time.Time `json:"decidedAt,omitempty"`
	RejectionReason *string    `json:"rejectionReason,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relations
	Lines []AdjustmentLine `json:"lines,omitempty" gorm:"foreignKey:AdjustmentID"`
}

// AdjustmentLine carries the proposed quantity for one product. The
// CurrentQuantity/LevelVersion pair is a snapshot taken at submission time;
// it is informational for the approver, never the authoritative concurrency
// check at approval.
type AdjustmentLine struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	AdjustmentID uuid.UUID `json:"adjustmentId" gorm:"type:uuid;not null;index"`
	LineNo       int       `json:"lineNo" gorm:"not null"`
	ProductID    string    `json:"productId" gorm:"type:varchar(100);not null"`

	CurrentQuantity  int `json:"currentQuantity" gorm:"not null"`
	LevelVersion     int `json:"levelVersion" gorm:"not null"`
	AdjustedQuantity int `json:"adjustedQuantity" gorm:"not null"`
	Difference       int `json:"difference" gorm:"not null"`

	Notes *string `json:"notes,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"createdAt"`
}

// IsTerminal returns true if the adjustment can no longer change state
func (a *StockAdjustment) IsTerminal() bool {
	return a.Status == AdjustmentStatusApproved ||
		a.Status == AdjustmentStatusRejected ||
		a.Status == AdjustmentStatusCancelled
}

func (StockAdjustment) TableName() string {
	return "stock_adjustments"
}

func (AdjustmentLine) TableName() string {
	return "stock_adjustment_lines"
}

func (a *StockAdjustment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (l *AdjustmentLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
