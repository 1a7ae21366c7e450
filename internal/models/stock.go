package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Location represents a warehouse location code known to the engine.
// The set of codes is supplied by the warehouse-registry collaborator and
// synced in; the engine never invents or removes codes on its own.
type Location struct {
	Code      string    `json:"code" gorm:"type:varchar(20);primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Active    bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StockLevel represents the authoritative on-hand quantity for a product at
// a location. One row per (productId, location); rows are zeroed, never
// deleted. Version is bumped on every write and is the unit of optimistic
// concurrency control.
type StockLevel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	ProductID string    `json:"productId" gorm:"type:varchar(100);not null;uniqueIndex:idx_stock_product_location"`
	Location  string    `json:"location" gorm:"type:varchar(20);not null;uniqueIndex:idx_stock_product_location"`

	OnHand   int `json:"onHand" gorm:"not null;default:0"`
	Reserved int `json:"reserved" gorm:"not null;default:0"`

	// Replenishment thresholds. Stored for reporting only; nothing in the
	// engine acts on them automatically.
	ReorderPoint    *int `json:"reorderPoint,omitempty"`
	ReorderQuantity *int `json:"reorderQuantity,omitempty"`
	MinimumStock    *int `json:"minimumStock,omitempty"`
	MaximumStock    *int `json:"maximumStock,omitempty"`

	Version int `json:"version" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Available returns on-hand minus reserved. Derived, never stored.
func (s *StockLevel) Available() int {
	return s.OnHand - s.Reserved
}

// MovementSourceType attributes a ledger delta to its originating workflow
type MovementSourceType string

const (
	MovementSourceAdjustment           MovementSourceType = "ADJUSTMENT"
	MovementSourceTransferShip         MovementSourceType = "TRANSFER_SHIP"
	MovementSourceTransferReceive      MovementSourceType = "TRANSFER_RECEIVE"
	MovementSourceCycleCountCorrection MovementSourceType = "CYCLE_COUNT_CORRECTION"
)

// MovementRecord is the append-only audit entry for a single ledger delta.
// Records are never updated or deleted. All lines of one logical operation
// share an OperationID and are appended in line order, so audit replay can
// reconstruct before/after state per operation.
type MovementRecord struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	OperationID uuid.UUID `json:"operationId" gorm:"type:uuid;not null;index"`
	LineNo      int       `json:"lineNo" gorm:"not null"`

	ProductID string `json:"productId" gorm:"type:varchar(100);not null;index:idx_movements_product_location_time"`
	Location  string `json:"location" gorm:"type:varchar(20);not null;index:idx_movements_product_location_time"`

	Delta           int `json:"delta" gorm:"not null"`
	ResultingOnHand int `json:"resultingOnHand" gorm:"not null"`

	SourceType MovementSourceType `json:"sourceType" gorm:"type:varchar(30);not null;index"`
	SourceID   uuid.UUID          `json:"sourceId" gorm:"type:uuid;not null;index"`

	RecordedBy string    `json:"recordedBy" gorm:"type:varchar(255);not null"`
	RecordedAt time.Time `json:"recordedAt" gorm:"not null;index:idx_movements_product_location_time"`
}

// IdempotencyKey records a processed mutation keyed by the caller-supplied
// Idempotency-Key header, so a retried request replays the original result
// instead of applying twice.
type IdempotencyKey struct {
	Key        string    `json:"key" gorm:"type:varchar(255);primaryKey"`
	Operation  string    `json:"operation" gorm:"type:varchar(50);not null"`
	ResourceID uuid.UUID `json:"resourceId" gorm:"type:uuid;not null"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName implementations
func (Location) TableName() string {
	return "locations"
}

func (StockLevel) TableName() string {
	return "stock_levels"
}

func (MovementRecord) TableName() string {
	return "movement_records"
}

func (IdempotencyKey) TableName() string {
	return "idempotency_keys"
}

// IDs are assigned in Go rather than through a database-side default so
// the schema migrates the same on every backend
func (s *StockLevel) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (m *MovementRecord) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
