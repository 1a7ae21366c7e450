package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransferStatus represents the lifecycle state of a transfer request
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "PENDING"
	TransferStatusInTransit TransferStatus = "IN_TRANSIT"
	TransferStatusReceived  TransferStatus = "RECEIVED"
	TransferStatusCancelled TransferStatus = "CANCELLED"
)

// TransferRequest moves quantity between two locations in two phases:
// ship debits the source for every line at once, receive credits the
// destination as cumulative per-line receipts are recorded. A transfer
// with partially received lines stays IN_TRANSIT indefinitely; chasing it
// up is an operational concern, not an engine timeout.
type TransferRequest struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	Number       string         `json:"number" gorm:"type:varchar(50);not null;uniqueIndex"`
	FromLocation string         `json:"fromLocation" gorm:"type:varchar(20);not null;index"`
	ToLocation   string         `json:"toLocation" gorm:"type:varchar(20);not null;index"`
	Status       TransferStatus `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Version      int            `json:"version" gorm:"not null;default:1"` // Optimistic locking

	// Originating sales order, when the transfer was raised to fulfil one
	OrderID *string `json:"orderId,omitempty" gorm:"type:varchar(100)"`
	Notes   *string `json:"notes,omitempty" gorm:"type:text"`

	RequestedBy string     `json:"requestedBy" gorm:"type:varchar(255);not null"`
	RequestedAt time.Time  `json:"requestedAt" gorm:"not null"`
	ShippedBy   *string    `json:"shippedBy,omitempty" gorm:"type:varchar(255)"`
	ShippedAt   *time.Time `json:"shippedAt,omitempty"`
	ReceivedBy  *string    `json:"receivedBy,omitempty" gorm:"type:varchar(255)"`
	ReceivedAt  *time.Time `json:"receivedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relations
	Lines []TransferLine `json:"lines,omitempty" gorm:"foreignKey:TransferID"`
}

// TransferLine is one product's requested quantity. Quantity is fixed at
// creation; ReceivedQuantity accumulates while IN_TRANSIT and never
// exceeds Quantity.
type TransferLine struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	TransferID uuid.UUID `json:"transferId" gorm:"type:uuid;not null;index"`
	LineNo     int       `json:"lineNo" gorm:"not null"`
	ProductID  string    `json:"productId" gorm:"type:varchar(100);not null"`

	Quantity         int `json:"quantity" gorm:"not null"`
	ReceivedQuantity int `json:"receivedQuantity" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsTerminal returns true if the transfer can no longer change state
func (t *TransferRequest) IsTerminal() bool {
	return t.Status == TransferStatusReceived ||
		t.Status == TransferStatusCancelled
}

// FullyReceived reports whether every line has been received in full
func (t *TransferRequest) FullyReceived() bool {
	for _, line := range t.Lines {
		if line.ReceivedQuantity != line.Quantity {
			return false
		}
	}
	return len(t.Lines) > 0
}

func (TransferRequest) TableName() string {
	return "transfer_requests"
}

func (TransferLine) TableName() string {
	return "transfer_request_lines"
}

func (t *TransferRequest) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (l *TransferLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
