package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stock-reconciliation-service/internal/models"
)

// TransferRepository handles two-phase transfer persistence. Ship debits
// the source for every line in one transaction (all or nothing); each
// receipt credits the destination by the increase over the previously
// recorded cumulative quantity.
type TransferRepository struct {
	db     *gorm.DB
	ledger *LedgerRepository
}

func NewTransferRepository(db *gorm.DB, ledger *LedgerRepository) *TransferRepository {
	return &TransferRepository{db: db, ledger: ledger}
}

// GenerateTransferNumber generates a human-readable transfer number
func (r *TransferRepository) GenerateTransferNumber(ctx context.Context) (string, error) {
	var count int64
	r.db.WithContext(ctx).Model(&models.TransferRequest{}).Count(&count)
	return fmt.Sprintf("TR-%s-%06d", time.Now().Format("200601"), count+1), nil
}

// Create persists a new PENDING transfer. The ledger is untouched until
// ship time.
func (r *TransferRepository) Create(ctx context.Context, transfer *models.TransferRequest, idemKey string) error {
	if transfer.Number == "" {
		number, err := r.GenerateTransferNumber(ctx)
		if err != nil {
			return err
		}
		transfer.Number = number
	}

	transfer.ID = uuid.New()
	transfer.Status = models.TransferStatusPending
	transfer.Version = 1
	transfer.RequestedAt = time.Now()
	transfer.CreatedAt = time.Now()
	transfer.UpdatedAt = time.Now()

	for i := range transfer.Lines {
		transfer.Lines[i].TransferID = transfer.ID
		transfer.Lines[i].LineNo = i + 1
		transfer.Lines[i].CreatedAt = time.Now()
		transfer.Lines[i].UpdatedAt = time.Now()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(transfer).Error; err != nil {
			return err
		}
		return insertIdempotencyTx(tx, idemKey, "createTransfer", transfer.ID)
	})
}

// GetByID retrieves a transfer with its lines in line order
func (r *TransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error) {
	var transfer models.TransferRequest
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_no ASC")
		}).
		First(&transfer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &transfer, nil
}

// List retrieves transfers with pagination, newest first
func (r *TransferRepository) List(ctx context.Context, status *models.TransferStatus, location *string, page, limit int) ([]models.TransferRequest, int64, error) {
	var transfers []models.TransferRequest
	var total int64
	query := r.db.WithContext(ctx).Model(&models.TransferRequest{})

	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if location != nil {
		query = query.Where("from_location = ? OR to_location = ?", *location, *location)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page > 0 && limit > 0 {
		offset := (page - 1) * limit
		query = query.Offset(offset).Limit(limit)
	}

	err := query.
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_no ASC")
		}).
		Order("requested_at DESC").
		Find(&transfers).Error
	return transfers, total, err
}

// Ship debits the source location for every line in one transaction. Any
// line short of stock fails the whole shipment with ErrInsufficientStock -
// nothing partially ships. The destination is not credited until receipts
// are recorded.
func (r *TransferRepository) Ship(ctx context.Context, transfer *models.TransferRequest, shipperID string, idemKey string) ([]models.MovementRecord, error) {
	now := time.Now()
	oldVersion := transfer.Version
	// The shipment is its own logical operation in the movement log,
	// distinct from the receipts that follow it.
	operationID := uuid.New()
	movements := make([]models.MovementRecord, 0, len(transfer.Lines))

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.TransferRequest{}).
			Where("id = ? AND status = ? AND version = ?",
				transfer.ID, models.TransferStatusPending, oldVersion).
			Updates(map[string]interface{}{
				"status":     models.TransferStatusInTransit,
				"shipped_by": shipperID,
				"shipped_at": now,
				"version":    oldVersion + 1,
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrVersionConflict
		}

		for i := range transfer.Lines {
			line := &transfer.Lines[i]

			level, err := getLevelTx(tx, line.ProductID, transfer.FromLocation)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					return fmt.Errorf("%w: product %s has no stock at %s",
						ErrInsufficientStock, line.ProductID, transfer.FromLocation)
				}
				return err
			}
			if level.OnHand < line.Quantity {
				return fmt.Errorf("%w: product %s at %s has %d, requested %d",
					ErrInsufficientStock, line.ProductID, transfer.FromLocation,
					level.OnHand, line.Quantity)
			}

			record, err := applyDeltaTx(tx, level, -line.Quantity, movementStamp{
				OperationID: operationID,
				LineNo:      line.LineNo,
				SourceType:  models.MovementSourceTransferShip,
				SourceID:    transfer.ID,
				RecordedBy:  shipperID,
			})
			if err != nil {
				return err
			}
			movements = append(movements, *record)
		}

		return insertIdempotencyTx(tx, idemKey, "shipTransfer", transfer.ID)
	})
	if err != nil {
		return nil, err
	}

	transfer.Status = models.TransferStatusInTransit
	transfer.Version = oldVersion + 1
	transfer.ShippedBy = &shipperID
	transfer.ShippedAt = &now

	for _, line := range transfer.Lines {
		r.ledger.invalidateLevel(ctx, line.ProductID, transfer.FromLocation)
	}
	return movements, nil
}

// RecordReceipt stores a cumulative received quantity for one line and
// credits the destination by the increase over the previous value. A
// resubmission of the same cumulative number is a delta of zero and
// mutates nothing.
func (r *TransferRepository) RecordReceipt(ctx context.Context, transfer *models.TransferRequest, line *models.TransferLine, cumulative int, receiverID string, idemKey string) (*models.MovementRecord, error) {
	delta := cumulative - line.ReceivedQuantity
	now := time.Now()
	oldVersion := transfer.Version
	oldReceived := line.ReceivedQuantity
	var movement *models.MovementRecord

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialize against concurrent receipts, complete and cancel
		result := tx.Model(&models.TransferRequest{}).
			Where("id = ? AND status = ? AND version = ?",
				transfer.ID, models.TransferStatusInTransit, oldVersion).
			Updates(map[string]interface{}{
				"version":    oldVersion + 1,
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrVersionConflict
		}

		lineResult := tx.Model(&models.TransferLine{}).
			Where("id = ? AND received_quantity = ?", line.ID, oldReceived).
			Updates(map[string]interface{}{
				"received_quantity": cumulative,
				"updated_at":        now,
			})
		if lineResult.Error != nil {
			return lineResult.Error
		}
		if lineResult.RowsAffected == 0 {
			return ErrVersionConflict
		}

		if delta > 0 {
			level, err := getOrCreateLevelTx(tx, line.ProductID, transfer.ToLocation)
			if err != nil {
				return err
			}
			// Each receipt is its own operation; ListMovementsByOperation
			// must not lump separate receipts together.
			record, err := applyDeltaTx(tx, level, delta, movementStamp{
				OperationID: uuid.New(),
				LineNo:      line.LineNo,
				SourceType:  models.MovementSourceTransferReceive,
				SourceID:    transfer.ID,
				RecordedBy:  receiverID,
			})
			if err != nil {
				return err
			}
			movement = record
		}

		return insertIdempotencyTx(tx, idemKey, "recordReceipt", transfer.ID)
	})
	if err != nil {
		return nil, err
	}

	transfer.Version = oldVersion + 1
	line.ReceivedQuantity = cumulative
	r.ledger.invalidateLevel(ctx, line.ProductID, transfer.ToLocation)
	return movement, nil
}

// Complete closes a fully received transfer. The caller has verified every
// line; the status guard keeps a racing receipt or cancel out.
func (r *TransferRepository) Complete(ctx context.Context, transfer *models.TransferRequest, receiverID string) error {
	now := time.Now()
	oldVersion := transfer.Version

	result := r.db.WithContext(ctx).Model(&models.TransferRequest{}).
		Where("id = ? AND status = ? AND version = ?",
			transfer.ID, models.TransferStatusInTransit, oldVersion).
		Updates(map[string]interface{}{
			"status":      models.TransferStatusReceived,
			"received_by": receiverID,
			"received_at": now,
			"version":     oldVersion + 1,
			"updated_at":  now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	transfer.Status = models.TransferStatusReceived
	transfer.Version = oldVersion + 1
	transfer.ReceivedBy = &receiverID
	transfer.ReceivedAt = &now
	return nil
}

// Cancel withdraws a PENDING transfer. Once shipped, stock has left the
// source and a plain cancel would strand it; the service refuses that
// transition.
func (r *TransferRepository) Cancel(ctx context.Context, transfer *models.TransferRequest) error {
	oldVersion := transfer.Version

	result := r.db.WithContext(ctx).Model(&models.TransferRequest{}).
		Where("id = ? AND status = ? AND version = ?",
			transfer.ID, models.TransferStatusPending, oldVersion).
		Updates(map[string]interface{}{
			"status":     models.TransferStatusCancelled,
			"version":    oldVersion + 1,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	transfer.Status = models.TransferStatusCancelled
	transfer.Version = oldVersion + 1
	return nil
}
