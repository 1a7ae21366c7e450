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

// AdjustmentRepository handles stock adjustment persistence. Approve is the
// only method that touches the ledger, and it does so in one transaction:
// decide the header, re-read each line's level fresh, apply the delta,
// append the movement - or roll the whole thing back.
type AdjustmentRepository struct {
	db     *gorm.DB
	ledger *LedgerRepository
}

func NewAdjustmentRepository(db *gorm.DB, ledger *LedgerRepository) *AdjustmentRepository {
	return &AdjustmentRepository{db: db, ledger: ledger}
}

// GenerateAdjustmentNumber generates a human-readable adjustment number
func (r *AdjustmentRepository) GenerateAdjustmentNumber(ctx context.Context) (string, error) {
	var count int64
	r.db.WithContext(ctx).Model(&models.StockAdjustment{}).Count(&count)
	return fmt.Sprintf("ADJ-%s-%06d", time.Now().Format("200601"), count+1), nil
}

// Create persists a new PENDING adjustment with its lines. When idemKey is
// non-empty it is recorded in the same transaction.
func (r *AdjustmentRepository) Create(ctx context.Context, adjustment *models.StockAdjustment, idemKey string) error {
	if adjustment.Number == "" {
		number, err := r.GenerateAdjustmentNumber(ctx)
		if err != nil {
			return err
		}
		adjustment.Number = number
	}

	adjustment.ID = uuid.New()
	adjustment.Status = models.AdjustmentStatusPending
	adjustment.Version = 1
	adjustment.SubmittedAt = time.Now()
	adjustment.CreatedAt = time.Now()
	adjustment.UpdatedAt = time.Now()

	for i := range adjustment.Lines {
		adjustment.Lines[i].AdjustmentID = adjustment.ID
		adjustment.Lines[i].LineNo = i + 1
		adjustment.Lines[i].CreatedAt = time.Now()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(adjustment).Error; err != nil {
			return err
		}
		return insertIdempotencyTx(tx, idemKey, "submitAdjustment", adjustment.ID)
	})
}

// GetByID retrieves an adjustment with its lines in line order
func (r *AdjustmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StockAdjustment, error) {
	var adjustment models.StockAdjustment
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_no ASC")
		}).
		First(&adjustment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &adjustment, nil
}

// List retrieves adjustments with pagination, newest first
func (r *AdjustmentRepository) List(ctx context.Context, status *models.AdjustmentStatus, location *string, page, limit int) ([]models.StockAdjustment, int64, error) {
	var adjustments []models.StockAdjustment
	var total int64
	query := r.db.WithContext(ctx).Model(&models.StockAdjustment{})

	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if location != nil {
		query = query.Where("location = ?", *location)
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
		Order("submitted_at DESC").
		Find(&adjustments).Error
	return adjustments, total, err
}

// Approve applies an adjustment to the ledger. The submission snapshot is
// informational only: each line's level is re-read fresh inside the
// transaction, and a live on-hand that differs from the snapshot fails the
// approval with ErrStockChanged so a human can re-decide. A lost CAS on
// the header or a level means a concurrent writer; the caller re-reads
// and retries.
func (r *AdjustmentRepository) Approve(ctx context.Context, adjustment *models.StockAdjustment, approverID string) ([]models.MovementRecord, error) {
	now := time.Now()
	oldVersion := adjustment.Version
	movements := make([]models.MovementRecord, 0, len(adjustment.Lines))

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Decide the header first; the status guard makes approve/reject
		// single-fire even under concurrent decisions.
		result := tx.Model(&models.StockAdjustment{}).
			Where("id = ? AND status = ? AND version = ?",
				adjustment.ID, models.AdjustmentStatusPending, oldVersion).
			Updates(map[string]interface{}{
				"status":     models.AdjustmentStatusApproved,
				"decided_by": approverID,
				"decided_at": now,
				"version":    oldVersion + 1,
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrVersionConflict
		}

		for i := range adjustment.Lines {
			line := &adjustment.Lines[i]

			level, err := getOrCreateLevelTx(tx, line.ProductID, adjustment.Location)
			if err != nil {
				return err
			}
			if level.OnHand != line.CurrentQuantity {
				return fmt.Errorf("%w: product %s at %s was %d at submission, now %d",
					ErrStockChanged, line.ProductID, adjustment.Location,
					line.CurrentQuantity, level.OnHand)
			}

			record, err := applyDeltaTx(tx, level, line.Difference, movementStamp{
				OperationID: adjustment.ID,
				LineNo:      line.LineNo,
				SourceType:  adjustmentSourceType(adjustment.Reason),
				SourceID:    adjustment.ID,
				RecordedBy:  approverID,
			})
			if err != nil {
				return err
			}
			movements = append(movements, *record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	adjustment.Status = models.AdjustmentStatusApproved
	adjustment.Version = oldVersion + 1
	adjustment.DecidedBy = &approverID
	adjustment.DecidedAt = &now

	for _, line := range adjustment.Lines {
		r.ledger.invalidateLevel(ctx, line.ProductID, adjustment.Location)
	}
	return movements, nil
}

// adjustmentSourceType maps the adjustment reason onto the movement source
func adjustmentSourceType(reason models.AdjustmentReason) models.MovementSourceType {
	if reason == models.AdjustmentReasonCycleCount {
		return models.MovementSourceCycleCountCorrection
	}
	return models.MovementSourceAdjustment
}

// Reject closes an adjustment without touching the ledger
func (r *AdjustmentRepository) Reject(ctx context.Context, adjustment *models.StockAdjustment, approverID, reason string) error {
	now := time.Now()
	oldVersion := adjustment.Version

	result := r.db.WithContext(ctx).Model(&models.StockAdjustment{}).
		Where("id = ? AND status = ? AND version = ?",
			adjustment.ID, models.AdjustmentStatusPending, oldVersion).
		Updates(map[string]interface{}{
			"status":           models.AdjustmentStatusRejected,
			"decided_by":       approverID,
			"decided_at":       now,
			"rejection_reason": reason,
			"version":          oldVersion + 1,
			"updated_at":       now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	adjustment.Status = models.AdjustmentStatusRejected
	adjustment.Version = oldVersion + 1
	adjustment.DecidedBy = &approverID
	adjustment.DecidedAt = &now
	adjustment.RejectionReason = &reason
	return nil
}

// Cancel withdraws a PENDING adjustment. No ledger row was ever touched,
// so this is a pure status transition.
func (r *AdjustmentRepository) Cancel(ctx context.Context, adjustment *models.StockAdjustment) error {
	oldVersion := adjustment.Version

	result := r.db.WithContext(ctx).Model(&models.StockAdjustment{}).
		Where("id = ? AND status = ? AND version = ?",
			adjustment.ID, models.AdjustmentStatusPending, oldVersion).
		Updates(map[string]interface{}{
			"status":     models.AdjustmentStatusCancelled,
			"version":    oldVersion + 1,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	adjustment.Status = models.AdjustmentStatusCancelled
	adjustment.Version = oldVersion + 1
	return nil
}
