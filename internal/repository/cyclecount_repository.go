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

// CycleCountRepository handles counting session persistence. Sessions never
// touch the ledger here - corrections travel through the adjustment
// approval gate. Every line write is serialized against completion by a
// CAS bump of the session version.
type CycleCountRepository struct {
	db *gorm.DB
}

func NewCycleCountRepository(db *gorm.DB) *CycleCountRepository {
	return &CycleCountRepository{db: db}
}

// GenerateSessionNumber generates a human-readable session number
func (r *CycleCountRepository) GenerateSessionNumber(ctx context.Context) (string, error) {
	var count int64
	r.db.WithContext(ctx).Model(&models.CycleCountSession{}).Count(&count)
	return fmt.Sprintf("CC-%s-%06d", time.Now().Format("200601"), count+1), nil
}

// Create persists a new OPEN session with system quantities already frozen
// into the lines by the caller.
func (r *CycleCountRepository) Create(ctx context.Context, session *models.CycleCountSession) error {
	if session.Number == "" {
		number, err := r.GenerateSessionNumber(ctx)
		if err != nil {
			return err
		}
		session.Number = number
	}

	session.ID = uuid.New()
	session.Status = models.CycleCountStatusOpen
	session.Version = 1
	session.CreatedAt = time.Now()
	session.UpdatedAt = time.Now()

	for i := range session.Lines {
		session.Lines[i].SessionID = session.ID
		session.Lines[i].LineNo = i + 1
		session.Lines[i].CreatedAt = time.Now()
		session.Lines[i].UpdatedAt = time.Now()
	}

	return r.db.WithContext(ctx).Create(session).Error
}

// GetByID retrieves a session with its lines in line order
func (r *CycleCountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CycleCountSession, error) {
	var session models.CycleCountSession
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_no ASC")
		}).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// List retrieves sessions with pagination, newest first
func (r *CycleCountRepository) List(ctx context.Context, status *models.CycleCountStatus, location *string, page, limit int) ([]models.CycleCountSession, int64, error) {
	var sessions []models.CycleCountSession
	var total int64
	query := r.db.WithContext(ctx).Model(&models.CycleCountSession{})

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
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, total, err
}

// RecordCount stores a counter's quantity for one line, overwriting any
// prior count. The CAS bump of the session version keeps the write from
// racing a concurrent complete or cancel.
func (r *CycleCountRepository) RecordCount(ctx context.Context, session *models.CycleCountSession, line *models.CycleCountLine, counted int, counterID string) error {
	now := time.Now()
	oldVersion := session.Version

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.CycleCountSession{}).
			Where("id = ? AND status = ? AND version = ?",
				session.ID, models.CycleCountStatusOpen, oldVersion).
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

		return tx.Model(&models.CycleCountLine{}).
			Where("id = ?", line.ID).
			Updates(map[string]interface{}{
				"counted_quantity": counted,
				"counted_by":       counterID,
				"counted_at":       now,
				"updated_at":       now,
			}).Error
	})
	if err != nil {
		return err
	}

	session.Version = oldVersion + 1
	line.CountedQuantity = &counted
	line.CountedBy = &counterID
	line.CountedAt = &now
	return nil
}

// Complete closes the session and reveals variances. The caller has
// verified every line carries a count; this persists the computed
// variances and the terminal status in one transaction. The ledger is
// untouched.
func (r *CycleCountRepository) Complete(ctx context.Context, session *models.CycleCountSession) error {
	now := time.Now()
	oldVersion := session.Version

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.CycleCountSession{}).
			Where("id = ? AND status = ? AND version = ?",
				session.ID, models.CycleCountStatusOpen, oldVersion).
			Updates(map[string]interface{}{
				"status":       models.CycleCountStatusCompleted,
				"completed_at": now,
				"version":      oldVersion + 1,
				"updated_at":   now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrVersionConflict
		}

		for i := range session.Lines {
			line := &session.Lines[i]
			variance := *line.CountedQuantity - line.SystemQuantity
			if err := tx.Model(&models.CycleCountLine{}).
				Where("id = ?", line.ID).
				Updates(map[string]interface{}{
					"variance":   variance,
					"updated_at": now,
				}).Error; err != nil {
				return err
			}
			line.Variance = &variance
		}
		return nil
	})
	if err != nil {
		return err
	}

	session.Status = models.CycleCountStatusCompleted
	session.Version = oldVersion + 1
	session.CompletedAt = &now
	return nil
}

// Cancel abandons an OPEN session
func (r *CycleCountRepository) Cancel(ctx context.Context, session *models.CycleCountSession) error {
	oldVersion := session.Version

	result := r.db.WithContext(ctx).Model(&models.CycleCountSession{}).
		Where("id = ? AND status = ? AND version = ?",
			session.ID, models.CycleCountStatusOpen, oldVersion).
		Updates(map[string]interface{}{
			"status":     models.CycleCountStatusCancelled,
			"version":    oldVersion + 1,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	session.Status = models.CycleCountStatusCancelled
	session.Version = oldVersion + 1
	return nil
}

// LinkAdjustment records the adjustment a completed session was converted
// into. The adjustment_id IS NULL guard makes conversion single-fire.
func (r *CycleCountRepository) LinkAdjustment(ctx context.Context, session *models.CycleCountSession, adjustmentID uuid.UUID) error {
	oldVersion := session.Version

	result := r.db.WithContext(ctx).Model(&models.CycleCountSession{}).
		Where("id = ? AND status = ? AND version = ? AND adjustment_id IS NULL",
			session.ID, models.CycleCountStatusCompleted, oldVersion).
		Updates(map[string]interface{}{
			"adjustment_id": adjustmentID,
			"version":       oldVersion + 1,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	session.AdjustmentID = &adjustmentID
	session.Version = oldVersion + 1
	return nil
}
