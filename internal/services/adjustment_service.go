package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stock-reconciliation-service/internal/models"
	"stock-reconciliation-service/internal/repository"
)

// SubmitAdjustment records a PENDING quantity correction proposal. Each
// line carries a snapshot of the current on-hand and level version; the
// snapshot informs the approver, the authoritative check happens again
// at approval time.
func (c *Coordinator) SubmitAdjustment(ctx context.Context, req *models.SubmitAdjustmentRequest, actor, idemKey string) (*models.StockAdjustment, error) {
	if !models.ValidAdjustmentReason(req.Reason) {
		return nil, fmt.Errorf("%w: unknown adjustment reason %s", ErrValidation, req.Reason)
	}
	if err := c.requireLocation(ctx, req.Location); err != nil {
		return nil, err
	}

	productIDs := make([]string, 0, len(req.Lines))
	for _, line := range req.Lines {
		productIDs = append(productIDs, line.ProductID)
	}
	if err := uniqueProducts(productIDs); err != nil {
		return nil, err
	}

	if record, err := c.replayedResource(ctx, idemKey, "submitAdjustment"); err != nil {
		return nil, err
	} else if record != nil {
		return c.adjustments.GetByID(ctx, record.ResourceID)
	}

	levels, err := c.ledger.GetLevels(ctx, req.Location, productIDs)
	if err != nil {
		return nil, err
	}

	number, err := c.adjustments.GenerateAdjustmentNumber(ctx)
	if err != nil {
		return nil, err
	}

	adjustment := &models.StockAdjustment{
		Number:      number,
		Location:    req.Location,
		Reason:      req.Reason,
		Notes:       req.Notes,
		SubmittedBy: actor,
		Lines:       make([]models.AdjustmentLine, 0, len(req.Lines)),
	}
	for _, line := range req.Lines {
		// Missing level means the product has never moved here; the
		// snapshot is zero at version zero and approval creates the row.
		current, version := 0, 0
		if level, ok := levels[line.ProductID]; ok {
			current = level.OnHand
			version = level.Version
		}
		adjusted := *line.AdjustedQuantity
		adjustment.Lines = append(adjustment.Lines, models.AdjustmentLine{
			ProductID:        line.ProductID,
			CurrentQuantity:  current,
			LevelVersion:     version,
			AdjustedQuantity: adjusted,
			Difference:       adjusted - current,
			Notes:            line.Notes,
		})
	}

	if err := c.adjustments.Create(ctx, adjustment, idemKey); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// Lost a race with a concurrent retry of the same request
			if record, replayErr := c.replayedResource(ctx, idemKey, "submitAdjustment"); replayErr == nil && record != nil {
				return c.adjustments.GetByID(ctx, record.ResourceID)
			}
		}
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"adjustmentId": adjustment.ID,
		"number":       adjustment.Number,
		"location":     adjustment.Location,
		"reason":       adjustment.Reason,
		"lines":        len(adjustment.Lines),
		"submittedBy":  actor,
	}).Info("Stock adjustment submitted")

	return adjustment, nil
}

// GetAdjustment retrieves one adjustment with its lines
func (c *Coordinator) GetAdjustment(ctx context.Context, id uuid.UUID) (*models.StockAdjustment, error) {
	return c.adjustments.GetByID(ctx, id)
}

// ListAdjustments lists adjustments filtered by status and location
func (c *Coordinator) ListAdjustments(ctx context.Context, status *models.AdjustmentStatus, location *string, page, limit int) ([]models.StockAdjustment, int64, error) {
	return c.adjustments.List(ctx, status, location, page, limit)
}

// ApproveAdjustment applies a PENDING adjustment to the ledger. The
// submitter cannot approve their own proposal. Live on-hand differing
// from the submission snapshot aborts with ErrStockChanged so a human
// re-decides against fresh numbers; only pure version races are retried
// with re-reads.
func (c *Coordinator) ApproveAdjustment(ctx context.Context, id uuid.UUID, approver string) (*models.StockAdjustment, error) {
	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		adjustment, err := c.adjustments.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if adjustment.Status != models.AdjustmentStatusPending {
			return nil, fmt.Errorf("%w: adjustment %s is %s", ErrInvalidState, adjustment.Number, adjustment.Status)
		}
		if adjustment.SubmittedBy == approver {
			return nil, fmt.Errorf("%w: submitter cannot approve their own adjustment", ErrValidation)
		}

		movements, err := c.adjustments.Approve(ctx, adjustment, approver)
		if err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		c.logger.WithFields(logrus.Fields{
			"adjustmentId": adjustment.ID,
			"number":       adjustment.Number,
			"approvedBy":   approver,
			"movements":    len(movements),
		}).Info("Stock adjustment approved")

		if c.events != nil {
			_ = c.events.PublishAdjustmentApproved(ctx, adjustment.ID, adjustment.Number, adjustment.Location, approver, lineDeltas(movements))
		}
		return adjustment, nil
	}
	return nil, lastErr
}

// RejectAdjustment declines a PENDING adjustment with a required reason.
// The ledger is untouched.
func (c *Coordinator) RejectAdjustment(ctx context.Context, id uuid.UUID, approver, reason string) (*models.StockAdjustment, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: rejection reason must not be blank", ErrValidation)
	}

	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		adjustment, err := c.adjustments.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if adjustment.Status != models.AdjustmentStatusPending {
			return nil, fmt.Errorf("%w: adjustment %s is %s", ErrInvalidState, adjustment.Number, adjustment.Status)
		}

		if err := c.adjustments.Reject(ctx, adjustment, approver, reason); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		c.logger.WithFields(logrus.Fields{
			"adjustmentId": adjustment.ID,
			"number":       adjustment.Number,
			"rejectedBy":   approver,
		}).Info("Stock adjustment rejected")

		if c.events != nil {
			_ = c.events.PublishAdjustmentRejected(ctx, adjustment.ID, adjustment.Number, adjustment.Location, approver)
		}
		return adjustment, nil
	}
	return nil, lastErr
}

// CancelAdjustment withdraws a PENDING adjustment
func (c *Coordinator) CancelAdjustment(ctx context.Context, id uuid.UUID, actor string) (*models.StockAdjustment, error) {
	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		adjustment, err := c.adjustments.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if adjustment.Status != models.AdjustmentStatusPending {
			return nil, fmt.Errorf("%w: adjustment %s is %s", ErrInvalidState, adjustment.Number, adjustment.Status)
		}

		if err := c.adjustments.Cancel(ctx, adjustment); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		c.logger.WithFields(logrus.Fields{
			"adjustmentId": adjustment.ID,
			"number":       adjustment.Number,
			"cancelledBy":  actor,
		}).Info("Stock adjustment cancelled")
		return adjustment, nil
	}
	return nil, lastErr
}
