package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stock-reconciliation-service/internal/events"
	"stock-reconciliation-service/internal/models"
	"stock-reconciliation-service/internal/repository"
)

// CreateCycleCount opens a blind counting session. System quantities are
// frozen into the lines at creation and withheld from the counter
// projection until completion.
func (c *Coordinator) CreateCycleCount(ctx context.Context, req *models.CreateCycleCountRequest, actor string) (*models.CycleCountSession, error) {
	if err := c.requireLocation(ctx, req.Location); err != nil {
		return nil, err
	}
	if err := uniqueProducts(req.ProductIDs); err != nil {
		return nil, err
	}

	levels, err := c.ledger.GetLevels(ctx, req.Location, req.ProductIDs)
	if err != nil {
		return nil, err
	}

	number, err := c.cycleCounts.GenerateSessionNumber(ctx)
	if err != nil {
		return nil, err
	}

	session := &models.CycleCountSession{
		Number:    number,
		Location:  req.Location,
		Notes:     req.Notes,
		CreatedBy: actor,
		Lines:     make([]models.CycleCountLine, 0, len(req.ProductIDs)),
	}
	for _, productID := range req.ProductIDs {
		system := 0
		if level, ok := levels[productID]; ok {
			system = level.OnHand
		}
		session.Lines = append(session.Lines, models.CycleCountLine{
			ProductID:      productID,
			SystemQuantity: system,
		})
	}

	if err := c.cycleCounts.Create(ctx, session); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"sessionId": session.ID,
		"number":    session.Number,
		"location":  session.Location,
		"lines":     len(session.Lines),
		"createdBy": actor,
	}).Info("Cycle count session opened")

	return session, nil
}

// GetCycleCount retrieves the full session including frozen system
// quantities. Reviewer access only; counters get GetCycleCountForCounter.
func (c *Coordinator) GetCycleCount(ctx context.Context, id uuid.UUID) (*models.CycleCountSession, error) {
	return c.cycleCounts.GetByID(ctx, id)
}

// GetCycleCountForCounter retrieves the counter projection of a session.
// The projection omits system quantities and variances by construction.
func (c *Coordinator) GetCycleCountForCounter(ctx context.Context, id uuid.UUID) (*models.CycleCountCounterView, error) {
	session, err := c.cycleCounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return session.CounterView(), nil
}

// ListCycleCounts lists sessions filtered by status and location
func (c *Coordinator) ListCycleCounts(ctx context.Context, status *models.CycleCountStatus, location *string, page, limit int) ([]models.CycleCountSession, int64, error) {
	return c.cycleCounts.List(ctx, status, location, page, limit)
}

// RecordCount stores a counted quantity against one line of an OPEN
// session. Re-counting the same product overwrites the previous entry.
func (c *Coordinator) RecordCount(ctx context.Context, id uuid.UUID, req *models.RecordCountRequest, counter string) (*models.CycleCountCounterView, error) {
	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		session, err := c.cycleCounts.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if session.Status != models.CycleCountStatusOpen {
			return nil, fmt.Errorf("%w: session %s is %s", ErrInvalidState, session.Number, session.Status)
		}

		var line *models.CycleCountLine
		for i := range session.Lines {
			if session.Lines[i].ProductID == req.ProductID {
				line = &session.Lines[i]
				break
			}
		}
		if line == nil {
			return nil, fmt.Errorf("%w: product %s is not part of session %s", ErrValidation, req.ProductID, session.Number)
		}

		if err := c.cycleCounts.RecordCount(ctx, session, line, *req.CountedQuantity, counter); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		c.logger.WithFields(logrus.Fields{
			"sessionId": session.ID,
			"number":    session.Number,
			"productId": req.ProductID,
			"countedBy": counter,
		}).Info("Cycle count recorded")

		return session.CounterView(), nil
	}
	return nil, lastErr
}

// CompleteCycleCount closes an OPEN session once every line has been
// counted, persists the variances and returns the variance report. The
// ledger is never touched here; corrections flow through the adjustment
// approval gate via ConvertCycleCount.
func (c *Coordinator) CompleteCycleCount(ctx context.Context, id uuid.UUID, actor string) (*models.VarianceReport, error) {
	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		session, err := c.cycleCounts.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if session.Status != models.CycleCountStatusOpen {
			return nil, fmt.Errorf("%w: session %s is %s", ErrInvalidState, session.Number, session.Status)
		}
		for _, line := range session.Lines {
			if line.CountedQuantity == nil {
				return nil, fmt.Errorf("%w: product %s has not been counted", ErrValidation, line.ProductID)
			}
		}

		if err := c.cycleCounts.Complete(ctx, session); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		report := buildVarianceReport(session)

		c.logger.WithFields(logrus.Fields{
			"sessionId":     session.ID,
			"number":        session.Number,
			"location":      session.Location,
			"totalVariance": report.TotalVariance,
			"completedBy":   actor,
		}).Info("Cycle count session completed")

		if c.events != nil {
			deltas := make([]events.LineDelta, 0, len(report.Lines))
			for _, line := range report.Lines {
				if line.Variance == 0 {
					continue
				}
				deltas = append(deltas, events.LineDelta{
					ProductID:       line.ProductID,
					Delta:           line.Variance,
					ResultingOnHand: line.SystemQuantity,
				})
			}
			_ = c.events.PublishCycleCountCompleted(ctx, session.ID, session.Number, session.Location, deltas)
		}
		return report, nil
	}
	return nil, lastErr
}

// GetVarianceReport rebuilds the report for a COMPLETED session
func (c *Coordinator) GetVarianceReport(ctx context.Context, id uuid.UUID) (*models.VarianceReport, error) {
	session, err := c.cycleCounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status != models.CycleCountStatusCompleted {
		return nil, fmt.Errorf("%w: session %s is %s, variances are revealed at completion", ErrInvalidState, session.Number, session.Status)
	}
	return buildVarianceReport(session), nil
}

// CancelCycleCount abandons an OPEN session without revealing variances
func (c *Coordinator) CancelCycleCount(ctx context.Context, id uuid.UUID, actor string) error {
	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		session, err := c.cycleCounts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if session.Status != models.CycleCountStatusOpen {
			return fmt.Errorf("%w: session %s is %s", ErrInvalidState, session.Number, session.Status)
		}

		if err := c.cycleCounts.Cancel(ctx, session); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return err
		}

		c.logger.WithFields(logrus.Fields{
			"sessionId":   session.ID,
			"number":      session.Number,
			"cancelledBy": actor,
		}).Info("Cycle count session cancelled")
		return nil
	}
	return lastErr
}

// ConvertCycleCount turns the nonzero variances of a COMPLETED session
// into a PENDING stock adjustment. The adjustment takes fresh snapshots
// at submission, not the session's frozen quantities, so stock that
// moved since the count still trips the approval-time check. A session
// converts at most once.
func (c *Coordinator) ConvertCycleCount(ctx context.Context, id uuid.UUID, actor, idemKey string) (*models.StockAdjustment, error) {
	session, err := c.cycleCounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status != models.CycleCountStatusCompleted {
		return nil, fmt.Errorf("%w: session %s is %s", ErrInvalidState, session.Number, session.Status)
	}
	if session.AdjustmentID != nil {
		// A retried convert with the same key replays the adjustment it
		// produced the first time.
		if record, replayErr := c.replayedResource(ctx, idemKey, "submitAdjustment"); replayErr == nil && record != nil && record.ResourceID == *session.AdjustmentID {
			return c.adjustments.GetByID(ctx, record.ResourceID)
		}
		return nil, fmt.Errorf("%w: session %s was already converted", ErrInvalidState, session.Number)
	}

	lines := make([]models.AdjustmentLineRequest, 0, len(session.Lines))
	for i := range session.Lines {
		line := session.Lines[i]
		if line.Variance == nil || *line.Variance == 0 {
			continue
		}
		lines = append(lines, models.AdjustmentLineRequest{
			ProductID:        line.ProductID,
			AdjustedQuantity: line.CountedQuantity,
		})
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: session %s has no variances to correct", ErrValidation, session.Number)
	}

	notes := fmt.Sprintf("Cycle count %s", session.Number)
	adjustment, err := c.SubmitAdjustment(ctx, &models.SubmitAdjustmentRequest{
		Location: session.Location,
		Reason:   models.AdjustmentReasonCycleCount,
		Notes:    &notes,
		Lines:    lines,
	}, actor, idemKey)
	if err != nil {
		return nil, err
	}

	if err := c.cycleCounts.LinkAdjustment(ctx, session, adjustment.ID); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			// A concurrent convert won the link; its adjustment stands,
			// ours is withdrawn.
			if _, cancelErr := c.CancelAdjustment(ctx, adjustment.ID, actor); cancelErr != nil {
				c.logger.WithError(cancelErr).WithField("adjustmentId", adjustment.ID).
					Warn("Failed to withdraw orphaned conversion adjustment")
			}
			return nil, fmt.Errorf("%w: session %s was already converted", ErrInvalidState, session.Number)
		}
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"sessionId":    session.ID,
		"number":       session.Number,
		"adjustmentId": adjustment.ID,
		"convertedBy":  actor,
	}).Info("Cycle count converted to adjustment")

	return adjustment, nil
}

func buildVarianceReport(session *models.CycleCountSession) *models.VarianceReport {
	report := &models.VarianceReport{
		SessionID: session.ID,
		Number:    session.Number,
		Location:  session.Location,
		Lines:     make([]models.VarianceLine, 0, len(session.Lines)),
	}
	if session.CompletedAt != nil {
		report.CompletedAt = *session.CompletedAt
	}
	for _, line := range session.Lines {
		counted, variance := 0, 0
		if line.CountedQuantity != nil {
			counted = *line.CountedQuantity
		}
		if line.Variance != nil {
			variance = *line.Variance
		}
		report.Lines = append(report.Lines, models.VarianceLine{
			LineNo:          line.LineNo,
			ProductID:       line.ProductID,
			SystemQuantity:  line.SystemQuantity,
			CountedQuantity: counted,
			Variance:        variance,
		})
		report.TotalVariance += variance
	}
	return report
}
