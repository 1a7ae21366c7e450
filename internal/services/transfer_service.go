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

// CreateTransfer raises a PENDING transfer request between two distinct
// registered locations. No stock moves until shipment.
func (c *Coordinator) CreateTransfer(ctx context.Context, req *models.CreateTransferRequest, actor, idemKey string) (*models.TransferRequest, error) {
	if req.FromLocation == req.ToLocation {
		return nil, fmt.Errorf("%w: source and destination location must differ", ErrValidation)
	}
	if err := c.requireLocation(ctx, req.FromLocation); err != nil {
		return nil, err
	}
	if err := c.requireLocation(ctx, req.ToLocation); err != nil {
		return nil, err
	}

	productIDs := make([]string, 0, len(req.Lines))
	for _, line := range req.Lines {
		productIDs = append(productIDs, line.ProductID)
	}
	if err := uniqueProducts(productIDs); err != nil {
		return nil, err
	}

	if record, err := c.replayedResource(ctx, idemKey, "createTransfer"); err != nil {
		return nil, err
	} else if record != nil {
		return c.transfers.GetByID(ctx, record.ResourceID)
	}

	number, err := c.transfers.GenerateTransferNumber(ctx)
	if err != nil {
		return nil, err
	}

	transfer := &models.TransferRequest{
		Number:       number,
		FromLocation: req.FromLocation,
		ToLocation:   req.ToLocation,
		OrderID:      req.OrderID,
		Notes:        req.Notes,
		RequestedBy:  actor,
		Lines:        make([]models.TransferLine, 0, len(req.Lines)),
	}
	for _, line := range req.Lines {
		transfer.Lines = append(transfer.Lines, models.TransferLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}

	if err := c.transfers.Create(ctx, transfer, idemKey); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			if record, replayErr := c.replayedResource(ctx, idemKey, "createTransfer"); replayErr == nil && record != nil {
				return c.transfers.GetByID(ctx, record.ResourceID)
			}
		}
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"transferId":   transfer.ID,
		"number":       transfer.Number,
		"fromLocation": transfer.FromLocation,
		"toLocation":   transfer.ToLocation,
		"lines":        len(transfer.Lines),
		"requestedBy":  actor,
	}).Info("Transfer request created")

	return transfer, nil
}

// GetTransfer retrieves one transfer with its lines
func (c *Coordinator) GetTransfer(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error) {
	return c.transfers.GetByID(ctx, id)
}

// ListTransfers lists transfers filtered by status and location
func (c *Coordinator) ListTransfers(ctx context.Context, status *models.TransferStatus, location *string, page, limit int) ([]models.TransferRequest, int64, error) {
	return c.transfers.List(ctx, status, location, page, limit)
}

// ShipTransfer debits the source location for every line at once and
// moves the transfer to IN_TRANSIT. Any line lacking stock aborts the
// whole shipment.
func (c *Coordinator) ShipTransfer(ctx context.Context, id uuid.UUID, actor, idemKey string) (*models.TransferRequest, error) {
	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		transfer, err := c.transfers.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if transfer.Status != models.TransferStatusPending {
			if record, replayErr := c.replayedResource(ctx, idemKey, "shipTransfer"); replayErr == nil && record != nil && record.ResourceID == transfer.ID {
				return transfer, nil
			}
			return nil, fmt.Errorf("%w: transfer %s is %s", ErrInvalidState, transfer.Number, transfer.Status)
		}

		movements, err := c.transfers.Ship(ctx, transfer, actor, idemKey)
		if err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		c.logger.WithFields(logrus.Fields{
			"transferId":   transfer.ID,
			"number":       transfer.Number,
			"fromLocation": transfer.FromLocation,
			"shippedBy":    actor,
			"movements":    len(movements),
		}).Info("Transfer shipped")

		if c.events != nil {
			_ = c.events.PublishTransferShipped(ctx, transfer.ID, transfer.Number, transfer.FromLocation, transfer.ToLocation, actor, lineDeltas(movements))
		}
		return transfer, nil
	}
	return nil, lastErr
}

// RecordReceipt records the cumulative received quantity for one line of
// an IN_TRANSIT transfer and credits the destination with the delta over
// the previous receipt. Repeating the same cumulative value is a no-op,
// which makes retried receipt reports safe.
func (c *Coordinator) RecordReceipt(ctx context.Context, id uuid.UUID, req *models.RecordReceiptRequest, actor, idemKey string) (*models.TransferRequest, error) {
	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		transfer, err := c.transfers.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if transfer.Status != models.TransferStatusInTransit {
			if record, replayErr := c.replayedResource(ctx, idemKey, "recordReceipt"); replayErr == nil && record != nil && record.ResourceID == transfer.ID {
				return transfer, nil
			}
			return nil, fmt.Errorf("%w: transfer %s is %s", ErrInvalidState, transfer.Number, transfer.Status)
		}

		var line *models.TransferLine
		for i := range transfer.Lines {
			if transfer.Lines[i].ID == req.LineID {
				line = &transfer.Lines[i]
				break
			}
		}
		if line == nil {
			return nil, fmt.Errorf("%w: line %s is not part of transfer %s", ErrValidation, req.LineID, transfer.Number)
		}

		cumulative := *req.ReceivedQuantity
		if cumulative > line.Quantity {
			return nil, fmt.Errorf("%w: received %d exceeds requested %d for product %s", ErrValidation, cumulative, line.Quantity, line.ProductID)
		}
		if cumulative < line.ReceivedQuantity {
			return nil, fmt.Errorf("%w: received quantity cannot shrink from %d to %d for product %s", ErrValidation, line.ReceivedQuantity, cumulative, line.ProductID)
		}
		if cumulative == line.ReceivedQuantity {
			return transfer, nil
		}

		if record, replayErr := c.replayedResource(ctx, idemKey, "recordReceipt"); replayErr != nil {
			return nil, replayErr
		} else if record != nil {
			if record.ResourceID != transfer.ID {
				return nil, fmt.Errorf("%w: idempotency key already used for another transfer", ErrValidation)
			}
			return transfer, nil
		}

		movement, err := c.transfers.RecordReceipt(ctx, transfer, line, cumulative, actor, idemKey)
		if err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		c.logger.WithFields(logrus.Fields{
			"transferId": transfer.ID,
			"number":     transfer.Number,
			"productId":  line.ProductID,
			"cumulative": cumulative,
			"receivedBy": actor,
		}).Info("Transfer receipt recorded")

		if c.events != nil && movement != nil {
			_ = c.events.PublishTransferReceipt(ctx, transfer.ID, transfer.Number, transfer.ToLocation, actor, []events.LineDelta{{
				ProductID:       movement.ProductID,
				Delta:           movement.Delta,
				ResultingOnHand: movement.ResultingOnHand,
			}})
		}
		return transfer, nil
	}
	return nil, lastErr
}

// CompleteTransfer closes an IN_TRANSIT transfer once every line has
// been received in full
func (c *Coordinator) CompleteTransfer(ctx context.Context, id uuid.UUID, actor string) (*models.TransferRequest, error) {
	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		transfer, err := c.transfers.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if transfer.Status != models.TransferStatusInTransit {
			return nil, fmt.Errorf("%w: transfer %s is %s", ErrInvalidState, transfer.Number, transfer.Status)
		}
		if !transfer.FullyReceived() {
			return nil, fmt.Errorf("%w: transfer %s has lines not yet received in full", ErrInvalidState, transfer.Number)
		}

		if err := c.transfers.Complete(ctx, transfer, actor); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		c.logger.WithFields(logrus.Fields{
			"transferId": transfer.ID,
			"number":     transfer.Number,
			"receivedBy": actor,
		}).Info("Transfer completed")

		if c.events != nil {
			_ = c.events.PublishTransferCompleted(ctx, transfer.ID, transfer.Number, transfer.ToLocation, actor)
		}
		return transfer, nil
	}
	return nil, lastErr
}

// CancelTransfer withdraws a PENDING transfer. An IN_TRANSIT transfer
// cannot be cancelled; shipped stock has to be received somewhere.
func (c *Coordinator) CancelTransfer(ctx context.Context, id uuid.UUID, actor string) (*models.TransferRequest, error) {
	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		transfer, err := c.transfers.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if transfer.Status != models.TransferStatusPending {
			return nil, fmt.Errorf("%w: transfer %s is %s", ErrInvalidState, transfer.Number, transfer.Status)
		}

		if err := c.transfers.Cancel(ctx, transfer); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		c.logger.WithFields(logrus.Fields{
			"transferId":  transfer.ID,
			"number":      transfer.Number,
			"cancelledBy": actor,
		}).Info("Transfer cancelled")
		return transfer, nil
	}
	return nil, lastErr
}
