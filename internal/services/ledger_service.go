package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stock-reconciliation-service/internal/models"
	"stock-reconciliation-service/internal/repository"
)

// GetStockLevel retrieves the level for one product at one location
func (c *Coordinator) GetStockLevel(ctx context.Context, productID, location string) (*models.StockLevel, error) {
	return c.ledger.GetLevel(ctx, productID, location)
}

// ListStockLevels pages through levels, optionally scoped to a location
func (c *Coordinator) ListStockLevels(ctx context.Context, location *string, page, limit int) ([]models.StockLevel, int64, error) {
	return c.ledger.ListLevels(ctx, location, page, limit)
}

// GetLowStock returns levels whose available quantity has fallen to the
// reorder point or below
func (c *Coordinator) GetLowStock(ctx context.Context, location *string) ([]models.StockLevel, error) {
	return c.ledger.GetLowStock(ctx, location)
}

// UpdateStockPolicy sets replenishment thresholds on a level, creating a
// zero row if the product has never moved at the location
func (c *Coordinator) UpdateStockPolicy(ctx context.Context, req *models.UpdateStockPolicyRequest) (*models.StockLevel, error) {
	if err := c.requireLocation(ctx, req.Location); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.ReorderPoint != nil {
		updates["reorder_point"] = *req.ReorderPoint
	}
	if req.ReorderQuantity != nil {
		updates["reorder_quantity"] = *req.ReorderQuantity
	}
	if req.MinimumStock != nil {
		updates["minimum_stock"] = *req.MinimumStock
	}
	if req.MaximumStock != nil {
		updates["maximum_stock"] = *req.MaximumStock
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: no policy fields to update", ErrValidation)
	}
	if req.MinimumStock != nil && req.MaximumStock != nil && *req.MinimumStock > *req.MaximumStock {
		return nil, fmt.Errorf("%w: minimum stock exceeds maximum stock", ErrValidation)
	}

	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		level, err := c.ledger.EnsureLevel(ctx, req.ProductID, req.Location)
		if err != nil {
			return nil, err
		}
		if err := c.ledger.UpdatePolicy(ctx, level, updates); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		c.logger.WithFields(logrus.Fields{
			"productId": req.ProductID,
			"location":  req.Location,
		}).Info("Stock policy updated")
		return level, nil
	}
	return nil, lastErr
}

// SetReservation records the absolute reserved quantity for a level. The
// order collaborator owns reservation lifecycles; the ledger only keeps
// the number so available stays meaningful.
func (c *Coordinator) SetReservation(ctx context.Context, req *models.SetReservationRequest) (*models.StockLevel, error) {
	if err := c.requireLocation(ctx, req.Location); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		level, err := c.ledger.EnsureLevel(ctx, req.ProductID, req.Location)
		if err != nil {
			return nil, err
		}
		reserved := *req.Reserved
		if reserved > level.OnHand {
			return nil, fmt.Errorf("%w: cannot reserve %d of %d on hand for product %s", ErrValidation, reserved, level.OnHand, req.ProductID)
		}
		if err := c.ledger.SetReservation(ctx, level, reserved); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		c.logger.WithFields(logrus.Fields{
			"productId": req.ProductID,
			"location":  req.Location,
			"reserved":  reserved,
		}).Info("Reservation updated")
		return level, nil
	}
	return nil, lastErr
}

// ListMovements pages through the audit trail with optional filters
func (c *Coordinator) ListMovements(ctx context.Context, filter repository.MovementFilter, page, limit int) ([]models.MovementRecord, int64, error) {
	return c.ledger.ListMovements(ctx, filter, page, limit)
}

// GetOperationMovements returns every movement of one logical operation
// in line order
func (c *Coordinator) GetOperationMovements(ctx context.Context, operationID uuid.UUID) ([]models.MovementRecord, error) {
	return c.ledger.ListMovementsByOperation(ctx, operationID)
}

// SyncLocations upserts the location registry supplied by the warehouse
// collaborator. Codes are never deleted; deactivation is the retirement
// path.
func (c *Coordinator) SyncLocations(ctx context.Context, req *models.SyncLocationsRequest) ([]models.Location, error) {
	seen := make(map[string]struct{}, len(req.Locations))
	locations := make([]models.Location, 0, len(req.Locations))
	for _, item := range req.Locations {
		if _, ok := seen[item.Code]; ok {
			return nil, fmt.Errorf("%w: duplicate location code %s", ErrValidation, item.Code)
		}
		seen[item.Code] = struct{}{}
		active := true
		if item.Active != nil {
			active = *item.Active
		}
		locations = append(locations, models.Location{
			Code:   item.Code,
			Name:   item.Name,
			Active: active,
		})
	}

	if err := c.locations.Upsert(ctx, locations); err != nil {
		return nil, err
	}

	c.logger.WithField("locations", len(locations)).Info("Location registry synced")
	return c.locations.List(ctx, false)
}

// ListLocations returns the registry, optionally active codes only
func (c *Coordinator) ListLocations(ctx context.Context, activeOnly bool) ([]models.Location, error) {
	return c.locations.List(ctx, activeOnly)
}
