// Package services implements the reconciliation coordinator: workflow
// validation, conflict retry and event publishing on top of the
// repository layer.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"stock-reconciliation-service/internal/events"
	"stock-reconciliation-service/internal/models"
	"stock-reconciliation-service/internal/repository"
)

// maxConflictRetries bounds the re-read loop for optimistic lock races.
// Conflicts that survive the retries surface to the caller as-is.
const maxConflictRetries = 3

// Coordinator orchestrates the reconciliation workflows. Each mutating
// method validates, delegates the atomic step to a repository, retries
// pure version races with fresh reads, and publishes an event once the
// commit has happened. The publisher is optional; a nil publisher means
// events are skipped.
type Coordinator struct {
	ledger      repository.LedgerRepositoryInterface
	adjustments repository.AdjustmentRepositoryInterface
	cycleCounts repository.CycleCountRepositoryInterface
	transfers   repository.TransferRepositoryInterface
	locations   repository.LocationRepositoryInterface
	idempotency repository.IdempotencyRepositoryInterface
	events      *events.ReconciliationEventPublisher
	logger      *logrus.Entry
}

func NewCoordinator(
	ledger repository.LedgerRepositoryInterface,
	adjustments repository.AdjustmentRepositoryInterface,
	cycleCounts repository.CycleCountRepositoryInterface,
	transfers repository.TransferRepositoryInterface,
	locations repository.LocationRepositoryInterface,
	idempotency repository.IdempotencyRepositoryInterface,
	publisher *events.ReconciliationEventPublisher,
	logger *logrus.Logger,
) *Coordinator {
	log := logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Coordinator{
		ledger:      ledger,
		adjustments: adjustments,
		cycleCounts: cycleCounts,
		transfers:   transfers,
		locations:   locations,
		idempotency: idempotency,
		events:      publisher,
		logger:      log.WithField("component", "coordinator"),
	}
}

// requireLocation verifies the code is registered and active
func (c *Coordinator) requireLocation(ctx context.Context, code string) error {
	location, err := c.locations.Get(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: unknown location %s", ErrValidation, code)
		}
		return err
	}
	if !location.Active {
		return fmt.Errorf("%w: location %s is inactive", ErrValidation, code)
	}
	return nil
}

// replayedResource resolves an idempotency key that was already
// consumed. A nil return with nil error means the key is unused.
func (c *Coordinator) replayedResource(ctx context.Context, idemKey, operation string) (*models.IdempotencyKey, error) {
	if idemKey == "" {
		return nil, nil
	}
	record, err := c.idempotency.Get(ctx, idemKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if record.Operation != operation {
		return nil, fmt.Errorf("%w: idempotency key %s was used for %s", ErrValidation, idemKey, record.Operation)
	}
	return record, nil
}

func lineDeltas(movements []models.MovementRecord) []events.LineDelta {
	deltas := make([]events.LineDelta, 0, len(movements))
	for _, movement := range movements {
		deltas = append(deltas, events.LineDelta{
			ProductID:       movement.ProductID,
			Delta:           movement.Delta,
			ResultingOnHand: movement.ResultingOnHand,
		})
	}
	return deltas
}

// uniqueProducts rejects duplicate product lines in one request
func uniqueProducts(productIDs []string) error {
	seen := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: duplicate product %s", ErrValidation, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
