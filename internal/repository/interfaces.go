package repository

import (
	"context"

	"github.com/google/uuid"

	"stock-reconciliation-service/internal/models"
)

// Interfaces consumed by the services layer. Kept here next to the
// implementations so the compile-time checks below catch drift.

type LedgerRepositoryInterface interface {
	GetLevel(ctx context.Context, productID, location string) (*models.StockLevel, error)
	GetLevels(ctx context.Context, location string, productIDs []string) (map[string]models.StockLevel, error)
	ListLevels(ctx context.Context, location *string, page, limit int) ([]models.StockLevel, int64, error)
	GetLowStock(ctx context.Context, location *string) ([]models.StockLevel, error)
	UpdatePolicy(ctx context.Context, level *models.StockLevel, updates map[string]interface{}) error
	SetReservation(ctx context.Context, level *models.StockLevel, reserved int) error
	EnsureLevel(ctx context.Context, productID, location string) (*models.StockLevel, error)
	ListMovements(ctx context.Context, filter MovementFilter, page, limit int) ([]models.MovementRecord, int64, error)
	ListMovementsByOperation(ctx context.Context, operationID uuid.UUID) ([]models.MovementRecord, error)
}

type AdjustmentRepositoryInterface interface {
	GenerateAdjustmentNumber(ctx context.Context) (string, error)
	Create(ctx context.Context, adjustment *models.StockAdjustment, idemKey string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StockAdjustment, error)
	List(ctx context.Context, status *models.AdjustmentStatus, location *string, page, limit int) ([]models.StockAdjustment, int64, error)
	Approve(ctx context.Context, adjustment *models.StockAdjustment, approverID string) ([]models.MovementRecord, error)
	Reject(ctx context.Context, adjustment *models.StockAdjustment, approverID, reason string) error
	Cancel(ctx context.Context, adjustment *models.StockAdjustment) error
}

type CycleCountRepositoryInterface interface {
	GenerateSessionNumber(ctx context.Context) (string, error)
	Create(ctx context.Context, session *models.CycleCountSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CycleCountSession, error)
	List(ctx context.Context, status *models.CycleCountStatus, location *string, page, limit int) ([]models.CycleCountSession, int64, error)
	RecordCount(ctx context.Context, session *models.CycleCountSession, line *models.CycleCountLine, counted int, counterID string) error
	Complete(ctx context.Context, session *models.CycleCountSession) error
	Cancel(ctx context.Context, session *models.CycleCountSession) error
	LinkAdjustment(ctx context.Context, session *models.CycleCountSession, adjustmentID uuid.UUID) error
}

type TransferRepositoryInterface interface {
	GenerateTransferNumber(ctx context.Context) (string, error)
	Create(ctx context.Context, transfer *models.TransferRequest, idemKey string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error)
	List(ctx context.Context, status *models.TransferStatus, location *string, page, limit int) ([]models.TransferRequest, int64, error)
	Ship(ctx context.Context, transfer *models.TransferRequest, shipperID string, idemKey string) ([]models.MovementRecord, error)
	RecordReceipt(ctx context.Context, transfer *models.TransferRequest, line *models.TransferLine, cumulative int, receiverID string, idemKey string) (*models.MovementRecord, error)
	Complete(ctx context.Context, transfer *models.TransferRequest, receiverID string) error
	Cancel(ctx context.Context, transfer *models.TransferRequest) error
}

type LocationRepositoryInterface interface {
	Upsert(ctx context.Context, locations []models.Location) error
	Get(ctx context.Context, code string) (*models.Location, error)
	List(ctx context.Context, activeOnly bool) ([]models.Location, error)
}

type IdempotencyRepositoryInterface interface {
	Get(ctx context.Context, key string) (*models.IdempotencyKey, error)
}

var (
	_ LedgerRepositoryInterface      = (*LedgerRepository)(nil)
	_ AdjustmentRepositoryInterface  = (*AdjustmentRepository)(nil)
	_ CycleCountRepositoryInterface  = (*CycleCountRepository)(nil)
	_ TransferRepositoryInterface    = (*TransferRepository)(nil)
	_ LocationRepositoryInterface    = (*LocationRepository)(nil)
	_ IdempotencyRepositoryInterface = (*IdempotencyRepository)(nil)
)
