package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"stock-reconciliation-service/internal/models"
	"stock-reconciliation-service/internal/repository"
)

// MockLedgerRepository is a mock implementation of LedgerRepositoryInterface
type MockLedgerRepository struct {
	mock.Mock
}

var _ repository.LedgerRepositoryInterface = (*MockLedgerRepository)(nil)

func (m *MockLedgerRepository) GetLevel(ctx context.Context, productID, location string) (*models.StockLevel, error) {
	args := m.Called(ctx, productID, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StockLevel), args.Error(1)
}

func (m *MockLedgerRepository) GetLevels(ctx context.Context, location string, productIDs []string) (map[string]models.StockLevel, error) {
	args := m.Called(ctx, location, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.StockLevel), args.Error(1)
}

func (m *MockLedgerRepository) ListLevels(ctx context.Context, location *string, page, limit int) ([]models.StockLevel, int64, error) {
	args := m.Called(ctx, location, page, limit)
	return args.Get(0).([]models.StockLevel), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerRepository) GetLowStock(ctx context.Context, location *string) ([]models.StockLevel, error) {
	args := m.Called(ctx, location)
	return args.Get(0).([]models.StockLevel), args.Error(1)
}

func (m *MockLedgerRepository) UpdatePolicy(ctx context.Context, level *models.StockLevel, updates map[string]interface{}) error {
	args := m.Called(ctx, level, updates)
	if args.Error(0) == nil {
		if v, ok := updates["reorder_point"].(int); ok {
			level.ReorderPoint = &v
		}
		if v, ok := updates["reorder_quantity"].(int); ok {
			level.ReorderQuantity = &v
		}
		if v, ok := updates["minimum_stock"].(int); ok {
			level.MinimumStock = &v
		}
		if v, ok := updates["maximum_stock"].(int); ok {
			level.MaximumStock = &v
		}
		level.Version++
	}
	return args.Error(0)
}

func (m *MockLedgerRepository) SetReservation(ctx context.Context, level *models.StockLevel, reserved int) error {
	args := m.Called(ctx, level, reserved)
	if args.Error(0) == nil {
		level.Reserved = reserved
	}
	return args.Error(0)
}

func (m *MockLedgerRepository) EnsureLevel(ctx context.Context, productID, location string) (*models.StockLevel, error) {
	args := m.Called(ctx, productID, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StockLevel), args.Error(1)
}

func (m *MockLedgerRepository) ListMovements(ctx context.Context, filter repository.MovementFilter, page, limit int) ([]models.MovementRecord, int64, error) {
	args := m.Called(ctx, filter, page, limit)
	return args.Get(0).([]models.MovementRecord), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerRepository) ListMovementsByOperation(ctx context.Context, operationID uuid.UUID) ([]models.MovementRecord, error) {
	args := m.Called(ctx, operationID)
	return args.Get(0).([]models.MovementRecord), args.Error(1)
}

// MockAdjustmentRepository is a mock implementation of AdjustmentRepositoryInterface
type MockAdjustmentRepository struct {
	mock.Mock
}

var _ repository.AdjustmentRepositoryInterface = (*MockAdjustmentRepository)(nil)

func (m *MockAdjustmentRepository) GenerateAdjustmentNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockAdjustmentRepository) Create(ctx context.Context, adjustment *models.StockAdjustment, idemKey string) error {
	args := m.Called(ctx, adjustment, idemKey)
	if args.Error(0) == nil {
		adjustment.ID = uuid.New()
		adjustment.Status = models.AdjustmentStatusPending
		adjustment.Version = 1
		for i := range adjustment.Lines {
			adjustment.Lines[i].LineNo = i + 1
		}
	}
	return args.Error(0)
}

func (m *MockAdjustmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StockAdjustment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StockAdjustment), args.Error(1)
}

func (m *MockAdjustmentRepository) List(ctx context.Context, status *models.AdjustmentStatus, location *string, page, limit int) ([]models.StockAdjustment, int64, error) {
	args := m.Called(ctx, status, location, page, limit)
	return args.Get(0).([]models.StockAdjustment), args.Get(1).(int64), args.Error(2)
}

func (m *MockAdjustmentRepository) Approve(ctx context.Context, adjustment *models.StockAdjustment, approverID string) ([]models.MovementRecord, error) {
	args := m.Called(ctx, adjustment, approverID)
	if args.Error(1) == nil {
		adjustment.Status = models.AdjustmentStatusApproved
		adjustment.Version++
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MovementRecord), args.Error(1)
}

func (m *MockAdjustmentRepository) Reject(ctx context.Context, adjustment *models.StockAdjustment, approverID, reason string) error {
	args := m.Called(ctx, adjustment, approverID, reason)
	if args.Error(0) == nil {
		adjustment.Status = models.AdjustmentStatusRejected
		adjustment.RejectionReason = &reason
	}
	return args.Error(0)
}

func (m *MockAdjustmentRepository) Cancel(ctx context.Context, adjustment *models.StockAdjustment) error {
	args := m.Called(ctx, adjustment)
	if args.Error(0) == nil {
		adjustment.Status = models.AdjustmentStatusCancelled
	}
	return args.Error(0)
}

// MockCycleCountRepository is a mock implementation of CycleCountRepositoryInterface
type MockCycleCountRepository struct {
	mock.Mock
}

var _ repository.CycleCountRepositoryInterface = (*MockCycleCountRepository)(nil)

func (m *MockCycleCountRepository) GenerateSessionNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockCycleCountRepository) Create(ctx context.Context, session *models.CycleCountSession) error {
	args := m.Called(ctx, session)
	if args.Error(0) == nil {
		session.ID = uuid.New()
		session.Status = models.CycleCountStatusOpen
		session.Version = 1
		for i := range session.Lines {
			session.Lines[i].LineNo = i + 1
		}
	}
	return args.Error(0)
}

func (m *MockCycleCountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CycleCountSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CycleCountSession), args.Error(1)
}

func (m *MockCycleCountRepository) List(ctx context.Context, status *models.CycleCountStatus, location *string, page, limit int) ([]models.CycleCountSession, int64, error) {
	args := m.Called(ctx, status, location, page, limit)
	return args.Get(0).([]models.CycleCountSession), args.Get(1).(int64), args.Error(2)
}

func (m *MockCycleCountRepository) RecordCount(ctx context.Context, session *models.CycleCountSession, line *models.CycleCountLine, counted int, counterID string) error {
	args := m.Called(ctx, session, line, counted, counterID)
	if args.Error(0) == nil {
		session.Version++
		line.CountedQuantity = &counted
		line.CountedBy = &counterID
	}
	return args.Error(0)
}

func (m *MockCycleCountRepository) Complete(ctx context.Context, session *models.CycleCountSession) error {
	args := m.Called(ctx, session)
	if args.Error(0) == nil {
		session.Status = models.CycleCountStatusCompleted
		session.Version++
		for i := range session.Lines {
			if session.Lines[i].CountedQuantity != nil {
				variance := *session.Lines[i].CountedQuantity - session.Lines[i].SystemQuantity
				session.Lines[i].Variance = &variance
			}
		}
	}
	return args.Error(0)
}

func (m *MockCycleCountRepository) Cancel(ctx context.Context, session *models.CycleCountSession) error {
	args := m.Called(ctx, session)
	if args.Error(0) == nil {
		session.Status = models.CycleCountStatusCancelled
	}
	return args.Error(0)
}

func (m *MockCycleCountRepository) LinkAdjustment(ctx context.Context, session *models.CycleCountSession, adjustmentID uuid.UUID) error {
	args := m.Called(ctx, session, adjustmentID)
	if args.Error(0) == nil {
		session.AdjustmentID = &adjustmentID
	}
	return args.Error(0)
}

// MockTransferRepository is a mock implementation of TransferRepositoryInterface
type MockTransferRepository struct {
	mock.Mock
}

var _ repository.TransferRepositoryInterface = (*MockTransferRepository)(nil)

func (m *MockTransferRepository) GenerateTransferNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockTransferRepository) Create(ctx context.Context, transfer *models.TransferRequest, idemKey string) error {
	args := m.Called(ctx, transfer, idemKey)
	if args.Error(0) == nil {
		transfer.ID = uuid.New()
		transfer.Status = models.TransferStatusPending
		transfer.Version = 1
		for i := range transfer.Lines {
			transfer.Lines[i].LineNo = i + 1
		}
	}
	return args.Error(0)
}

func (m *MockTransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TransferRequest), args.Error(1)
}

func (m *MockTransferRepository) List(ctx context.Context, status *models.TransferStatus, location *string, page, limit int) ([]models.TransferRequest, int64, error) {
	args := m.Called(ctx, status, location, page, limit)
	return args.Get(0).([]models.TransferRequest), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransferRepository) Ship(ctx context.Context, transfer *models.TransferRequest, shipperID string, idemKey string) ([]models.MovementRecord, error) {
	args := m.Called(ctx, transfer, shipperID, idemKey)
	if args.Error(1) == nil {
		transfer.Status = models.TransferStatusInTransit
		transfer.Version++
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MovementRecord), args.Error(1)
}

func (m *MockTransferRepository) RecordReceipt(ctx context.Context, transfer *models.TransferRequest, line *models.TransferLine, cumulative int, receiverID string, idemKey string) (*models.MovementRecord, error) {
	args := m.Called(ctx, transfer, line, cumulative, receiverID, idemKey)
	if args.Error(1) == nil {
		transfer.Version++
		line.ReceivedQuantity = cumulative
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MovementRecord), args.Error(1)
}

func (m *MockTransferRepository) Complete(ctx context.Context, transfer *models.TransferRequest, receiverID string) error {
	args := m.Called(ctx, transfer, receiverID)
	if args.Error(0) == nil {
		transfer.Status = models.TransferStatusReceived
	}
	return args.Error(0)
}

func (m *MockTransferRepository) Cancel(ctx context.Context, transfer *models.TransferRequest) error {
	args := m.Called(ctx, transfer)
	if args.Error(0) == nil {
		transfer.Status = models.TransferStatusCancelled
	}
	return args.Error(0)
}

// MockLocationRepository is a mock implementation of LocationRepositoryInterface
type MockLocationRepository struct {
	mock.Mock
}

var _ repository.LocationRepositoryInterface = (*MockLocationRepository)(nil)

func (m *MockLocationRepository) Upsert(ctx context.Context, locations []models.Location) error {
	args := m.Called(ctx, locations)
	return args.Error(0)
}

func (m *MockLocationRepository) Get(ctx context.Context, code string) (*models.Location, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *MockLocationRepository) List(ctx context.Context, activeOnly bool) ([]models.Location, error) {
	args := m.Called(ctx, activeOnly)
	return args.Get(0).([]models.Location), args.Error(1)
}

// MockIdempotencyRepository is a mock implementation of IdempotencyRepositoryInterface
type MockIdempotencyRepository struct {
	mock.Mock
}

var _ repository.IdempotencyRepositoryInterface = (*MockIdempotencyRepository)(nil)

func (m *MockIdempotencyRepository) Get(ctx context.Context, key string) (*models.IdempotencyKey, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IdempotencyKey), args.Error(1)
}

// testCoordinator wires a coordinator over the given mocks with events
// disabled
func testCoordinator(
	ledger *MockLedgerRepository,
	adjustments *MockAdjustmentRepository,
	cycleCounts *MockCycleCountRepository,
	transfers *MockTransferRepository,
	locations *MockLocationRepository,
	idempotency *MockIdempotencyRepository,
) *Coordinator {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return &Coordinator{
		ledger:      ledger,
		adjustments: adjustments,
		cycleCounts: cycleCounts,
		transfers:   transfers,
		locations:   locations,
		idempotency: idempotency,
		logger:      logger.WithField("component", "coordinator"),
	}
}

// activeLocation builds a registered active location for mocks
func activeLocation(code string) *models.Location {
	return &models.Location{Code: code, Name: code, Active: true}
}
