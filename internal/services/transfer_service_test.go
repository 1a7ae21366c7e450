package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"stock-reconciliation-service/internal/models"
	"stock-reconciliation-service/internal/repository"
)

// Helper to create a transfer fixture in the given status
func createTestTransfer(status models.TransferStatus) *models.TransferRequest {
	return &models.TransferRequest{
		ID:           uuid.New(),
		Number:       "TR-202608-000001",
		FromLocation: "JHB",
		ToLocation:   "CPT",
		Status:       status,
		Version:      1,
		RequestedBy:  "alice",
		Lines: []models.TransferLine{
			{ID: uuid.New(), LineNo: 1, ProductID: "SKU-1", Quantity: 10, ReceivedQuantity: 0},
			{ID: uuid.New(), LineNo: 2, ProductID: "SKU-2", Quantity: 5, ReceivedQuantity: 0},
		},
	}
}

// ===========================================
// Create Transfer Tests
// ===========================================

func TestCreateTransfer_SameLocation(t *testing.T) {
	ctx := context.Background()
	coordinator := testCoordinator(new(MockLedgerRepository), new(MockAdjustmentRepository),
		new(MockCycleCountRepository), new(MockTransferRepository),
		new(MockLocationRepository), new(MockIdempotencyRepository))

	_, err := coordinator.CreateTransfer(ctx, &models.CreateTransferRequest{
		FromLocation: "JHB",
		ToLocation:   "JHB",
		Lines:        []models.TransferLineRequest{{ProductID: "SKU-1", Quantity: 5}},
	}, "alice", "")

	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateTransfer_Success(t *testing.T) {
	ctx := context.Background()
	mockTransfers := new(MockTransferRepository)
	mockLocations := new(MockLocationRepository)
	coordinator := testCoordinator(new(MockLedgerRepository), new(MockAdjustmentRepository),
		new(MockCycleCountRepository), mockTransfers,
		mockLocations, new(MockIdempotencyRepository))

	mockLocations.On("Get", ctx, "JHB").Return(activeLocation("JHB"), nil)
	mockLocations.On("Get", ctx, "CPT").Return(activeLocation("CPT"), nil)
	mockTransfers.On("GenerateTransferNumber", ctx).Return("TR-202608-000007", nil)
	mockTransfers.On("Create", ctx, mock.AnythingOfType("*models.TransferRequest"), "").Return(nil)

	transfer, err := coordinator.CreateTransfer(ctx, &models.CreateTransferRequest{
		FromLocation: "JHB",
		ToLocation:   "CPT",
		Lines:        []models.TransferLineRequest{{ProductID: "SKU-1", Quantity: 5}},
	}, "alice", "")

	assert.NoError(t, err)
	assert.Equal(t, "TR-202608-000007", transfer.Number)
	assert.Equal(t, models.TransferStatusPending, transfer.Status)
	assert.Equal(t, "alice", transfer.RequestedBy)
	mockTransfers.AssertExpectations(t)
}

func TestCreateTransfer_InactiveDestination(t *testing.T) {
	ctx := context.Background()
	mockLocations := new(MockLocationRepository)
	coordinator := testCoordinator(new(MockLedgerRepository), new(MockAdjustmentRepository),
		new(MockCycleCountRepository), new(MockTransferRepository),
		mockLocations, new(MockIdempotencyRepository))

	closed := &models.Location{Code: "CPT", Name: "Cape Town", Active: false}
	mockLocations.On("Get", ctx, "JHB").Return(activeLocation("JHB"), nil)
	mockLocations.On("Get", ctx, "CPT").Return(closed, nil)

	_, err := coordinator.CreateTransfer(ctx, &models.CreateTransferRequest{
		FromLocation: "JHB",
		ToLocation:   "CPT",
		Lines:        []models.TransferLineRequest{{ProductID: "SKU-1", Quantity: 5}},
	}, "alice", "")

	assert.ErrorIs(t, err, ErrValidation)
}

// ===========================================
// Ship Transfer Tests
// ===========================================

func TestShipTransfer_Success(t *testing.T) {
	ctx := context.Background()
	mockTransfers := new(MockTransferRepository)
	coordinator := testCoordinator(new(MockLedgerRepository), new(MockAdjustmentRepository),
		new(MockCycleCountRepository), mockTransfers,
		new(MockLocationRepository), new(MockIdempotencyRepository))

	pending := createTestTransfer(models.TransferStatusPending)
	movements := []models.MovementRecord{
		{ProductID: "SKU-1", Location: "JHB", Delta: -10, ResultingOnHand: 20},
		{ProductID: "SKU-2", Location: "JHB", Delta: -5, ResultingOnHand: 3},
	}
	mockTransfers.On("GetByID", ctx, pending.ID).Return(pending, nil)
	mockTransfers.On("Ship", ctx, pending, "bob", "").Return(movements, nil)

	transfer, err := coordinator.ShipTransfer(ctx, pending.ID, "bob", "")

	assert.NoError(t, err)
	assert.Equal(t, models.TransferStatusInTransit, transfer.Status)
	mockTransfers.AssertExpectations(t)
}

func TestShipTransfer_InsufficientStock(t *testing.T) {
	ctx := context.Background()
	mockTransfers := new(MockTransferRepository)
	coordinator := testCoordinator(new(MockLedgerRepository), new(MockAdjustmentRepository),
		new(MockCycleCountRepository), mockTransfers,
		new(MockLocationRepository), new(MockIdempotencyRepository))

	pending := createTestTransfer(models.TransferStatusPending)
	mockTransfers.On("GetByID", ctx, pending.ID).Return(pending, nil).Once()
	mockTransfers.On("Ship", ctx, pending, "bob", "").
		Return(nil, fmt.Errorf("%w: product SKU-2 has 3 on hand, 5 requested", repository.ErrInsufficientStock)).Once()

	_, err := coordinator.ShipTransfer(ctx, pending.ID, "bob", "")

	assert.ErrorIs(t, err, repository.ErrInsufficientStock)
	mockTransfers.AssertExpectations(t)
}

func TestShipTransfer_AlreadyShippedReplaysWithKey(t *testing.T) {
	ctx := context.Background()
	mockTransfers := new(MockTransferRepository)
	mockIdempotency := new(MockIdempotencyRepository)
	coordinator := testCoordinator(new(MockLedgerRepository), new(MockAdjustmentRepository),
		new(MockCycleCountRepository), mockTransfers,
		new(MockLocationRepository), mockIdempotency)

	shipped := createTestTransfer(models.TransferStatusInTransit)
	mockTransfers.On("GetByID", ctx, shipped.ID).Return(shipped, nil)
	mockIdempotency.On("Get", ctx, "ship-key").Return(&models.IdempotencyKey{
		Key:        "ship-key",
		Operation:  "shipTransfer",
		ResourceID: shipped.ID,
	}, nil)

	transfer, err := coordinator.ShipTransfer(ctx, shipped.ID, "bob", "ship-key")

	assert.NoError(t, err)
	assert.Equal(t, models.TransferStatusInTransit, transfer.Status)
	mockTransfers.AssertNotCalled(t, "Ship", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestShipTransfer_AlreadyShippedWithoutKey(t *testing.T) {
	ctx := context.Background()
	mockTransfers := new(MockTransferRepository)
	coordinator := testCoordinator(new(MockLedgerRepository), new(MockAdjustmentRepository),
		new(MockCycleCountRepository), mockTransfers,
		new(MockLocationRepository), new(MockIdempotencyRepository))

	shipped := createTestTransfer(models.TransferStatusInTransit)
	mockTransfers.On("GetByID", ctx, shipped.ID).Return(shipped, nil)

	_, err := coordinator.ShipTransfer(ctx, shipped.ID, "bob", "")

	assert.ErrorIs(t, err, ErrInvalidState)
}

// ===========================================
// Record Receipt Tests
// ===========================================

func TestRecordReceipt_CreditsDeltaOverPrevious(t *testing.T) {
	ctx := context.Background()
	mockTransfers := new(MockTransferRepository)
	coordinator := testCoordinator(new(MockLedgerRepository), new(MockAdjustmentRepository),
		new(MockCycleCountRepository), mockTransfers,
		new(MockLocationRepository), new(MockIdempotencyRepository))

	inTransit := createTestTransfer(models.TransferStatusInTransit)
	inTransit.Lines[0].ReceivedQuantity = 4
	lineID := inTransit.Lines[0].ID
	movement := &models.MovementRecord{ProductID: "SKU-1", Location: "CPT", Delta: 3, ResultingOnHand: 7}

	mockTransfers.On("GetByID", ctx, inTransit.ID).Return(inTransit, nil)
	mockTransfers.On("RecordReceipt", ctx, inTransit, &inTransit.Lines[0], 7, "carol", "").Return(movement, nil)

	transfer, err := coordinator.RecordReceipt(ctx, inTransit.ID, &models.RecordReceiptRequest{
		LineID:           lineID,
		ReceivedQuantity: intPtr(7),
	}, "carol", "")

	assert.NoError(t, err)
	assert.Equal(t, 7, transfer.Lines[0].ReceivedQuantity)
	mockTransfers.AssertExpectations(t)
}

func TestRecordReceipt_ExceedsRequested(t *testing.T) {
	ctx := context.Background()
	mockTransfers := new(MockTransferRepository)
	coordinator := testCoordinator(new(MockLedgerRepository), new(MockAdjustmentRepository),
		new(MockCycleCountRepository), mockTransfers,
		new(MockLocationRepository), new(MockIdempotencyRepository))

	inTransit := createTestTransfer(models.TransferStatusInTransit)
	mockTransfers.On("GetByID", ctx, inTransit.ID).Return(inTransit, nil)

	_, err := coordinator.RecordReceipt(ctx, inTransit.ID, &models.RecordReceiptRequest{
		LineID:           inTransit.Lines[0].ID,
		ReceivedQuantity: intPtr(11),
	}, "carol", "")

	assert.ErrorIs(t, err, ErrValidation)
	mockTransfers.AssertNotCalled(t, "RecordReceipt",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordReceipt_CannotShrink(t *testing.T) {
	ctx := context.Background()
	mockTransfers := new(MockTransferRepository)
	coordinator := testCoordinator(new(MockLedgerRepository), new(MockAdjustmentRepository),
		new(MockCycleCountRepository), mockTransfers,
		new(MockLocationRepository), new(MockIdempotencyRepository))

	inTransit := createTestTransfer(models.TransferStatusInTransit)
	inTransit.Lines[0].ReceivedQuantity = 6
	mockTransfers.On("GetByID", ctx, inTransit.ID).Return(inTransit, nil)

	_, err := coordinator.RecordReceipt(ctx, inTransit.ID, &models.RecordReceiptRequest{
		LineID:           inTransit.Lines[0].ID,
		ReceivedQuantity: intPtr(4),
	}, "carol", "")

	assert.ErrorIs(t, err, ErrValidation)
}

func TestRecordReceipt_RepeatedCumulativeIsNoop(t *testing.T) {
	ctx := context.Background()
	mockTransfers := new(MockTransferRepository)
	coordinator := testCoordinator(new(MockLedgerRepository), new(MockAdjustmentRepository),
		new(MockCycleCountRepository), mockTransfers,
		new(MockLocationRepository), new(MockIdempotencyRepository))

	inTransit := createTestTransfer(models.TransferStatusInTransit)
	inTransit.Lines[0].ReceivedQuantity = 6
	mockTransfers.On("GetByID", ctx, inTransit.ID).Return(inTransit, nil)

	transfer, err := coordinator.RecordReceipt(ctx, inTransit.ID, &models.RecordReceiptRequest{
		LineID:           inTransit.Lines[0].ID,
		ReceivedQuantity: intPtr(6),
	}, "carol", "")

	assert.NoError(t, err)
	assert.Equal(t, 6, transfer.Lines[0].ReceivedQuantity)
	mockTransfers.AssertNotCalled(t, "RecordReceipt",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordReceipt_UnknownLine(t *testing.T) {
	ctx := context.Background()
	mockTransfers := new(MockTransferRepository)
	coordinator := testCoordinator(new(MockLedgerRepository), new(MockAdjustmentRepository),
		new(MockCycleCountRepository), mockTransfers,
		new(MockLocationRepository), new(MockIdempotencyRepository))

	inTransit := createTestTransfer(models.TransferStatusInTransit)
	mockTransfers.On("GetByID", ctx, inTransit.ID).Return(inTransit, nil)

	_, err := coordinator.RecordReceipt(ctx, inTransit.ID, &models.RecordReceiptRequest{
		LineID:           uuid.New(),
		ReceivedQuantity: intPtr(3),
	}, "carol", "")

	assert.ErrorIs(t, err, ErrValidation)
}

// ===========================================
// Complete and Cancel Tests
// ===========================================

func TestCompleteTransfer_RequiresFullReceipt(t *testing.T) {
	ctx := context.Background()
	mockTransfers := new(MockTransferRepository)
	coordinator := testCoordinator(new(MockLedgerRepository), new(MockAdjustmentRepository),
		new(MockCycleCountRepository), mockTransfers,
		new(MockLocationRepository), new(MockIdempotencyRepository))

	inTransit := createTestTransfer(models.TransferStatusInTransit)
	inTransit.Lines[0].ReceivedQuantity = 10
	// SKU-2 still short
	mockTransfers.On("GetByID", ctx, inTransit.ID).Return(inTransit, nil)

	_, err := coordinator.CompleteTransfer(ctx, inTransit.ID, "carol")

	assert.ErrorIs(t, err, ErrInvalidState)
	mockTransfers.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompleteTransfer_Success(t *testing.T) {
	ctx := context.Background()
	mockTransfers := new(MockTransferRepository)
	coordinator := testCoordinator(new(MockLedgerRepository), new(MockAdjustmentRepository),
		new(MockCycleCountRepository), mockTransfers,
		new(MockLocationRepository), new(MockIdempotencyRepository))

	inTransit := createTestTransfer(models.TransferStatusInTransit)
	inTransit.Lines[0].ReceivedQuantity = 10
	inTransit.Lines[1].ReceivedQuantity = 5
	mockTransfers.On("GetByID", ctx, inTransit.ID).Return(inTransit, nil)
	mockTransfers.On("Complete", ctx, inTransit, "carol").Return(nil)

	transfer, err := coordinator.CompleteTransfer(ctx, inTransit.ID, "carol")

	assert.NoError(t, err)
	assert.Equal(t, models.TransferStatusReceived, transfer.Status)
}

func TestCancelTransfer_InTransitBlocked(t *testing.T) {
	ctx := context.Background()
	mockTransfers := new(MockTransferRepository)
	coordinator := testCoordinator(new(MockLedgerRepository), new(MockAdjustmentRepository),
		new(MockCycleCountRepository), mockTransfers,
		new(MockLocationRepository), new(MockIdempotencyRepository))

	inTransit := createTestTransfer(models.TransferStatusInTransit)
	mockTransfers.On("GetByID", ctx, inTransit.ID).Return(inTransit, nil)

	_, err := coordinator.CancelTransfer(ctx, inTransit.ID, "alice")

	assert.ErrorIs(t, err, ErrInvalidState)
	mockTransfers.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
}

func TestRecordReceipt_KeyFromAnotherTransfer(t *testing.T) {
	ctx := context.Background()
	mockTransfers := new(MockTransferRepository)
	mockIdempotency := new(MockIdempotencyRepository)
	coordinator := testCoordinator(new(MockLedgerRepository), new(MockAdjustmentRepository),
		new(MockCycleCountRepository), mockTransfers,
		new(MockLocationRepository), mockIdempotency)

	transfer := createTestTransfer(models.TransferStatusInTransit)
	mockTransfers.On("GetByID", ctx, transfer.ID).Return(transfer, nil)
	mockIdempotency.On("Get", ctx, "rcpt-key").Return(&models.IdempotencyKey{
		Key:        "rcpt-key",
		Operation:  "recordReceipt",
		ResourceID: uuid.New(),
	}, nil)

	_, err := coordinator.RecordReceipt(ctx, transfer.ID, &models.RecordReceiptRequest{
		LineID:           transfer.Lines[0].ID,
		ReceivedQuantity: intPtr(4),
	}, "carol", "rcpt-key")

	assert.ErrorIs(t, err, ErrValidation)
	mockTransfers.AssertNotCalled(t, "RecordReceipt",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
