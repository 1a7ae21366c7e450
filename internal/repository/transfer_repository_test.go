package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"stock-reconciliation-service/internal/models"
)

func createTransferFixture(t *testing.T, db *gorm.DB) (*TransferRepository, *models.TransferRequest) {
	t.Helper()
	repo := NewTransferRepository(db, NewLedgerRepository(db, nil))

	transfer := &models.TransferRequest{
		FromLocation: "JHB",
		ToLocation:   "CPT",
		RequestedBy:  "alice",
		Lines: []models.TransferLine{
			{ProductID: "SKU-1", Quantity: 5},
			{ProductID: "SKU-2", Quantity: 5},
		},
	}
	require.NoError(t, repo.Create(context.Background(), transfer, ""))

	loaded, err := repo.GetByID(context.Background(), transfer.ID)
	require.NoError(t, err)
	return repo, loaded
}

// ===========================================
// Ship Tests
// ===========================================

func TestShip_AllOrNothingOnShortStock(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedLevel(t, db, "SKU-1", "JHB", 10)
	seedLevel(t, db, "SKU-2", "JHB", 3)
	repo, transfer := createTransferFixture(t, db)

	_, err := repo.Ship(ctx, transfer, "bob", "")

	assert.ErrorIs(t, err, ErrInsufficientStock)

	// The first line's debit rolled back with the rest
	level := reloadLevel(t, db, "SKU-1", "JHB")
	assert.Equal(t, 10, level.OnHand)
	assert.Equal(t, 1, level.Version)
	assert.Equal(t, int64(0), countMovements(t, db))

	stored, err := repo.GetByID(ctx, transfer.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.TransferStatusPending, stored.Status)
	assert.Equal(t, 1, stored.Version)
}

func TestShip_UnknownProductAtSource(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedLevel(t, db, "SKU-1", "JHB", 10)
	// SKU-2 has never held stock at JHB
	repo, transfer := createTransferFixture(t, db)

	_, err := repo.Ship(ctx, transfer, "bob", "")

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, int64(0), countMovements(t, db))
}

func TestShip_DebitsEveryLineInOrder(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedLevel(t, db, "SKU-1", "JHB", 10)
	seedLevel(t, db, "SKU-2", "JHB", 8)
	repo, transfer := createTransferFixture(t, db)

	movements, err := repo.Ship(ctx, transfer, "bob", "")

	assert.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, 1, movements[0].LineNo)
	assert.Equal(t, -5, movements[0].Delta)
	assert.Equal(t, 5, movements[0].ResultingOnHand)
	assert.Equal(t, 2, movements[1].LineNo)
	assert.Equal(t, 3, movements[1].ResultingOnHand)
	assert.Equal(t, models.MovementSourceTransferShip, movements[0].SourceType)
	assert.Equal(t, transfer.ID, movements[0].SourceID)

	// One shipment is one operation, with its own id
	assert.Equal(t, movements[0].OperationID, movements[1].OperationID)
	assert.NotEqual(t, transfer.ID, movements[0].OperationID)

	stored, err := repo.GetByID(ctx, transfer.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.TransferStatusInTransit, stored.Status)
}

// ===========================================
// Receipt Tests
// ===========================================

func TestRecordReceipt_CreditsDestinationDelta(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedLevel(t, db, "SKU-1", "JHB", 10)
	seedLevel(t, db, "SKU-2", "JHB", 8)
	repo, transfer := createTransferFixture(t, db)

	shipMovements, err := repo.Ship(ctx, transfer, "bob", "")
	require.NoError(t, err)

	first, err := repo.RecordReceipt(ctx, transfer, &transfer.Lines[0], 2, "carol", "")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Delta)
	assert.Equal(t, 2, first.ResultingOnHand)
	assert.Equal(t, 2, transfer.Lines[0].ReceivedQuantity)

	second, err := repo.RecordReceipt(ctx, transfer, &transfer.Lines[0], 5, "carol", "")
	require.NoError(t, err)
	assert.Equal(t, 3, second.Delta)
	assert.Equal(t, 5, second.ResultingOnHand)

	destination := reloadLevel(t, db, "SKU-1", "CPT")
	assert.Equal(t, 5, destination.OnHand)

	// Every receipt is its own operation in the movement log
	assert.NotEqual(t, shipMovements[0].OperationID, first.OperationID)
	assert.NotEqual(t, first.OperationID, second.OperationID)

	ledger := NewLedgerRepository(db, nil)
	records, err := ledger.ListMovementsByOperation(ctx, first.OperationID)
	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, models.MovementSourceTransferReceive, records[0].SourceType)
}

func TestRecordReceipt_ZeroDeltaMutatesNothing(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedLevel(t, db, "SKU-1", "JHB", 10)
	seedLevel(t, db, "SKU-2", "JHB", 8)
	repo, transfer := createTransferFixture(t, db)

	_, err := repo.Ship(ctx, transfer, "bob", "")
	require.NoError(t, err)

	_, err = repo.RecordReceipt(ctx, transfer, &transfer.Lines[0], 3, "carol", "")
	require.NoError(t, err)
	before := countMovements(t, db)

	movement, err := repo.RecordReceipt(ctx, transfer, &transfer.Lines[0], 3, "carol", "")

	assert.NoError(t, err)
	assert.Nil(t, movement)
	assert.Equal(t, before, countMovements(t, db))
	destination := reloadLevel(t, db, "SKU-1", "CPT")
	assert.Equal(t, 3, destination.OnHand)
}
