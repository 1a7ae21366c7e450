package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"stock-reconciliation-service/internal/models"
)

func createAdjustmentFixture(t *testing.T, db *gorm.DB, lines []models.AdjustmentLine) (*AdjustmentRepository, *models.StockAdjustment) {
	t.Helper()
	repo := NewAdjustmentRepository(db, NewLedgerRepository(db, nil))

	adjustment := &models.StockAdjustment{
		Location:    "JHB",
		Reason:      models.AdjustmentReasonCycleCount,
		SubmittedBy: "alice",
		Lines:       lines,
	}
	require.NoError(t, repo.Create(context.Background(), adjustment, ""))

	loaded, err := repo.GetByID(context.Background(), adjustment.ID)
	require.NoError(t, err)
	return repo, loaded
}

// ===========================================
// Approve Tests
// ===========================================

func TestApprove_MovementsSumToNetChange(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedLevel(t, db, "SKU-1", "JHB", 10)
	seedLevel(t, db, "SKU-2", "JHB", 4)
	repo, adjustment := createAdjustmentFixture(t, db, []models.AdjustmentLine{
		{ProductID: "SKU-1", CurrentQuantity: 10, AdjustedQuantity: 7, Difference: -3},
		{ProductID: "SKU-2", CurrentQuantity: 4, AdjustedQuantity: 9, Difference: 5},
	})

	movements, err := repo.Approve(ctx, adjustment, "bob")

	assert.NoError(t, err)
	require.Len(t, movements, 2)

	sum := 0
	for _, movement := range movements {
		sum += movement.Delta
		assert.Equal(t, adjustment.ID, movement.OperationID)
		assert.Equal(t, models.MovementSourceAdjustment, movement.SourceType)
		assert.Equal(t, "bob", movement.RecordedBy)
	}
	assert.Equal(t, 2, sum)
	assert.Equal(t, 7, movements[0].ResultingOnHand)
	assert.Equal(t, 9, movements[1].ResultingOnHand)

	// The log replays to the final on-hand for each product
	assert.Equal(t, 7, reloadLevel(t, db, "SKU-1", "JHB").OnHand)
	assert.Equal(t, 9, reloadLevel(t, db, "SKU-2", "JHB").OnHand)

	stored, err := repo.GetByID(ctx, adjustment.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.AdjustmentStatusApproved, stored.Status)
	assert.Equal(t, "bob", *stored.DecidedBy)
}

func TestApprove_StockChangedRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedLevel(t, db, "SKU-1", "JHB", 10)
	// Live on-hand drifted from the snapshot the approver saw
	seedLevel(t, db, "SKU-2", "JHB", 6)
	repo, adjustment := createAdjustmentFixture(t, db, []models.AdjustmentLine{
		{ProductID: "SKU-1", CurrentQuantity: 10, AdjustedQuantity: 7, Difference: -3},
		{ProductID: "SKU-2", CurrentQuantity: 4, AdjustedQuantity: 9, Difference: 5},
	})

	_, err := repo.Approve(ctx, adjustment, "bob")

	assert.ErrorIs(t, err, ErrStockChanged)

	// The first line applied before the mismatch; all of it rolled back
	level := reloadLevel(t, db, "SKU-1", "JHB")
	assert.Equal(t, 10, level.OnHand)
	assert.Equal(t, 1, level.Version)
	assert.Equal(t, int64(0), countMovements(t, db))

	stored, err := repo.GetByID(ctx, adjustment.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.AdjustmentStatusPending, stored.Status)
	assert.Equal(t, 1, stored.Version)
}

func TestApprove_CreatesLevelForUnseenProduct(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo, adjustment := createAdjustmentFixture(t, db, []models.AdjustmentLine{
		{ProductID: "SKU-NEW", CurrentQuantity: 0, AdjustedQuantity: 4, Difference: 4},
	})

	movements, err := repo.Approve(ctx, adjustment, "bob")

	assert.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, 4, movements[0].ResultingOnHand)
	assert.Equal(t, 4, reloadLevel(t, db, "SKU-NEW", "JHB").OnHand)
}
