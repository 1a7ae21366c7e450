package repository

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stock-reconciliation-service/internal/models"
)

// newTestDB opens a throwaway sqlite database with the full schema
// migrated. Each test gets its own file under t.TempDir.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Location{},
		&models.StockLevel{},
		&models.MovementRecord{},
		&models.IdempotencyKey{},
		&models.StockAdjustment{},
		&models.AdjustmentLine{},
		&models.CycleCountSession{},
		&models.CycleCountLine{},
		&models.TransferRequest{},
		&models.TransferLine{},
	))
	return db
}

func seedLevel(t *testing.T, db *gorm.DB, productID, location string, onHand int) *models.StockLevel {
	t.Helper()
	level := &models.StockLevel{
		ProductID: productID,
		Location:  location,
		OnHand:    onHand,
		Version:   1,
	}
	require.NoError(t, db.Create(level).Error)
	return level
}

func reloadLevel(t *testing.T, db *gorm.DB, productID, location string) *models.StockLevel {
	t.Helper()
	var level models.StockLevel
	require.NoError(t, db.Where("product_id = ? AND location = ?", productID, location).First(&level).Error)
	return &level
}

func countMovements(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.MovementRecord{}).Count(&count).Error)
	return count
}
