package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"stock-reconciliation-service/internal/models"
)

// Cache TTL constants
const (
	stockLevelCacheTTL = 2 * time.Minute // single-level reads; invalidated on every write
	lowStockCacheTTL   = 1 * time.Minute // low stock report - needs to be fresh

	cacheKeyPrefix = "reconciliation:"
)

// LedgerRepository is the authoritative store for per-(product, location)
// stock levels and the append-only movement log. Cached reads serve the
// query endpoints only; every workflow mutation reads fresh rows inside
// its own transaction and goes through applyDeltaTx.
type LedgerRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewLedgerRepository(db *gorm.DB, redisClient *redis.Client) *LedgerRepository {
	return &LedgerRepository{db: db, redis: redisClient}
}

func levelCacheKey(productID, location string) string {
	return fmt.Sprintf("%slevel:%s:%s", cacheKeyPrefix, productID, location)
}

// invalidateLevel drops the cached copy of one stock level. Called by the
// workflow repositories after any committed write.
func (r *LedgerRepository) invalidateLevel(ctx context.Context, productID, location string) {
	if r.redis == nil {
		return
	}
	_ = r.redis.Del(ctx, levelCacheKey(productID, location)).Err()
	_ = r.redis.Del(ctx, cacheKeyPrefix+"low:"+location).Err()
}

// GetLevel retrieves the stock level for a product at a location.
// Version-stamped: callers that intend to write must pass the returned
// version back so staleness is detected before the write lands.
func (r *LedgerRepository) GetLevel(ctx context.Context, productID, location string) (*models.StockLevel, error) {
	cacheKey := levelCacheKey(productID, location)

	if r.redis != nil {
		if cached, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var level models.StockLevel
			if err := json.Unmarshal([]byte(cached), &level); err == nil {
				return &level, nil
			}
		}
	}

	var level models.StockLevel
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND location = ?", productID, location).
		First(&level).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(&level); err == nil {
			r.redis.Set(ctx, cacheKey, data, stockLevelCacheTTL)
		}
	}

	return &level, nil
}

// GetLevels retrieves the levels for a set of products at one location.
// Products with no ledger row are simply absent from the result.
func (r *LedgerRepository) GetLevels(ctx context.Context, location string, productIDs []string) (map[string]models.StockLevel, error) {
	var levels []models.StockLevel
	err := r.db.WithContext(ctx).
		Where("location = ? AND product_id IN ?", location, productIDs).
		Find(&levels).Error
	if err != nil {
		return nil, err
	}

	byProduct := make(map[string]models.StockLevel, len(levels))
	for _, level := range levels {
		byProduct[level.ProductID] = level
	}
	return byProduct, nil
}

// ListLevels retrieves stock levels with pagination
func (r *LedgerRepository) ListLevels(ctx context.Context, location *string, page, limit int) ([]models.StockLevel, int64, error) {
	var levels []models.StockLevel
	var total int64
	query := r.db.WithContext(ctx).Model(&models.StockLevel{})

	if location != nil {
		query = query.Where("location = ?", *location)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page > 0 && limit > 0 {
		offset := (page - 1) * limit
		query = query.Offset(offset).Limit(limit)
	}

	err := query.Order("location ASC, product_id ASC").Find(&levels).Error
	return levels, total, err
}

// GetLowStock returns levels at or below their reorder point. Thresholds
// are stored by the policy endpoint and surfaced here; the engine never
// raises replenishment orders itself.
func (r *LedgerRepository) GetLowStock(ctx context.Context, location *string) ([]models.StockLevel, error) {
	cacheKey := cacheKeyPrefix + "low:all"
	if location != nil {
		cacheKey = cacheKeyPrefix + "low:" + *location
	}

	if r.redis != nil {
		if cached, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var levels []models.StockLevel
			if err := json.Unmarshal([]byte(cached), &levels); err == nil {
				return levels, nil
			}
		}
	}

	var levels []models.StockLevel
	query := r.db.WithContext(ctx).
		Where("reorder_point IS NOT NULL AND reorder_point > 0 AND (on_hand - reserved) <= reorder_point")

	if location != nil {
		query = query.Where("location = ?", *location)
	}

	if err := query.Order("(on_hand - reserved) ASC").Find(&levels).Error; err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(levels); err == nil {
			r.redis.Set(ctx, cacheKey, data, lowStockCacheTTL)
		}
	}

	return levels, nil
}

// UpdatePolicy updates the replenishment thresholds of a level with
// optimistic locking. On-hand and reserved are untouched.
func (r *LedgerRepository) UpdatePolicy(ctx context.Context, level *models.StockLevel, updates map[string]interface{}) error {
	oldVersion := level.Version
	updates["version"] = oldVersion + 1
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).Model(&models.StockLevel{}).
		Where("id = ? AND version = ?", level.ID, oldVersion).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	level.Version = oldVersion + 1
	r.invalidateLevel(ctx, level.ProductID, level.Location)
	return nil
}

// SetReservation sets the absolute reserved quantity with optimistic
// locking. Reserved may exceed on-hand transiently; workflows that care
// about available re-read it under their own transaction.
func (r *LedgerRepository) SetReservation(ctx context.Context, level *models.StockLevel, reserved int) error {
	oldVersion := level.Version

	result := r.db.WithContext(ctx).Model(&models.StockLevel{}).
		Where("id = ? AND version = ?", level.ID, oldVersion).
		Updates(map[string]interface{}{
			"reserved":   reserved,
			"version":    oldVersion + 1,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}

	level.Reserved = reserved
	level.Version = oldVersion + 1
	r.invalidateLevel(ctx, level.ProductID, level.Location)
	return nil
}

// EnsureLevel creates a zero row for (productID, location) if none exists
// and returns the current row either way. Used when policy or reservation
// data arrives before any stock movement has touched the pair.
func (r *LedgerRepository) EnsureLevel(ctx context.Context, productID, location string) (*models.StockLevel, error) {
	level, err := r.GetLevel(ctx, productID, location)
	if err == nil {
		return level, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	created := &models.StockLevel{
		ProductID: productID,
		Location:  location,
		Version:   1,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		// Lost a creation race; the row is there now
		if existing, getErr := r.GetLevel(ctx, productID, location); getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return created, nil
}

// ========== Movement Log ==========

// MovementFilter narrows a movement history query
type MovementFilter struct {
	ProductID  *string
	Location   *string
	SourceType *models.MovementSourceType
	From       *time.Time
	To         *time.Time
}

// ListMovements retrieves movement records with pagination, newest first
func (r *LedgerRepository) ListMovements(ctx context.Context, filter MovementFilter, page, limit int) ([]models.MovementRecord, int64, error) {
	var records []models.MovementRecord
	var total int64
	query := r.db.WithContext(ctx).Model(&models.MovementRecord{})

	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Location != nil {
		query = query.Where("location = ?", *filter.Location)
	}
	if filter.SourceType != nil {
		query = query.Where("source_type = ?", *filter.SourceType)
	}
	if filter.From != nil {
		query = query.Where("recorded_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("recorded_at <= ?", *filter.To)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page > 0 && limit > 0 {
		offset := (page - 1) * limit
		query = query.Offset(offset).Limit(limit)
	}

	err := query.Order("recorded_at DESC, line_no ASC").Find(&records).Error
	return records, total, err
}

// ListMovementsByOperation returns all movement lines of one logical
// operation in line order, for per-operation audit replay.
func (r *LedgerRepository) ListMovementsByOperation(ctx context.Context, operationID uuid.UUID) ([]models.MovementRecord, error) {
	var records []models.MovementRecord
	err := r.db.WithContext(ctx).
		Where("operation_id = ?", operationID).
		Order("line_no ASC").
		Find(&records).Error
	return records, err
}

// ========== Transaction helpers ==========
// Shared by the workflow repositories; every mutation of on_hand funnels
// through applyDeltaTx so the version stamp and the movement log cannot
// drift apart.

// movementStamp attributes a ledger delta to its originating operation
type movementStamp struct {
	OperationID uuid.UUID
	LineNo      int
	SourceType  models.MovementSourceType
	SourceID    uuid.UUID
	RecordedBy  string
}

// getLevelTx reads a level fresh inside tx
func getLevelTx(tx *gorm.DB, productID, location string) (*models.StockLevel, error) {
	var level models.StockLevel
	err := tx.Where("product_id = ? AND location = ?", productID, location).
		First(&level).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &level, nil
}

// getOrCreateLevelTx reads a level fresh inside tx, creating a zero row
// when the (product, location) pair has never held stock.
func getOrCreateLevelTx(tx *gorm.DB, productID, location string) (*models.StockLevel, error) {
	level, err := getLevelTx(tx, productID, location)
	if err == nil {
		return level, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	created := &models.StockLevel{
		ProductID: productID,
		Location:  location,
		Version:   1,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := tx.Create(created).Error; err != nil {
		return nil, err
	}
	return created, nil
}

// applyDeltaTx is the only mutation primitive for on-hand. It compares and
// swaps against the version the caller just read, refuses negative results,
// and appends the movement record in the same transaction. The level struct
// is updated in place on success.
func applyDeltaTx(tx *gorm.DB, level *models.StockLevel, delta int, stamp movementStamp) (*models.MovementRecord, error) {
	newOnHand := level.OnHand + delta
	if newOnHand < 0 {
		return nil, fmt.Errorf("%w: product %s at %s has %d, delta %d",
			ErrNegativeStock, level.ProductID, level.Location, level.OnHand, delta)
	}

	oldVersion := level.Version
	result := tx.Model(&models.StockLevel{}).
		Where("id = ? AND version = ?", level.ID, oldVersion).
		Updates(map[string]interface{}{
			"on_hand":    newOnHand,
			"version":    oldVersion + 1,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrVersionConflict
	}

	level.OnHand = newOnHand
	level.Version = oldVersion + 1

	record := &models.MovementRecord{
		OperationID:     stamp.OperationID,
		LineNo:          stamp.LineNo,
		ProductID:       level.ProductID,
		Location:        level.Location,
		Delta:           delta,
		ResultingOnHand: newOnHand,
		SourceType:      stamp.SourceType,
		SourceID:        stamp.SourceID,
		RecordedBy:      stamp.RecordedBy,
		RecordedAt:      time.Now(),
	}
	if err := tx.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}
