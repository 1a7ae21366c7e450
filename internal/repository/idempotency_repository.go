package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stock-reconciliation-service/internal/models"
)

// IdempotencyRepository stores processed mutation keys so retried requests
// replay the original resource instead of applying twice.
type IdempotencyRepository struct {
	db *gorm.DB
}

func NewIdempotencyRepository(db *gorm.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Get retrieves a previously recorded key
func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*models.IdempotencyKey, error) {
	var record models.IdempotencyKey
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// insertIdempotencyTx records a key inside the operation's transaction, so
// the key and the mutation commit or roll back together. A primary-key
// violation means a concurrent request with the same key won the race.
func insertIdempotencyTx(tx *gorm.DB, key, operation string, resourceID uuid.UUID) error {
	if key == "" {
		return nil
	}
	record := &models.IdempotencyKey{
		Key:        key,
		Operation:  operation,
		ResourceID: resourceID,
		CreatedAt:  time.Now(),
	}
	if err := tx.Create(record).Error; err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// Postgres unique_violation surfaced by the driver
	return strings.Contains(err.Error(), "duplicate key") ||
		strings.Contains(err.Error(), "SQLSTATE 23505")
}
