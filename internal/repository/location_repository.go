package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stock-reconciliation-service/internal/models"
)

// LocationRepository stores the warehouse location codes synced from the
// registry collaborator. The engine validates workflow inputs against this
// set; it never invents codes of its own.
type LocationRepository struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// Upsert inserts or refreshes the given locations by code
func (r *LocationRepository) Upsert(ctx context.Context, locations []models.Location) error {
	now := time.Now()
	for i := range locations {
		locations[i].CreatedAt = now
		locations[i].UpdatedAt = now
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "active", "updated_at"}),
		}).
		Create(&locations).Error
}

// Get retrieves one location by code
func (r *LocationRepository) Get(ctx context.Context, code string) (*models.Location, error) {
	var location models.Location
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&location).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &location, nil
}

// List retrieves all known locations
func (r *LocationRepository) List(ctx context.Context, activeOnly bool) ([]models.Location, error) {
	var locations []models.Location
	query := r.db.WithContext(ctx)
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	err := query.Order("code ASC").Find(&locations).Error
	return locations, err
}
