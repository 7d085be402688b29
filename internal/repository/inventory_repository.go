package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"stocksync/internal/models"
)

type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// ListLinked returns stock rows whose product has a Clover item, with the product
// loaded. An empty locationID means every location.
func (r *InventoryRepository) ListLinked(ctx context.Context, locationID string) ([]models.Inventory, error) {
	query := r.db.WithContext(ctx).
		Preload("Product").
		Joins("JOIN products ON products.id = inventory.product_id").
		Where("products.clover_id IS NOT NULL")
	if locationID != "" {
		query = query.Where("inventory.location_id = ?", locationID)
	}

	var rows []models.Inventory
	if err := query.Order("products.sku").Order("inventory.location_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list linked inventory: %w", err)
	}
	return rows, nil
}

type LocationRepository struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

func (r *LocationRepository) FindByID(ctx context.Context, id string) (*models.Location, error) {
	var location models.Location
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&location).Error; err != nil {
		return nil, notFound(err)
	}
	return &location, nil
}
