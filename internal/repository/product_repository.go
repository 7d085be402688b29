package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"stocksync/internal/models"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// ProductFilter narrows List. A nil Linked returns linked and unlinked products.
type ProductFilter struct {
	Linked *bool
	Limit  int
	Offset int
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

// LinkedCloverIDs returns the set of Clover item ids already present locally.
func (r *ProductRepository) LinkedCloverIDs(ctx context.Context) (map[string]struct{}, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("clover_id IS NOT NULL").
		Pluck("clover_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load linked products: %w", err)
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (r *ProductRepository) ListActive(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sku").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (r *ProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if filter.Linked != nil {
		if *filter.Linked {
			query = query.Where("clover_id IS NOT NULL")
		} else {
			query = query.Where("clover_id IS NULL")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var products []models.Product
	err := query.Order("sku").Limit(limit).Offset(filter.Offset).Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// CreateWithInventory inserts a product and its first stock row in one transaction.
func (r *ProductRepository) CreateWithInventory(ctx context.Context, product *models.Product, inventory *models.Inventory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(product).Error; err != nil {
			return err
		}
		inventory.ProductID = product.ID
		return tx.Create(inventory).Error
	})
}

// SetCloverID links a product to its Clover item. It is the only product column
// the push path writes.
func (r *ProductRepository) SetCloverID(ctx context.Context, productID, cloverID string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("clover_id", cloverID)
	if result.Error != nil {
		return fmt.Errorf("failed to link product %s: %w", productID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
