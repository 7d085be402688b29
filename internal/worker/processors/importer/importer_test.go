package importer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"stocksync/internal/database"
	"stocksync/internal/logger"
	"stocksync/internal/models"
	"stocksync/internal/repository"
	"stocksync/internal/services/clover"
)

type fakeCatalog struct {
	items []clover.Item
	err   error
}

func (f *fakeCatalog) FetchCatalogPage(ctx context.Context, offset, limit int) (*clover.ItemsPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	end := offset + limit
	if end > len(f.items) {
		end = len(f.items)
	}
	var page []clover.Item
	if offset < len(f.items) {
		page = f.items[offset:end]
	}
	return &clover.ItemsPage{Items: page, HasMore: len(page) == limit}, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.New("sqlite://file:"+uuid.NewString()+"?mode=memory&cache=shared", false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.DB
}

func newTestImporter(db *gorm.DB) *Importer {
	return New(repository.NewProductRepository(db), clover.NewPaginator(50), logger.NewNop())
}

func linkedProduct(t *testing.T, db *gorm.DB, cloverID string) *models.Product {
	t.Helper()
	var product models.Product
	require.NoError(t, db.Where("clover_id = ?", cloverID).First(&product).Error)
	return &product
}

func stockAt(t *testing.T, db *gorm.DB, productID, locationID string) *models.Inventory {
	t.Helper()
	var inv models.Inventory
	require.NoError(t, db.Where("product_id = ? AND location_id = ?", productID, locationID).First(&inv).Error)
	return &inv
}

func remoteItems(n int) []clover.Item {
	items := make([]clover.Item, n)
	for i := range items {
		items[i] = clover.Item{
			ID:        fmt.Sprintf("REMOTE%04d", i),
			Name:      fmt.Sprintf("Item %d", i),
			Code:      fmt.Sprintf("CODE-%d", i),
			Price:     int64(199 + i),
			ItemStock: &clover.ItemStock{Quantity: float64(i)},
		}
	}
	return items
}

func TestImport_IsIdempotent(t *testing.T) {
	db := newTestDB(t)
	imp := newTestImporter(db)
	catalog := &fakeCatalog{items: remoteItems(120)}
	ctx := context.Background()

	first, err := imp.Import(ctx, catalog, "loc-1")
	require.NoError(t, err)
	assert.Equal(t, &Summary{Imported: 120, Skipped: 0, Total: 120}, first)

	second, err := imp.Import(ctx, catalog, "loc-1")
	require.NoError(t, err)
	assert.Equal(t, &Summary{Imported: 0, Skipped: 120, Total: 120}, second)

	var products, stock int64
	db.Model(&models.Product{}).Count(&products)
	db.Model(&models.Inventory{}).Count(&stock)
	assert.Equal(t, int64(120), products)
	assert.Equal(t, int64(120), stock)
}

func TestImport_MapsFieldsAndStock(t *testing.T) {
	db := newTestDB(t)
	catalog := &fakeCatalog{items: []clover.Item{{
		ID:          "R1",
		Name:        "Cold Brew",
		SKU:         "CB-1",
		Price:       450,
		Cost:        125,
		Description: "16oz",
		ItemStock:   &clover.ItemStock{Quantity: 7},
		Categories:  &clover.CategoryList{Elements: []clover.Category{{Name: "Drinks"}}},
	}}}

	_, err := newTestImporter(db).Import(context.Background(), catalog, "loc-1")
	require.NoError(t, err)

	product := linkedProduct(t, db, "R1")
	assert.Equal(t, "CB-1", product.SKU)
	assert.Equal(t, 4.5, product.Price)
	assert.Equal(t, 1.25, product.Cost)
	require.NotNil(t, product.Category)
	assert.Equal(t, "Drinks", *product.Category)
	assert.True(t, product.IsActive)

	inv := stockAt(t, db, product.ID, "loc-1")
	assert.Equal(t, 7, inv.Quantity)
	assert.NotNil(t, inv.LastCounted)
}

func TestImport_GeneratesSKUAndDefaultsStock(t *testing.T) {
	db := newTestDB(t)
	catalog := &fakeCatalog{items: []clover.Item{{ID: "ABCDEFGHIJK", Name: "No code", Price: 100}}}

	summary, err := newTestImporter(db).Import(context.Background(), catalog, "loc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)

	product := linkedProduct(t, db, "ABCDEFGHIJK")
	assert.Equal(t, "CLV-ABCDEFGH", product.SKU)

	inv := stockAt(t, db, product.ID, "loc-1")
	assert.Equal(t, 0, inv.Quantity)
}

func TestImport_BadItemsAreSkipped(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.Product{SKU: "TAKEN", Name: "Local", Price: 1}).Error)

	catalog := &fakeCatalog{items: []clover.Item{
		{ID: "R1", Name: "Good", Code: "G1", Price: 100},
		{ID: "R2", Name: "", Price: 100},
		{ID: "R3", Name: "Clashing SKU", Code: "TAKEN", Price: 100},
		{ID: "R4", Name: "Negative", Price: -1},
		{ID: "R5", Name: "Also good", Code: "G2", Price: 100},
		{ID: "R1", Name: "Repeated remote id", Code: "G3", Price: 100},
	}}

	summary, err := newTestImporter(db).Import(context.Background(), catalog, "loc-1")
	require.NoError(t, err)
	assert.Equal(t, &Summary{Imported: 2, Skipped: 4, Total: 6}, summary)

	var stock int64
	db.Model(&models.Inventory{}).Count(&stock)
	assert.Equal(t, int64(2), stock, "a rejected product leaves no stock row behind")
}

func TestImport_FetchFailureImportsNothing(t *testing.T) {
	db := newTestDB(t)
	catalog := &fakeCatalog{err: &clover.RemoteCatalogError{Op: "fetch items", Status: 401, Body: "unauthorized"}}

	_, err := newTestImporter(db).Import(context.Background(), catalog, "loc-1")
	require.Error(t, err)

	var remoteErr *clover.RemoteCatalogError
	assert.True(t, errors.As(err, &remoteErr))
}

func TestGeneratedSKU(t *testing.T) {
	assert.Equal(t, "CLV-12345678", GeneratedSKU("1234567890"))
	assert.Equal(t, "CLV-abc", GeneratedSKU("abc"))
}

// cancellingStore cancels the import after a number of successful inserts.
type cancellingStore struct {
	*repository.ProductRepository
	cancel context.CancelFunc
	after  int
	n      int
}

func (c *cancellingStore) CreateWithInventory(ctx context.Context, product *models.Product, inventory *models.Inventory) error {
	err := c.ProductRepository.CreateWithInventory(ctx, product, inventory)
	if err == nil {
		c.n++
		if c.n == c.after {
			c.cancel()
		}
	}
	return err
}

func TestImport_CancelledKeepsPartialCounts(t *testing.T) {
	db := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &cancellingStore{ProductRepository: repository.NewProductRepository(db), cancel: cancel, after: 2}
	imp := New(store, clover.NewPaginator(50), logger.NewNop())

	summary, err := imp.Import(ctx, &fakeCatalog{items: remoteItems(5)}, "loc-1")
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.Equal(t, &Summary{Imported: 2, Skipped: 0, Total: 5}, summary)

	var products int64
	db.Model(&models.Product{}).Count(&products)
	assert.Equal(t, int64(2), products)
}
