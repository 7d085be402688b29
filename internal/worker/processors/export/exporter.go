package export

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"stocksync/internal/logger"
	"stocksync/internal/models"
	"stocksync/internal/services/clover"
	"stocksync/internal/worker/pool"
	"stocksync/internal/worker/processors/validation"
)

// RemoteCatalog is the part of the Clover client the push path needs.
type RemoteCatalog interface {
	CreateItem(ctx context.Context, payload clover.ItemPayload) (*clover.Item, error)
	UpdateItem(ctx context.Context, itemID string, payload clover.ItemPayload) (*clover.Item, error)
	SetItemQuantity(ctx context.Context, itemID string, quantity int) error
}

type ProductStore interface {
	ListActive(ctx context.Context) ([]models.Product, error)
	SetCloverID(ctx context.Context, productID, cloverID string) error
}

type InventoryStore interface {
	ListLinked(ctx context.Context, locationID string) ([]models.Inventory, error)
}

// Exporter pushes local products and stock levels to Clover. Every item is
// handled on its own; a failure is recorded and the rest carry on.
type Exporter struct {
	products    ProductStore
	inventory   InventoryStore
	transformer *clover.Transformer
	validator   *validation.Validator
	concurrency int
	logger      *logger.Logger
}

func New(products ProductStore, inventory InventoryStore, validator *validation.Validator, concurrency int, logger *logger.Logger) *Exporter {
	return &Exporter{
		products:    products,
		inventory:   inventory,
		transformer: clover.NewTransformer(),
		validator:   validator,
		concurrency: concurrency,
		logger:      logger,
	}
}

// SyncProducts creates or updates a Clover item for every active product. New
// items have their Clover id written back onto the product.
func (e *Exporter) SyncProducts(ctx context.Context, remote RemoteCatalog) (*Report, error) {
	products, err := e.products.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Pushing products to Clover", zap.Int("count", len(products)))

	results := pool.Map(ctx, e.concurrency, products, func(ctx context.Context, p models.Product) Result {
		return e.pushProduct(ctx, remote, &p)
	})
	return newReport("products", results), nil
}

func (e *Exporter) pushProduct(ctx context.Context, remote RemoteCatalog, p *models.Product) Result {
	result := Result{ProductID: p.ID, Name: p.Name}

	if e.validator != nil {
		if err := e.validator.ValidateProduct(p); err != nil {
			return result.fail(err)
		}
	}

	payload, err := e.transformer.ToRemoteItem(p)
	if err != nil {
		return result.fail(err)
	}

	if p.Linked() {
		item, err := remote.UpdateItem(ctx, *p.CloverID, payload)
		if err != nil {
			e.logger.Warn("Failed to update Clover item", zap.String("product_id", p.ID), zap.Error(err))
			return result.fail(err)
		}
		return result.succeed(itemID(item, *p.CloverID))
	}

	item, err := remote.CreateItem(ctx, payload)
	if err != nil {
		e.logger.Warn("Failed to create Clover item", zap.String("product_id", p.ID), zap.Error(err))
		return result.fail(err)
	}
	if item == nil || item.ID == "" {
		return result.fail(fmt.Errorf("clover returned no id for %s", p.SKU))
	}

	if err := e.products.SetCloverID(ctx, p.ID, item.ID); err != nil {
		e.logger.Error("Created Clover item but failed to link product",
			zap.String("product_id", p.ID),
			zap.String("clover_id", item.ID),
			zap.Error(err),
		)
		return result.fail(fmt.Errorf("created clover item %s but failed to save link: %w", item.ID, err))
	}
	return result.succeed(item.ID)
}

// SyncInventory pushes the stored quantity of every linked stock row. An empty
// locationID covers every location. Quantities are sent as stored, negative
// values included.
func (e *Exporter) SyncInventory(ctx context.Context, remote RemoteCatalog, locationID string) (*Report, error) {
	rows, err := e.inventory.ListLinked(ctx, locationID)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Pushing inventory to Clover",
		zap.String("location_id", locationID),
		zap.Int("count", len(rows)),
	)

	results := pool.Map(ctx, e.concurrency, rows, func(ctx context.Context, inv models.Inventory) Result {
		return e.pushQuantity(ctx, remote, &inv)
	})
	return newReport("inventory items", results), nil
}

func (e *Exporter) pushQuantity(ctx context.Context, remote RemoteCatalog, inv *models.Inventory) Result {
	quantity := inv.Quantity
	result := Result{ProductID: inv.ProductID, InventoryID: inv.ID, Quantity: &quantity}
	if inv.Product == nil || !inv.Product.Linked() {
		return result.fail(fmt.Errorf("product %s is not linked to clover", inv.ProductID))
	}
	result.Name = inv.Product.Name

	cloverID := *inv.Product.CloverID
	if err := remote.SetItemQuantity(ctx, cloverID, quantity); err != nil {
		e.logger.Warn("Failed to push quantity",
			zap.String("inventory_id", inv.ID),
			zap.String("clover_id", cloverID),
			zap.Error(err),
		)
		return result.fail(err)
	}
	return result.succeed(cloverID)
}

func itemID(item *clover.Item, fallback string) string {
	if item != nil && item.ID != "" {
		return item.ID
	}
	return fallback
}
