package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stocksync/internal/logger"
	"stocksync/internal/models"
	"stocksync/internal/repository"
	"stocksync/internal/services/clover"
)

type ProductStore interface {
	LinkedCloverIDs(ctx context.Context) (map[string]struct{}, error)
	CreateWithInventory(ctx context.Context, product *models.Product, inventory *models.Inventory) error
}

// Summary is what an import reports back to the caller.
type Summary struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}

// Importer pulls the Clover catalog into local products. It only ever adds:
// items already linked to a product are skipped, never updated.
type Importer struct {
	products    ProductStore
	paginator   *clover.Paginator
	transformer *clover.Transformer
	logger      *logger.Logger
	now         func() time.Time
}

func New(products ProductStore, paginator *clover.Paginator, logger *logger.Logger) *Importer {
	return &Importer{
		products:    products,
		paginator:   paginator,
		transformer: clover.NewTransformer(),
		logger:      logger,
		now:         time.Now,
	}
}

// Import walks the whole remote catalog and creates a product plus one stock row
// at locationID for every unseen item. A bad item is logged and skipped. When ctx
// is cancelled mid-batch the counts so far are returned along with the error.
func (i *Importer) Import(ctx context.Context, fetcher clover.PageFetcher, locationID string) (*Summary, error) {
	items, err := i.paginator.Walk(ctx, fetcher)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clover catalog: %w", err)
	}

	linked, err := i.products.LinkedCloverIDs(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Total: len(items)}
	for idx := range items {
		if err := ctx.Err(); err != nil {
			i.logger.Warn("Clover import interrupted",
				zap.String("location_id", locationID),
				zap.Int("imported", summary.Imported),
				zap.Int("remaining", len(items)-idx),
			)
			return summary, err
		}

		item := &items[idx]
		if _, ok := linked[item.ID]; ok {
			summary.Skipped++
			continue
		}

		if err := i.importItem(ctx, item, locationID); err != nil {
			i.logger.Warn("Skipping Clover item",
				zap.String("clover_id", item.ID),
				zap.Bool("duplicate", repository.IsUniqueViolation(err)),
				zap.Error(err),
			)
			summary.Skipped++
			continue
		}

		linked[item.ID] = struct{}{}
		summary.Imported++
	}

	i.logger.Info("Clover import finished",
		zap.String("location_id", locationID),
		zap.Int("imported", summary.Imported),
		zap.Int("skipped", summary.Skipped),
		zap.Int("total", summary.Total),
	)
	return summary, nil
}

func (i *Importer) importItem(ctx context.Context, item *clover.Item, locationID string) error {
	fields, err := i.transformer.FromRemoteItem(item)
	if err != nil {
		return err
	}

	sku := fields.SKU
	if sku == "" {
		sku = GeneratedSKU(item.ID)
	}

	cloverID := fields.CloverID
	product := &models.Product{
		ID:          uuid.NewString(),
		SKU:         sku,
		Name:        fields.Name,
		Description: optional(fields.Description),
		Category:    optional(fields.Category),
		Price:       fields.Price,
		Cost:        fields.Cost,
		CloverID:    &cloverID,
		IsActive:    true,
	}

	counted := i.now()
	inventory := &models.Inventory{
		LocationID:  locationID,
		Quantity:    fields.Quantity,
		LastCounted: &counted,
	}

	return i.products.CreateWithInventory(ctx, product, inventory)
}

// GeneratedSKU is the SKU given to Clover items that have neither code nor sku.
func GeneratedSKU(cloverID string) string {
	prefix := cloverID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return "CLV-" + prefix
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
