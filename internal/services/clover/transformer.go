package clover

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"stocksync/internal/models"
)

var hundred = decimal.NewFromInt(100)

// ProductFields is the local view of a Clover item, ready to be stored.
type ProductFields struct {
	CloverID    string
	Name        string
	SKU         string
	Description string
	Category    string
	Price       float64
	Cost        float64
	Quantity    int
}

type Transformer struct{}

func NewTransformer() *Transformer {
	return &Transformer{}
}

// ToRemoteItem converts a local product into the payload Clover expects
func (t *Transformer) ToRemoteItem(p *models.Product) (ItemPayload, error) {
	price, err := toCents(p.Price)
	if err != nil {
		return ItemPayload{}, fmt.Errorf("invalid price for %s: %w", p.SKU, err)
	}
	cost, err := toCents(p.Cost)
	if err != nil {
		return ItemPayload{}, fmt.Errorf("invalid cost for %s: %w", p.SKU, err)
	}

	description := ""
	if p.Description != nil {
		description = *p.Description
	}

	return ItemPayload{
		Name:        p.Name,
		Code:        p.SKU,
		SKU:         p.SKU,
		Price:       price,
		Cost:        cost,
		Description: description,
		Notes:       description,
	}, nil
}

// FromRemoteItem converts a Clover item to local product fields
func (t *Transformer) FromRemoteItem(item *Item) (*ProductFields, error) {
	name := strings.TrimSpace(item.Name)
	if name == "" {
		return nil, fmt.Errorf("clover item %s has no name", item.ID)
	}
	if item.Price < 0 {
		return nil, fmt.Errorf("clover item %s has negative price %d", item.ID, item.Price)
	}

	// Code is the barcode/SKU field most merchants fill in
	sku := item.Code
	if sku == "" {
		sku = item.SKU
	}

	fields := &ProductFields{
		CloverID:    item.ID,
		Name:        name,
		SKU:         sku,
		Description: item.Description,
		Price:       fromCents(item.Price),
		Cost:        fromCents(item.Cost),
	}

	if item.Categories != nil && len(item.Categories.Elements) > 0 {
		fields.Category = item.Categories.Elements[0].Name
	}
	if item.ItemStock != nil {
		fields.Quantity = int(math.Round(item.ItemStock.Quantity))
	}

	return fields, nil
}

func toCents(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("amount is not a number")
	}
	if amount < 0 {
		return 0, fmt.Errorf("amount %.2f is negative", amount)
	}
	return decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart(), nil
}

func fromCents(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}
