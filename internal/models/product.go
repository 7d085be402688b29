package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Product struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	SKU             string    `json:"sku" gorm:"uniqueIndex;not null"`
	Name            string    `json:"name" gorm:"not null"`
	Description     *string   `json:"description"`
	Category        *string   `json:"category"`
	Barcode         *string   `json:"barcode"`
	Cost            float64   `json:"cost" gorm:"type:decimal(10,2);default:0"`
	Price           float64   `json:"price" gorm:"type:decimal(10,2);not null"`
	ReorderPoint    int       `json:"reorder_point" gorm:"default:10"`
	ReorderQuantity int       `json:"reorder_quantity" gorm:"default:50"`
	CloverID        *string   `json:"clover_id" gorm:"uniqueIndex"`
	IsActive        bool      `json:"is_active" gorm:"default:true"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Linked reports whether the product already has a Clover item.
func (p *Product) Linked() bool {
	return p.CloverID != nil && *p.CloverID != ""
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
