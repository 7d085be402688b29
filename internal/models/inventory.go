package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Inventory is the stock of one product at one location. Quantity may go
// negative when a location oversells; sync mirrors it as stored.
type Inventory struct {
	ID               string     `json:"id" gorm:"primaryKey;size:36"`
	ProductID        string     `json:"product_id" gorm:"size:36;not null;uniqueIndex:idx_inventory_product_location"`
	LocationID       string     `json:"location_id" gorm:"size:36;not null;uniqueIndex:idx_inventory_product_location"`
	Quantity         int        `json:"quantity" gorm:"default:0"`
	ReservedQuantity int        `json:"reserved_quantity" gorm:"default:0"`
	LastCounted      *time.Time `json:"last_counted"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (Inventory) TableName() string {
	return "inventory"
}

func (i *Inventory) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}

type Location struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Name      string    `json:"name" gorm:"not null"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *Location) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}
