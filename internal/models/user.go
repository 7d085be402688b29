package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID         string   `json:"id" gorm:"primaryKey;size:36"`
	Email      string   `json:"email" gorm:"uniqueIndex;not null"`
	FullName   string   `json:"full_name"`
	Role       UserRole `json:"role" gorm:"default:staff"`
	LocationID *string  `json:"location_id" gorm:"size:36"`
	IsActive   bool     `json:"is_active" gorm:"default:true"`

	// The three Clover columns are written and cleared together.
	CloverMerchantID  *string    `json:"clover_merchant_id"`
	CloverAccessToken *string    `json:"-"`
	CloverConnectedAt *time.Time `json:"clover_connected_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleManager UserRole = "manager"
	UserRoleStaff   UserRole = "staff"
)

// CloverConnected reports whether a full Clover credential is stored.
func (u *User) CloverConnected() bool {
	return u.CloverMerchantID != nil && u.CloverAccessToken != nil && u.CloverConnectedAt != nil
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}
