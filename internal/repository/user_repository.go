package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"stocksync/internal/models"
	"stocksync/internal/secrets"
)

// Credential is a user's decrypted Clover connection.
type Credential struct {
	UserID      string
	MerchantID  string
	AccessToken string
	ConnectedAt time.Time
}

// UserRepository owns the Clover credential columns on users. Tokens are sealed
// before they are written and opened on read.
type UserRepository struct {
	db     *gorm.DB
	sealer *secrets.Sealer
}

func NewUserRepository(db *gorm.DB, sealer *secrets.Sealer) *UserRepository {
	return &UserRepository{db: db, sealer: sealer}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepository) Credential(ctx context.Context, userID string) (*Credential, error) {
	user, err := r.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.CloverConnected() {
		return nil, ErrNotConnected
	}

	token, err := r.sealer.Open(*user.CloverAccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to open clover token for user %s: %w", userID, err)
	}

	return &Credential{
		UserID:      user.ID,
		MerchantID:  *user.CloverMerchantID,
		AccessToken: token,
		ConnectedAt: *user.CloverConnectedAt,
	}, nil
}

// Connect writes all three credential columns in one statement.
func (r *UserRepository) Connect(ctx context.Context, userID, merchantID, accessToken string, connectedAt time.Time) error {
	sealed, err := r.sealer.Seal(accessToken)
	if err != nil {
		return fmt.Errorf("failed to seal clover token: %w", err)
	}

	return r.updateCredential(ctx, userID, map[string]interface{}{
		"clover_merchant_id":  merchantID,
		"clover_access_token": sealed,
		"clover_connected_at": connectedAt,
	})
}

// Disconnect clears all three credential columns in one statement.
func (r *UserRepository) Disconnect(ctx context.Context, userID string) error {
	return r.updateCredential(ctx, userID, map[string]interface{}{
		"clover_merchant_id":  nil,
		"clover_access_token": nil,
		"clover_connected_at": nil,
	})
}

func (r *UserRepository) updateCredential(ctx context.Context, userID string, values map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(values)
	if result.Error != nil {
		return fmt.Errorf("failed to update clover credential: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
