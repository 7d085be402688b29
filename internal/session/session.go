package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// ErrNotFound is returned for unknown, consumed or expired handles.
var ErrNotFound = errors.New("session not found or expired")

// Session binds a short-lived handle to a Clover credential or, for OAuth state
// entries, only to the user who started the handshake.
type Session struct {
	UserID      string    `json:"user_id"`
	AccessToken string    `json:"access_token,omitempty"`
	MerchantID  string    `json:"merchant_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Store interface {
	// Create stores s under a new random handle.
	Create(ctx context.Context, s Session) (string, error)
	Get(ctx context.Context, handle string) (*Session, error)
	// Take returns the session and removes it in one step.
	Take(ctx context.Context, handle string) (*Session, error)
	Invalidate(ctx context.Context, handle string) error
}

func newHandle() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
