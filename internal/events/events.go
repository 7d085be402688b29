package events

import (
	"context"
	"errors"
	"time"
)

// ErrAsyncUnavailable is returned when a sync is queued but no broker is configured.
var ErrAsyncUnavailable = errors.New("async sync requires kafka brokers")

// Request types consumed by the worker.
const (
	RequestSyncProducts  = "sync.products"
	RequestSyncInventory = "sync.inventory"
	RequestImportCatalog = "import.catalog"
)

const TypeSyncCompleted = "sync.completed"

// SyncRequest asks the worker to run a sync on behalf of a user.
type SyncRequest struct {
	Type        string    `json:"type"`
	UserID      string    `json:"user_id"`
	LocationID  string    `json:"location_id,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// SyncCompleted is published after every recorded run, successful or not.
type SyncCompleted struct {
	Type       string    `json:"type"`
	RunID      string    `json:"run_id"`
	UserID     string    `json:"user_id"`
	Kind       string    `json:"kind"`
	LocationID string    `json:"location_id,omitempty"`
	Status     string    `json:"status"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Total      int       `json:"total"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

type Publisher interface {
	PublishSyncCompleted(ctx context.Context, evt SyncCompleted) error
	RequestSync(ctx context.Context, req SyncRequest) error
	Close() error
}

// NoopPublisher drops completion events and refuses async requests.
type NoopPublisher struct{}

func (NoopPublisher) PublishSyncCompleted(ctx context.Context, evt SyncCompleted) error {
	return nil
}

func (NoopPublisher) RequestSync(ctx context.Context, req SyncRequest) error {
	return ErrAsyncUnavailable
}

func (NoopPublisher) Close() error {
	return nil
}
