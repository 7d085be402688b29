package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncRun records one import or push so operators can see what ran and how it ended.
type SyncRun struct {
	ID         string        `json:"id" gorm:"primaryKey;size:36"`
	UserID     string        `json:"user_id" gorm:"size:36;index;not null"`
	Kind       SyncKind      `json:"kind" gorm:"not null"`
	LocationID *string       `json:"location_id" gorm:"size:36"`
	Status     SyncRunStatus `json:"status" gorm:"default:in_progress"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Total      int           `json:"total"`
	LastError  *string       `json:"last_error"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at"`
}

type SyncKind string

const (
	SyncKindImport    SyncKind = "import"
	SyncKindProducts  SyncKind = "products"
	SyncKindInventory SyncKind = "inventory"
	SyncKindExport    SyncKind = "export"
)

type SyncRunStatus string

const (
	SyncRunInProgress SyncRunStatus = "in_progress"
	SyncRunCompleted  SyncRunStatus = "completed"
	SyncRunFailed     SyncRunStatus = "failed"
)

func (r *SyncRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	return nil
}
