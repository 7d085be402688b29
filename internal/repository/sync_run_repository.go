package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"stocksync/internal/models"
)

type SyncRunRepository struct {
	db *gorm.DB
}

func NewSyncRunRepository(db *gorm.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

func (r *SyncRunRepository) Create(ctx context.Context, run *models.SyncRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}
	return nil
}

func (r *SyncRunRepository) Finish(ctx context.Context, run *models.SyncRun) error {
	err := r.db.WithContext(ctx).
		Model(&models.SyncRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"status":      run.Status,
			"succeeded":   run.Succeeded,
			"failed":      run.Failed,
			"skipped":     run.Skipped,
			"total":       run.Total,
			"last_error":  run.LastError,
			"finished_at": run.FinishedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to finish sync run: %w", err)
	}
	return nil
}

// ListByUser returns the most recent runs first.
func (r *SyncRunRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.SyncRun
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	return runs, nil
}
