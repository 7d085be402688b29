package catalogsync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"stocksync/internal/events"
	"stocksync/internal/lock"
	"stocksync/internal/models"
	"stocksync/internal/services/clover"
	"stocksync/internal/worker/processors/export"
	"stocksync/internal/worker/processors/importer"
)

// Request identifies who is syncing and with which credential. An empty
// SessionID means the user's stored credential.
type Request struct {
	UserID     string
	SessionID  string
	LocationID string
}

const (
	DirectionImport = "import"
	DirectionExport = "export"
)

// ManualResult holds whichever half of a manual sync ran.
type ManualResult struct {
	Direction string            `json:"direction"`
	Import    *importer.Summary `json:"import,omitempty"`
	Products  *export.Report    `json:"products,omitempty"`
	Inventory *export.Report    `json:"inventory,omitempty"`
}

// Import pulls the remote catalog into req.LocationID.
func (s *Service) Import(ctx context.Context, req Request) (*importer.Summary, error) {
	if req.LocationID == "" {
		return nil, ErrLocationRequired
	}
	if err := s.checkLocation(ctx, req.LocationID); err != nil {
		return nil, err
	}

	var summary *importer.Summary
	err := s.withSync(ctx, req, models.SyncKindImport, func(ctx context.Context, client *clover.Client, run *models.SyncRun) error {
		var err error
		summary, err = s.Importer.Import(ctx, client, req.LocationID)
		if summary != nil {
			run.Total = summary.Total
			run.Succeeded = summary.Imported
			run.Skipped = summary.Skipped
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *Service) SyncProducts(ctx context.Context, req Request) (*export.Report, error) {
	var report *export.Report
	err := s.withSync(ctx, req, models.SyncKindProducts, func(ctx context.Context, client *clover.Client, run *models.SyncRun) error {
		var err error
		report, err = s.Exporter.SyncProducts(ctx, client)
		if err != nil {
			return err
		}
		recordReport(run, report)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// SyncInventory pushes stock for req.LocationID, or every location when empty.
func (s *Service) SyncInventory(ctx context.Context, req Request) (*export.Report, error) {
	if req.LocationID != "" {
		if err := s.checkLocation(ctx, req.LocationID); err != nil {
			return nil, err
		}
	}

	var report *export.Report
	err := s.withSync(ctx, req, models.SyncKindInventory, func(ctx context.Context, client *clover.Client, run *models.SyncRun) error {
		var err error
		report, err = s.Exporter.SyncInventory(ctx, client, req.LocationID)
		if err != nil {
			return err
		}
		recordReport(run, report)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ManualSync runs an import, or a product push followed by an inventory push,
// as one recorded run.
func (s *Service) ManualSync(ctx context.Context, req Request, direction string) (*ManualResult, error) {
	switch direction {
	case DirectionImport:
		summary, err := s.Import(ctx, req)
		if err != nil {
			return nil, err
		}
		return &ManualResult{Direction: direction, Import: summary}, nil

	case DirectionExport:
		if req.LocationID != "" {
			if err := s.checkLocation(ctx, req.LocationID); err != nil {
				return nil, err
			}
		}
		result := &ManualResult{Direction: direction}
		err := s.withSync(ctx, req, models.SyncKindExport, func(ctx context.Context, client *clover.Client, run *models.SyncRun) error {
			var err error
			if result.Products, err = s.Exporter.SyncProducts(ctx, client); err != nil {
				return err
			}
			if result.Inventory, err = s.Exporter.SyncInventory(ctx, client, req.LocationID); err != nil {
				return err
			}
			recordReport(run, result.Products)
			run.Total += result.Inventory.Total
			run.Succeeded += result.Inventory.Succeeded
			run.Failed += result.Inventory.Failed
			if run.LastError == nil {
				run.LastError = optional(result.Inventory.FirstError())
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return result, nil

	default:
		return nil, ErrInvalidDirection
	}
}

// EnqueueSync hands a sync to the worker. Setup errors are reported now; the
// run itself happens later.
func (s *Service) EnqueueSync(ctx context.Context, requestType string, req Request) error {
	switch requestType {
	case events.RequestImportCatalog:
		if req.LocationID == "" {
			return ErrLocationRequired
		}
	case events.RequestSyncProducts, events.RequestSyncInventory:
	default:
		return ErrUnknownRequest
	}
	if req.LocationID != "" {
		if err := s.checkLocation(ctx, req.LocationID); err != nil {
			return err
		}
	}

	status, err := s.Status(ctx, req.UserID)
	if err != nil {
		return err
	}
	if !status.Connected {
		return ErrNotConnected
	}

	return s.Publisher.RequestSync(ctx, events.SyncRequest{
		Type:       requestType,
		UserID:     req.UserID,
		LocationID: req.LocationID,
	})
}

type syncFunc func(ctx context.Context, client *clover.Client, run *models.SyncRun) error

// withSync holds the user's sync lock, resolves the credential, records the
// run and publishes its outcome. A session handle is consumed only when fn
// succeeds.
func (s *Service) withSync(ctx context.Context, req Request, kind models.SyncKind, fn syncFunc) error {
	if err := s.configured(); err != nil {
		return err
	}

	release, err := s.Locker.Acquire(ctx, "clover_sync:"+req.UserID, lockTTL, s.cfg.SyncLockWait)
	if errors.Is(err, lock.ErrNotAcquired) {
		return ErrSyncInProgress
	}
	if err != nil {
		return fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	defer release()

	cred, err := s.resolve(ctx, req.UserID, req.SessionID)
	if err != nil {
		return err
	}
	client := s.Clients.New(cred.MerchantID, cred.AccessToken)

	run := &models.SyncRun{
		UserID:     req.UserID,
		Kind:       kind,
		LocationID: optional(req.LocationID),
		Status:     models.SyncRunInProgress,
		StartedAt:  s.now(),
	}
	if err := s.Runs.Create(ctx, run); err != nil {
		return err
	}

	log := s.logger.With(
		zap.String("run_id", run.ID),
		zap.String("user_id", req.UserID),
		zap.String("kind", string(kind)),
	)
	log.Info("Clover sync started")

	runErr := fn(ctx, client, run)
	s.finish(ctx, run, runErr)

	if runErr != nil {
		log.Error("Clover sync failed", zap.Error(runErr))
		return runErr
	}
	log.Info("Clover sync finished",
		zap.Int("succeeded", run.Succeeded),
		zap.Int("failed", run.Failed),
		zap.Int("skipped", run.Skipped),
		zap.Int("total", run.Total),
	)

	if req.SessionID != "" {
		if err := s.Sessions.Invalidate(context.WithoutCancel(ctx), req.SessionID); err != nil {
			log.Warn("Failed to invalidate sync session", zap.Error(err))
		}
	}
	return nil
}

// finish records the outcome even when the request was cancelled meanwhile.
func (s *Service) finish(ctx context.Context, run *models.SyncRun, runErr error) {
	ctx = context.WithoutCancel(ctx)

	finished := s.now()
	run.FinishedAt = &finished
	run.Status = models.SyncRunCompleted
	if runErr != nil {
		run.Status = models.SyncRunFailed
		run.LastError = optional(runErr.Error())
	}

	if err := s.Runs.Finish(ctx, run); err != nil {
		s.logger.Error("Failed to record sync run", zap.String("run_id", run.ID), zap.Error(err))
	}

	evt := events.SyncCompleted{
		Type:      events.TypeSyncCompleted,
		RunID:     run.ID,
		UserID:    run.UserID,
		Kind:      string(run.Kind),
		Status:    string(run.Status),
		Succeeded: run.Succeeded,
		Failed:    run.Failed,
		Total:     run.Total,
		Timestamp: finished.UTC(),
	}
	if run.LocationID != nil {
		evt.LocationID = *run.LocationID
	}
	if run.LastError != nil {
		evt.Error = *run.LastError
	}
	if err := s.Publisher.PublishSyncCompleted(ctx, evt); err != nil {
		s.logger.Warn("Failed to publish sync event", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func recordReport(run *models.SyncRun, report *export.Report) {
	run.Total = report.Total
	run.Succeeded = report.Succeeded
	run.Failed = report.Failed
	run.LastError = optional(report.FirstError())
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
