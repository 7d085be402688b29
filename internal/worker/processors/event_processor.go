package processors

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"stocksync/internal/events"
	"stocksync/internal/logger"
	"stocksync/internal/services/catalogsync"
	"stocksync/internal/worker/processors/export"
	"stocksync/internal/worker/processors/importer"
)

// SyncRunner runs the syncs a request can ask for. *catalogsync.Service satisfies it.
type SyncRunner interface {
	Import(ctx context.Context, req catalogsync.Request) (*importer.Summary, error)
	SyncProducts(ctx context.Context, req catalogsync.Request) (*export.Report, error)
	SyncInventory(ctx context.Context, req catalogsync.Request) (*export.Report, error)
}

type EventProcessor struct {
	runner SyncRunner
	logger *logger.Logger
}

func NewEventProcessor(runner SyncRunner, logger *logger.Logger) *EventProcessor {
	return &EventProcessor{
		runner: runner,
		logger: logger,
	}
}

// Process runs one queued sync with the requesting user's stored credential.
func (ep *EventProcessor) Process(ctx context.Context, event events.SyncRequest) error {
	if event.UserID == "" {
		return fmt.Errorf("sync request %q has no user_id", event.Type)
	}

	req := catalogsync.Request{UserID: event.UserID, LocationID: event.LocationID}
	log := ep.logger.With(zap.String("type", event.Type), zap.String("user_id", event.UserID))

	switch event.Type {
	case events.RequestImportCatalog:
		summary, err := ep.runner.Import(ctx, req)
		if err != nil {
			return err
		}
		log.Info("Queued import finished",
			zap.Int("imported", summary.Imported),
			zap.Int("skipped", summary.Skipped),
		)

	case events.RequestSyncProducts:
		report, err := ep.runner.SyncProducts(ctx, req)
		if err != nil {
			return err
		}
		log.Info(report.Message())

	case events.RequestSyncInventory:
		report, err := ep.runner.SyncInventory(ctx, req)
		if err != nil {
			return err
		}
		log.Info(report.Message())

	default:
		return fmt.Errorf("%w: %s", catalogsync.ErrUnknownRequest, event.Type)
	}

	return nil
}
