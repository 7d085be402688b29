package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"stocksync/internal/config"
	"stocksync/internal/events"
	"stocksync/internal/logger"
	"stocksync/internal/worker/processors"
)

// Processor handles one decoded sync request.
type Processor interface {
	Process(ctx context.Context, event events.SyncRequest) error
}

type Worker struct {
	config    *config.Config
	logger    *logger.Logger
	reader    *kafka.Reader
	processor Processor
}

func New(cfg *config.Config, runner processors.SyncRunner, logger *logger.Logger) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		GroupID:        cfg.KafkaWorkerGroupID,
		Topic:          cfg.KafkaSyncRequestsTopic,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})

	return &Worker{
		config:    cfg,
		logger:    logger,
		reader:    reader,
		processor: processors.NewEventProcessor(runner, logger),
	}
}

// Start consumes sync requests until ctx is cancelled. A request that fails is
// logged and dropped; the run history records what happened.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Worker started, listening for sync requests...",
		zap.String("topic", w.config.KafkaSyncRequestsTopic),
	)

	for {
		message, err := w.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("Failed to read message", zap.Error(err))
			continue
		}

		w.handle(ctx, message)
	}
}

func (w *Worker) handle(ctx context.Context, message kafka.Message) {
	w.logger.Debug("Received message",
		zap.String("key", string(message.Key)),
		zap.Int64("offset", message.Offset),
	)

	var event events.SyncRequest
	if err := json.Unmarshal(message.Value, &event); err != nil {
		w.logger.Error("Failed to parse sync request", zap.Error(err))
		return
	}

	if err := w.processor.Process(ctx, event); err != nil {
		w.logger.Error("Failed to process sync request",
			zap.String("type", event.Type),
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
		return
	}

	w.logger.Debug("Sync request processed successfully", zap.String("type", event.Type))
}

func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.reader.Close()
}
