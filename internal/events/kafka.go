package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"stocksync/internal/logger"
)

// KafkaPublisher writes completion events and sync requests to two topics.
// Messages are keyed by user so one user's events stay ordered.
type KafkaPublisher struct {
	events   *kafka.Writer
	requests *kafka.Writer
	logger   *logger.Logger
}

func NewKafkaPublisher(brokers []string, eventsTopic, requestsTopic string, logger *logger.Logger) *KafkaPublisher {
	logger.Info("Kafka publisher initialized",
		zap.Strings("brokers", brokers),
		zap.String("events_topic", eventsTopic),
		zap.String("requests_topic", requestsTopic),
	)
	return &KafkaPublisher{
		events:   newWriter(brokers, eventsTopic),
		requests: newWriter(brokers, requestsTopic),
		logger:   logger,
	}
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

func (p *KafkaPublisher) PublishSyncCompleted(ctx context.Context, evt SyncCompleted) error {
	if evt.Type == "" {
		evt.Type = TypeSyncCompleted
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	return p.write(ctx, p.events, evt.UserID, evt)
}

func (p *KafkaPublisher) RequestSync(ctx context.Context, req SyncRequest) error {
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	return p.write(ctx, p.requests, req.UserID, req)
}

func (p *KafkaPublisher) write(ctx context.Context, w *kafka.Writer, key string, v interface{}) error {
	msg, err := newMessage(key, v)
	if err != nil {
		return err
	}
	if err := w.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message",
			zap.String("topic", w.Topic),
			zap.String("key", key),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish to %s: %w", w.Topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	errEvents := p.events.Close()
	errRequests := p.requests.Close()
	if errEvents != nil {
		return errEvents
	}
	return errRequests
}

func newMessage(key string, v interface{}) (kafka.Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode message: %w", err)
	}
	return kafka.Message{Key: []byte(key), Value: data}, nil
}
