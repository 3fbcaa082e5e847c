package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"slide-capture/internal/config"
	"slide-capture/internal/domain"
	"slide-capture/internal/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// WatermillSink publishes every response as one message on a topic. The
// message UUID is the response ID so consumers can deduplicate.
type WatermillSink struct {
	publisher message.Publisher
	topic     string
}

func NewWatermillSink(publisher message.Publisher, topic string) *WatermillSink {
	return &WatermillSink{publisher: publisher, topic: topic}
}

// NewKafkaPublisher builds the production publisher for the configured brokers.
func NewKafkaPublisher(cfg config.EventsConfig) (message.Publisher, error) {
	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, NewWatermillLogger(logger.Get()))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}
	return publisher, nil
}

func (s *WatermillSink) Emit(ctx context.Context, response *domain.InteractionResponse) error {
	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response %s: %w", response.ID, err)
	}

	msg := message.NewMessage(response.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("interaction_id", response.InteractionID)
	msg.Metadata.Set("slide_id", response.SlideID)
	msg.Metadata.Set("interaction_kind", string(response.InteractionKind))
	msg.Metadata.Set("value_kind", string(response.Value.Kind()))
	msg.Metadata.Set("timestamp", response.Timestamp.Format(time.RFC3339Nano))

	if err := s.publisher.Publish(s.topic, msg); err != nil {
		logger.Get().Error("WatermillSink: failed to publish response",
			zap.String("topic", s.topic),
			zap.String("response_id", response.ID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish response %s: %w", response.ID, err)
	}
	return nil
}

func (s *WatermillSink) Close() error {
	return s.publisher.Close()
}

var _ domain.ResponseSink = (*WatermillSink)(nil)

// watermillLogger routes watermill's internal logging into zap.
type watermillLogger struct {
	log *zap.Logger
}

func NewWatermillLogger(log *zap.Logger) watermill.LoggerAdapter {
	return &watermillLogger{log: log}
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.log.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	l.log.Info(msg, zapFields(fields)...)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	l.log.Debug(msg, zapFields(fields)...)
}

// Trace maps to Debug; zap has no lower level.
func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	l.log.Debug(msg, zapFields(fields)...)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{log: l.log.With(zapFields(fields)...)}
}

func zapFields(fields watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
