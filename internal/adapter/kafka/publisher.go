// Package kafka publishes recommendation events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/agromind-service/internal/domain"
)

// messageWriter is the part of kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces one message per recommendation.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// batchTimeout caps how long a single-message write waits for its batch to
// fill. It is on the request path of every prediction.
const batchTimeout = 10 * time.Millisecond

// NewPublisher creates a Kafka producer for the given brokers and topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{writer: newWriter(brokers, topic), logger: logger}
}

func newWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchTimeout:           batchTimeout,
		AllowAutoTopicCreation: true,
	}
}

// Record publishes the recommendation keyed by its ID.
func (p *Publisher) Record(ctx context.Context, rec domain.Recommendation) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish recommendation %s: %w", rec.ID, err)
	}
	p.logger.Debug("recommendation published", "id", rec.ID, "crop", rec.RecommendedCrop)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a Recommendation into a Kafka message.
func serializeToMessage(rec domain.Recommendation) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize recommendation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "recommended_crop", Value: []byte(rec.RecommendedCrop)},
			{Key: "created_at", Value: []byte(rec.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
