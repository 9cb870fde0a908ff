package infra

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/spinforge/platform/internal/domain"
)

// KafkaProducer wraps a kafka-go writer for publishing messages.
type KafkaProducer struct {
	writer  *kafka.Writer
	logger  *slog.Logger
	enabled bool
}

// NewKafkaProducer creates a Kafka producer. If brokers is empty or disabled, writes are no-ops.
func NewKafkaProducer(brokers string, enabled bool, logger *slog.Logger) *KafkaProducer {
	if !enabled || brokers == "" {
		logger.Info("kafka producer disabled")
		return &KafkaProducer{enabled: false, logger: logger}
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	logger.Info("kafka producer initialized", "brokers", brokers)
	return &KafkaProducer{writer: w, logger: logger, enabled: true}
}

// Publish sends a message to the given topic. No-op if disabled.
func (p *KafkaProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	if !p.enabled {
		return nil
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

// PublishRoundClosed publishes the round-close event, keyed by user so one
// player's rounds stay ordered per partition. Failures are logged, not
// surfaced; event delivery never blocks round completion.
func (p *KafkaProducer) PublishRoundClosed(ctx context.Context, round *domain.Round) {
	if !p.enabled {
		return
	}
	event := domain.NewRoundClosedEvent(round)
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("marshal round event", "error", err, "round_id", round.ID)
		return
	}
	key := []byte(strconv.FormatInt(round.UserID, 10))
	if err := p.Publish(ctx, domain.TopicRounds, key, value); err != nil {
		p.logger.Error("publish round event", "error", err, "round_id", round.ID)
	}
}

// Close shuts down the Kafka writer.
func (p *KafkaProducer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
