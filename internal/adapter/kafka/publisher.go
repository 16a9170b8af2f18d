package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/gridwatch/landslide-alert-engine/internal/config"
	"github.com/gridwatch/landslide-alert-engine/internal/domain"
)

// Publisher produces alert records to a Kafka topic.
// It implements engine.RecordSink.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured alert topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAlertTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishRecords serializes and publishes one cycle's alert records in a
// single WriteMessages call. Keying by tower ID keeps each tower's alert
// history ordered within a partition.
func (p *Publisher) PublishRecords(ctx context.Context, records []domain.AlertRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an AlertRecord into a Kafka message.
func serializeToMessage(rec domain.AlertRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.TowerID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "final_level", Value: []byte(rec.FinalLevel.String())},
			{Key: "evaluated_at", Value: []byte(rec.EvaluatedAt.Format(time.RFC3339))},
		},
	}, nil
}
