package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/stock-warehouse/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes pipeline run events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		now:    time.Now,
	}
}

// PublishRunCompleted publishes a run completed event carrying the run summary
func (p *Producer) PublishRunCompleted(ctx context.Context, summary *models.RunSummary) error {
	event := models.PipelineEvent{
		EventType: models.EventRunCompleted,
		RunID:     summary.RunID,
		RunDate:   summary.RunDate,
		Summary:   summary,
		Timestamp: p.now(),
	}
	return p.publish(ctx, summary.RunDate, event)
}

// PublishRunFailed publishes a run failed event
func (p *Producer) PublishRunFailed(ctx context.Context, runID, runDate string, runErr error) error {
	event := models.PipelineEvent{
		EventType: models.EventRunFailed,
		RunID:     runID,
		RunDate:   runDate,
		Error:     runErr.Error(),
		Timestamp: p.now(),
	}
	return p.publish(ctx, runDate, event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.PipelineEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
