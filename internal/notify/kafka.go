package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/qcom/intake/internal/models"
	"github.com/segmentio/kafka-go"
)

const EventSubmissionCreated = "submission.created"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher emits a submission.created event per stored submission.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaPublisher{writer: w}
}

type submissionEvent struct {
	Type       string            `json:"type"`
	OccurredAt time.Time         `json:"occurred_at"`
	Submission models.Submission `json:"submission"`
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Notify(ctx context.Context, s models.Submission) error {
	b, err := json.Marshal(submissionEvent{
		Type:       EventSubmissionCreated,
		OccurredAt: s.SubmittedAt,
		Submission: s,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal submission event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(s.ID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventSubmissionCreated)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish submission event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
