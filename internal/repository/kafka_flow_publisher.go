package repository

import (
	"context"
	"time"

	"SectorFlow/internal/domain/models"
	drepo "SectorFlow/internal/domain/repository"
	pkgkafka "SectorFlow/pkg/kafka"
)

// BatchPublisher is the subset of pkg/kafka.Producer the flow publisher needs.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// FlowMessage is one window of a published result.
type FlowMessage struct {
	Window      models.Window            `json:"window"`
	GeneratedAt time.Time                `json:"generated_at"`
	Tickers     int                      `json:"tickers"`
	Rows        []models.SectorAggregate `json:"rows"`
}

// KafkaFlowPublisher writes each window of a result as a message keyed by window.
type KafkaFlowPublisher struct {
	producer BatchPublisher
	topic    string
}

// NewKafkaFlowPublisher creates a publisher writing to topic.
func NewKafkaFlowPublisher(p BatchPublisher, topic string) drepo.FlowPublisher {
	return &KafkaFlowPublisher{producer: p, topic: topic}
}

func (k *KafkaFlowPublisher) PublishResult(ctx context.Context, r *models.AggregationResult) error {
	if r == nil {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(r.Windows))
	for _, w := range models.Windows() {
		rows, ok := r.Windows[w]
		if !ok {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{
			Key: []byte(w),
			Value: FlowMessage{
				Window:      w,
				GeneratedAt: r.GeneratedAt.UTC(),
				Tickers:     r.Tickers,
				Rows:        rows,
			},
		})
	}
	return k.producer.PublishBatch(ctx, k.topic, msgs)
}

func (k *KafkaFlowPublisher) Close() error {
	return k.producer.Close()
}

// NopFlowPublisher discards results.
type NopFlowPublisher struct{}

func (NopFlowPublisher) PublishResult(context.Context, *models.AggregationResult) error { return nil }
func (NopFlowPublisher) Close() error                                                    { return nil }
