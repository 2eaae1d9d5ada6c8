package kafka

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/EAniwa/legacylancers-sub002/internal/notify"
)

// NotificationProducer publishes offline-fallback notifications to a Kafka
// topic consumed by the downstream notification service. It implements
// notify.Dispatcher.
type NotificationProducer struct {
	writer *kafka.Writer
	topic  string
}

func NewNotificationProducer(brokers []string, topic string) *NotificationProducer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
		// Notifications go out one at a time; don't batch.
		BatchSize:    1,
		BatchTimeout: 0 * time.Millisecond,
		RequiredAcks: 1,
		Async:        false,
	}
	return &NotificationProducer{writer: writer, topic: topic}
}

func (p *NotificationProducer) Dispatch(ctx context.Context, n notify.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(n.RecipientID),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Printf("Failed to publish notification to Kafka topic %s: %v", p.topic, err)
		return err
	}
	return nil
}

func (p *NotificationProducer) Close() error {
	return p.writer.Close()
}
