package notify

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
)

// Kafka publishes events to a Kafka topic.
type Kafka struct {
	writer *kafka.Writer
}

func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (k *Kafka) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Type),
		Value: data,
	})
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
