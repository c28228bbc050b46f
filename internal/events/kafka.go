package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rentdesk-backend/internal/logger"

	"github.com/segmentio/kafka-go"
)

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	logger.ExternalServiceCall("kafka", "publish", "topic", p.writer.Topic, "type", event.Type, "key", event.Key)
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	})
	logger.ExternalServiceResult("kafka", "publish", err, "type", event.Type, "key", event.Key)
	return err
}

func (p *KafkaPublisher) Close() error {
	logger.Info("Closing Kafka publisher")
	return p.writer.Close()
}
