package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"messaging-service/internal/models"

	"github.com/IBM/sarama"
)

func InitKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy  // Enable compression
	config.Producer.Partitioner = sarama.NewHashPartitioner // Same user, same partition
	config.Version = sarama.V2_0_0_0
	config.ClientID = "messaging-service"
	config.Producer.MaxMessageBytes = 1000000 // 1MB

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return producer, nil
}

// Sink publishes notification events to a topic keyed by recipient, so one
// user's events stay ordered within a partition.
type Sink struct {
	producer sarama.SyncProducer
	topic    string
}

func NewSink(producer sarama.SyncProducer, topic string) *Sink {
	return &Sink{producer: producer, topic: topic}
}

// Deliver blocks until the broker acknowledges. SyncProducer takes no
// context; the producer's own retry settings bound the call.
func (s *Sink) Deliver(_ context.Context, event models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	partition, offset, err := s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(event.UserID),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	slog.Debug("Published notification event", "topic", s.topic, "partition", partition, "offset", offset, "user_id", event.UserID)
	return nil
}

func (s *Sink) Close() error {
	return s.producer.Close()
}
