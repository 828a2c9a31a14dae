package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/sirupsen/logrus"
)

var _ Queue = (*Kafka)(nil)

type KafkaOptions struct {
	Brokers string
	Topic   string
	GroupID string
}

// Kafka publishes events to a topic and consumes them with a consumer group.
type Kafka struct {
	producer *kafka.Producer
	consumer *kafka.Consumer
	topic    string
}

func NewKafka(opts KafkaOptions) (*Kafka, error) {
	if opts.Topic == "" {
		opts.Topic = DefaultTopic
	}
	if opts.GroupID == "" {
		opts.GroupID = "coa-notify"
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": opts.Brokers,
		"security.protocol": "plaintext",
	})
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": opts.Brokers,
		"security.protocol": "plaintext",
		"group.id":          opts.GroupID,
		"auto.offset.reset": "earliest",
	})
	if err != nil {
		producer.Close()
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	if err := consumer.Subscribe(opts.Topic, nil); err != nil {
		producer.Close()
		_ = consumer.Close()
		return nil, fmt.Errorf("kafka subscribe %s: %w", opts.Topic, err)
	}

	return &Kafka{producer: producer, consumer: consumer, topic: opts.Topic}, nil
}

// Publish waits for the delivery report.
func (k *Kafka) Publish(ctx context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	delivery := make(chan kafka.Event, 1)
	err = k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.Key),
		Value:          data,
	}, delivery)
	if err != nil {
		return fmt.Errorf("kafka produce: %w", err)
	}

	select {
	case e := <-delivery:
		msg, ok := e.(*kafka.Message)
		if ok && msg.TopicPartition.Error != nil {
			return fmt.Errorf("kafka delivery: %w", msg.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poll reads until max events arrived or the topic has nothing more to give.
func (k *Kafka) Poll(ctx context.Context, max int) ([]*Event, error) {
	events := make([]*Event, 0)
	for len(events) < max {
		if err := ctx.Err(); err != nil {
			return events, err
		}

		msg, err := k.consumer.ReadMessage(100 * time.Millisecond)
		if err != nil {
			var kerr kafka.Error
			if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
				return events, nil
			}
			return events, fmt.Errorf("kafka read: %w", err)
		}

		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logrus.Warnf("skipping malformed event at %v: %v", msg.TopicPartition, err)
			continue
		}
		events = append(events, &event)
	}
	return events, nil
}

func (k *Kafka) Close() error {
	k.producer.Flush(5000)
	k.producer.Close()
	return k.consumer.Close()
}
