// Package publish hands job definitions to the orchestrator over Kafka.
package publish

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"dagtemplate/internal/core"
)

const (
	HeaderVersion  = "dag-version"
	HeaderSchedule = "dag-schedule"
)

// Producer is the part of *kafka.Producer the publisher uses.
type Producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
}

type Publisher struct {
	producer Producer
	topic    string
}

func NewPublisher(producer Producer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

// Publish sends job's JSON document keyed by its id and waits for the
// delivery report.
func (p *Publisher) Publish(ctx context.Context, job *core.Job) error {
	data, err := core.Encode(job, core.FormatJSON)
	if err != nil {
		return fmt.Errorf("encode %s: %w", job.ID(), err)
	}

	topic := p.topic
	// buffered so a late report never blocks the producer after ctx is done
	deliveryChan := make(chan kafka.Event, 1)
	err = p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(job.ID()),
		Value:          data,
		Headers: []kafka.Header{
			{Key: HeaderVersion, Value: []byte(job.Version())},
			{Key: HeaderSchedule, Value: []byte(job.Schedule().String())},
		},
	}, deliveryChan)
	if err != nil {
		slog.Error("Failed to produce message to Kafka", "topic", topic, "job_id", job.ID(), "error", err)
		return fmt.Errorf("produce %s: %w", job.ID(), err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event %v", e)
		}
		if m.TopicPartition.Error != nil {
			slog.Error("Failed to deliver message to Kafka",
				"topic", topic,
				"job_id", job.ID(),
				"partition", m.TopicPartition.Partition,
				"error", m.TopicPartition.Error)
			return fmt.Errorf("deliver %s: %w", job.ID(), m.TopicPartition.Error)
		}
		slog.Info("Published job definition",
			"topic", topic,
			"job_id", job.ID(),
			"version", job.Version(),
			"partition", m.TopicPartition.Partition,
			"offset", m.TopicPartition.Offset.String())
		return nil
	}
}

// NewProducer creates and returns a new Kafka producer instance.
func NewProducer(bootstrapServers string) (*kafka.Producer, error) {
	config := &kafka.ConfigMap{"bootstrap.servers": bootstrapServers}
	p, err := kafka.NewProducer(config)
	if err != nil {
		slog.Error("Failed to create Kafka producer", "bootstrap_servers", bootstrapServers, "error", err)
		return nil, err
	}
	slog.Info("Kafka producer created successfully", "bootstrap_servers", bootstrapServers)
	return p, nil
}
