// Package kafka publishes checkout events to Kafka topics named after the event subject.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/abgdnv/supermarket/pkg/config"
	"github.com/abgdnv/supermarket/pkg/messaging"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Publisher struct {
	writer MessageWriter
}

// NewWriter builds a writer without a fixed topic; every message names its own.
func NewWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           cfg.WriteTimeout,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: true,
	}
}

func NewPublisher(writer MessageWriter) *Publisher {
	return &Publisher{writer: writer}
}

func (p *Publisher) Publish(ctx context.Context, event messaging.Event) error {
	data, err := event.Payload()
	if err != nil {
		return fmt.Errorf("failed to get event payload: %w", err)
	}
	msg := kafka.Message{Topic: event.Subject(), Value: data, Time: time.Now().UTC()}
	if keyed, ok := event.(messaging.Keyed); ok {
		msg.Key = []byte(keyed.Key())
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write %s: %w", event.Subject(), err)
	}
	return nil
}
