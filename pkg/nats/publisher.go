package nats

import (
	"context"
	"fmt"

	"github.com/abgdnv/supermarket/pkg/messaging"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamPublisher is the part of jetstream.JetStream the publisher needs.
type JetStreamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

type NatsPublisher struct {
	js JetStreamPublisher
}

func NewNatsPublisher(js JetStreamPublisher) *NatsPublisher {
	return &NatsPublisher{js: js}
}

// Publish sends the event payload to its subject. Keyed events use the key as the
// message id so JetStream drops duplicates within the stream's window.
func (p *NatsPublisher) Publish(ctx context.Context, event messaging.Event) error {
	data, err := event.Payload()
	if err != nil {
		return fmt.Errorf("failed to get event payload: %w", err)
	}
	var opts []jetstream.PublishOpt
	if keyed, ok := event.(messaging.Keyed); ok {
		opts = append(opts, jetstream.WithMsgID(event.Subject()+":"+keyed.Key()))
	}
	if _, err = p.js.Publish(ctx, event.Subject(), data, opts...); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Subject(), err)
	}
	return nil
}
