// Package messaging defines the events published by the checkout service and the
// publisher contract the transports implement.
package messaging

import (
	"context"
)

const (
	OrdersCreatedSubject       = "orders.created"
	OrdersStatusChangedSubject = "orders.status_changed"
)

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

// Keyed events carry a partition key for brokers that order messages per key.
type Keyed interface {
	Key() string
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
