package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/supermarket/pkg/messaging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
)

type OrderLine struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int32     `json:"quantity"`
}

type OrderCreatedEvent struct {
	Carrier       propagation.MapCarrier `json:"carrier,omitempty"`
	OrderID       uuid.UUID              `json:"order_id"`
	UserID        uuid.UUID              `json:"user_id"`
	Lines         []OrderLine            `json:"lines"`
	PaymentMethod string                 `json:"payment_method"`
	TotalPrice    int64                  `json:"total_price"`
	CreatedAt     time.Time              `json:"created_at"`
}

func (o OrderCreatedEvent) Subject() string {
	return messaging.OrdersCreatedSubject
}

func (o OrderCreatedEvent) Payload() ([]byte, error) {
	return json.Marshal(o)
}

type OrderStatusChangedEvent struct {
	Carrier   propagation.MapCarrier `json:"carrier,omitempty"`
	OrderID   uuid.UUID              `json:"order_id"`
	UserID    uuid.UUID              `json:"user_id"`
	From      string                 `json:"from"`
	To        string                 `json:"to"`
	ChangedAt time.Time              `json:"changed_at"`
}

func (o OrderStatusChangedEvent) Subject() string {
	return messaging.OrdersStatusChangedSubject
}

func (o OrderStatusChangedEvent) Payload() ([]byte, error) {
	return json.Marshal(o)
}

// Key partitions the event stream by order so that events of one order stay in sequence.
func (o OrderCreatedEvent) Key() string {
	return o.OrderID.String()
}

func (o OrderStatusChangedEvent) Key() string {
	return o.OrderID.String()
}
