package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/abgdnv/supermarket/pkg/messaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_OrderEvents_Subjects(t *testing.T) {
	assert.Equal(t, messaging.OrdersCreatedSubject, OrderCreatedEvent{}.Subject())
	assert.Equal(t, messaging.OrdersStatusChangedSubject, OrderStatusChangedEvent{}.Subject())
}

func Test_OrderStatusChangedEvent_Payload(t *testing.T) {
	// given
	event := OrderStatusChangedEvent{
		OrderID:   uuid.New(),
		UserID:    uuid.New(),
		From:      "PENDING",
		To:        "CANCELLED",
		ChangedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	// when
	data, err := event.Payload()

	// then
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "CANCELLED", decoded["to"])
	assert.Equal(t, event.OrderID.String(), decoded["order_id"])
	assert.NotContains(t, decoded, "carrier")
}
