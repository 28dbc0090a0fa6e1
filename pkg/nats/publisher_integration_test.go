package nats

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/abgdnv/supermarket/pkg/messaging"
	"github.com/abgdnv/supermarket/pkg/messaging/events"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/nats"
)

// skipIntegrationTests is the environment variable that controls whether to skip integration tests.
const skipIntegrationTests = "CHECKOUT_SKIP_INTEGRATION_TESTS"
const natsImg = "nats:2.11.6-alpine"

type PublisherSuite struct {
	suite.Suite
	ctx           context.Context
	natsContainer *nats.NATSContainer
	nc            *natsgo.Conn
	js            jetstream.JetStream
}

func (s *PublisherSuite) SetupSuite() {
	s.ctx = context.Background()

	var err error
	s.natsContainer, err = nats.Run(s.ctx, natsImg)
	s.Require().NoError(err, "Failed to run NATS container")

	natsURL, err := s.natsContainer.ConnectionString(s.ctx)
	s.Require().NoError(err)
	s.nc, err = NewClient(natsURL, 5*time.Second)
	s.Require().NoError(err, "Failed to connect to NATS")

	s.js, err = NewJetStreamContext(s.nc)
	s.Require().NoError(err, "Failed to get JetStream context")
}

func (s *PublisherSuite) TearDownSuite() {
	if s.nc != nil {
		s.nc.Close()
	}
	if s.natsContainer != nil {
		_ = testcontainers.TerminateContainer(s.natsContainer)
	}
}

func TestPublisherIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) TestPublishDeduplicatesByOrder() {
	// given
	streamName := "ORDERS_" + uuid.NewString()[:8]
	require.NoError(s.T(), EnsureStream(s.ctx, s.js, streamName))
	// a second call updates the same stream
	require.NoError(s.T(), EnsureStream(s.ctx, s.js, streamName))
	publisher := NewNatsPublisher(s.js)

	created := events.OrderCreatedEvent{
		OrderID:       uuid.New(),
		UserID:        uuid.New(),
		Lines:         []events.OrderLine{{ItemID: uuid.New(), Quantity: 2}},
		PaymentMethod: "CARD",
		TotalPrice:    598,
		CreatedAt:     time.Now().UTC(),
	}
	changed := events.OrderStatusChangedEvent{
		OrderID:   created.OrderID,
		UserID:    created.UserID,
		From:      "PENDING",
		To:        "CANCELLED",
		ChangedAt: time.Now().UTC(),
	}

	// when
	require.NoError(s.T(), publisher.Publish(s.ctx, created))
	require.NoError(s.T(), publisher.Publish(s.ctx, created))
	require.NoError(s.T(), publisher.Publish(s.ctx, changed))

	// then
	stream, err := s.js.Stream(s.ctx, streamName)
	require.NoError(s.T(), err)
	info, err := stream.Info(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), uint64(2), info.State.Msgs)

	msg, err := stream.GetLastMsgForSubject(s.ctx, messaging.OrdersCreatedSubject)
	require.NoError(s.T(), err)
	var got events.OrderCreatedEvent
	require.NoError(s.T(), json.Unmarshal(msg.Data, &got))
	require.Equal(s.T(), created.OrderID, got.OrderID)
	require.Equal(s.T(), int64(598), got.TotalPrice)
}
