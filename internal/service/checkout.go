package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abgdnv/supermarket/internal/access"
	apperrors "github.com/abgdnv/supermarket/internal/errors"
	"github.com/abgdnv/supermarket/internal/model"
	"github.com/abgdnv/supermarket/internal/store"
	"github.com/abgdnv/supermarket/pkg/messaging"
	"github.com/abgdnv/supermarket/pkg/messaging/events"
	"github.com/google/uuid"
)

// CheckoutService converts a cart into an order. Stock is reserved item by item in a
// stable order; any failure reverts the reservations made so far before it is returned.
type CheckoutService struct {
	carts       store.CartStore
	catalog     store.ItemCatalog
	orders      store.OrderStore
	tx          store.Transactor
	idempotency store.IdempotencyStore
	guard       *access.Guard
	publisher   messaging.Publisher
	metrics     *metrics
	logger      *slog.Logger
	now         func() time.Time
}

// NewCheckoutService wires the workflow. idempotency and publisher may be nil.
func NewCheckoutService(
	carts store.CartStore,
	catalog store.ItemCatalog,
	orders store.OrderStore,
	tx store.Transactor,
	idempotency store.IdempotencyStore,
	guard *access.Guard,
	publisher messaging.Publisher,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		carts:       carts,
		catalog:     catalog,
		orders:      orders,
		tx:          tx,
		idempotency: idempotency,
		guard:       guard,
		publisher:   orDefault(publisher),
		metrics:     newMetrics(),
		logger:      logger.With("component", "checkout_service"),
		now:         time.Now,
	}
}

// Checkout places an order for the owner's cart.
// A non-empty idempotencyKey that was already used by the owner fails with ErrDuplicateRequest.
func (s *CheckoutService) Checkout(ctx context.Context, caller model.Identity, ownerID uuid.UUID, paymentMethod, idempotencyKey string) (*model.Order, error) {
	order, err := s.checkout(ctx, caller, ownerID, paymentMethod, idempotencyKey)
	if err != nil {
		s.metrics.checkoutFailed(ctx, err)
		logFailure(ctx, s.logger, "Checkout failed", err, "owner_id", ownerID)
		return nil, err
	}
	s.metrics.ordersCreated.Add(ctx, 1)
	s.logger.InfoContext(ctx, "Order created", "order_id", order.ID, "owner_id", ownerID, "total", order.Total)
	return order, nil
}

func (s *CheckoutService) checkout(ctx context.Context, caller model.Identity, ownerID uuid.UUID, paymentMethod, idempotencyKey string) (*model.Order, error) {
	if err := s.guard.RequireExisting(ctx, caller, ownerID); err != nil {
		return nil, err
	}

	if key := strings.TrimSpace(idempotencyKey); key != "" && s.idempotency != nil {
		scoped := ownerID.String() + ":" + key
		ok, err := s.idempotency.Reserve(ctx, scoped)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("checkout with key %q already submitted: %w", key, apperrors.ErrDuplicateRequest)
		}
		order, err := s.place(ctx, ownerID, paymentMethod)
		if err != nil {
			if relErr := s.idempotency.Release(ctx, scoped); relErr != nil {
				s.logger.ErrorContext(ctx, "Failed to release idempotency key", "error", relErr)
			}
			return nil, err
		}
		return order, nil
	}
	return s.place(ctx, ownerID, paymentMethod)
}

// place runs reservation, order insert and cart clear as one unit of work.
func (s *CheckoutService) place(ctx context.Context, ownerID uuid.UUID, paymentMethod string) (*model.Order, error) {
	method := paymentMethod
	if strings.TrimSpace(method) == "" {
		method = model.PaymentUnspecified
	}

	var created *model.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var reserved []stockChange
		_, err := s.carts.Update(ctx, ownerID, func(cart *model.Cart) error {
			if cart.Lines.IsEmpty() {
				return apperrors.ErrCartEmpty
			}
			snapshot := cart.Lines.Clone()
			for _, itemID := range snapshot.ItemIDs() {
				delta := -snapshot.Quantity(itemID)
				if _, err := s.catalog.AdjustStock(ctx, itemID, delta); err != nil {
					return err
				}
				reserved = append(reserved, stockChange{itemID: itemID, delta: delta})
			}
			order, err := s.orders.Create(ctx, &model.Order{
				ID:            uuid.New(),
				OwnerID:       ownerID,
				Lines:         snapshot,
				OrderDate:     s.now().UTC().Truncate(time.Microsecond),
				Status:        model.StatusPending,
				PaymentMethod: method,
			})
			if err != nil {
				return err
			}
			created = order
			cart.Lines = model.LineSet{}
			return nil
		})
		if err != nil {
			revert(ctx, s.catalog, s.logger, reserved)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := enrich(ctx, s.catalog, created); err != nil {
		s.logger.ErrorContext(ctx, "Failed to enrich created order", "order_id", created.ID, "error", err)
	}
	publish(ctx, s.publisher, s.logger, events.OrderCreatedEvent{
		Carrier:       traceCarrier(ctx),
		OrderID:       created.ID,
		UserID:        created.OwnerID,
		Lines:         eventLines(created.Lines),
		PaymentMethod: created.PaymentMethod,
		TotalPrice:    created.Total,
		CreatedAt:     created.OrderDate,
	})
	return created, nil
}

func eventLines(lines model.LineSet) []events.OrderLine {
	out := make([]events.OrderLine, 0, lines.Len())
	for _, id := range lines.ItemIDs() {
		out = append(out, events.OrderLine{ItemID: id, Quantity: lines.Quantity(id)})
	}
	return out
}
