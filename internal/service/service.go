// Package service implements the cart, checkout and order lifecycle workflows.
//
// Every entry point takes the caller identity explicitly and runs it through the access
// guard before touching state.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/abgdnv/supermarket/internal/errors"
	"github.com/abgdnv/supermarket/internal/store"
	"github.com/abgdnv/supermarket/pkg/messaging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
)

const meterName = "checkout-service"

type metrics struct {
	ordersCreated    metric.Int64Counter
	ordersCancelled  metric.Int64Counter
	checkoutFailures metric.Int64Counter
}

func newMetrics() *metrics {
	meter := otel.Meter(meterName)
	ordersCreated, err := meter.Int64Counter("orders_created", metric.WithDescription("Total number of created orders"))
	if err != nil {
		panic(fmt.Sprintf("failed to create orders_created counter: %v", err))
	}
	ordersCancelled, err := meter.Int64Counter("orders_cancelled", metric.WithDescription("Total number of cancelled orders"))
	if err != nil {
		panic(fmt.Sprintf("failed to create orders_cancelled counter: %v", err))
	}
	checkoutFailures, err := meter.Int64Counter("checkout_failures", metric.WithDescription("Checkouts that did not produce an order"))
	if err != nil {
		panic(fmt.Sprintf("failed to create checkout_failures counter: %v", err))
	}
	return &metrics{
		ordersCreated:    ordersCreated,
		ordersCancelled:  ordersCancelled,
		checkoutFailures: checkoutFailures,
	}
}

func (m *metrics) checkoutFailed(ctx context.Context, err error) {
	m.checkoutFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", failureReason(err))))
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrCartEmpty):
		return "cart_empty"
	case errors.Is(err, apperrors.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperrors.ErrDuplicateRequest):
		return "duplicate"
	default:
		return "internal"
	}
}

// stockChange is one applied stock adjustment.
type stockChange struct {
	itemID uuid.UUID
	delta  int32
}

// revert undoes changes in reverse order. Failures are logged and do not stop the walk.
func revert(ctx context.Context, catalog store.ItemCatalog, logger *slog.Logger, changes []stockChange) {
	for i := len(changes) - 1; i >= 0; i-- {
		c := changes[i]
		if _, err := catalog.AdjustStock(ctx, c.itemID, -c.delta); err != nil {
			logger.ErrorContext(ctx, "Failed to revert stock adjustment", "item_id", c.itemID, "delta", -c.delta, "error", err)
		}
	}
}

func publish(ctx context.Context, publisher messaging.Publisher, logger *slog.Logger, event messaging.Event) {
	if err := publisher.Publish(ctx, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "subject", event.Subject(), "error", err)
	}
}

func traceCarrier(ctx context.Context) propagation.MapCarrier {
	carrier := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier
}

// logFailure logs business failures at Warn and everything else at Error.
func logFailure(ctx context.Context, logger *slog.Logger, msg string, err error, args ...any) {
	args = append(args, "error", err)
	if isBusinessError(err) {
		logger.WarnContext(ctx, msg, args...)
		return
	}
	logger.ErrorContext(ctx, msg, args...)
}

func isBusinessError(err error) bool {
	for _, k := range []error{
		apperrors.ErrNotFound,
		apperrors.ErrForbidden,
		apperrors.ErrValidation,
		apperrors.ErrInsufficientStock,
		apperrors.ErrInvalidState,
		apperrors.ErrDuplicateRequest,
	} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

func orDefault(p messaging.Publisher) messaging.Publisher {
	if p == nil {
		return messaging.NopPublisher{}
	}
	return p
}
