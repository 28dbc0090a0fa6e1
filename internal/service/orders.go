package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/supermarket/internal/access"
	apperrors "github.com/abgdnv/supermarket/internal/errors"
	"github.com/abgdnv/supermarket/internal/model"
	"github.com/abgdnv/supermarket/internal/store"
	"github.com/abgdnv/supermarket/pkg/messaging"
	"github.com/abgdnv/supermarket/pkg/messaging/events"
	"github.com/google/uuid"
)

const DefaultStatusAttempts = 3

// OrderService reads orders and drives their status machine.
type OrderService struct {
	orders    store.OrderStore
	catalog   store.ItemCatalog
	tx        store.Transactor
	guard     *access.Guard
	publisher messaging.Publisher
	metrics   *metrics
	logger    *slog.Logger
	attempts  int
	now       func() time.Time
}

// NewOrderService creates the service. attempts bounds the compare-and-set retries of a
// status change; values below 1 use DefaultStatusAttempts.
func NewOrderService(
	orders store.OrderStore,
	catalog store.ItemCatalog,
	tx store.Transactor,
	guard *access.Guard,
	publisher messaging.Publisher,
	attempts int,
	logger *slog.Logger,
) *OrderService {
	if attempts < 1 {
		attempts = DefaultStatusAttempts
	}
	return &OrderService{
		orders:    orders,
		catalog:   catalog,
		tx:        tx,
		guard:     guard,
		publisher: orDefault(publisher),
		metrics:   newMetrics(),
		logger:    logger.With("component", "order_service"),
		attempts:  attempts,
		now:       time.Now,
	}
}

// FindByID returns the enriched order if the caller owns it or is privileged.
func (s *OrderService) FindByID(ctx context.Context, caller model.Identity, id uuid.UUID) (*model.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Require(ctx, caller, order.OwnerID); err != nil {
		return nil, err
	}
	if err := enrich(ctx, s.catalog, order); err != nil {
		return nil, err
	}
	return order, nil
}

// FindByOwner lists the owner's orders newest first. A nil status lists all of them.
func (s *OrderService) FindByOwner(ctx context.Context, caller model.Identity, ownerID uuid.UUID, status *model.Status) ([]model.Order, error) {
	if err := s.guard.RequireExisting(ctx, caller, ownerID); err != nil {
		return nil, err
	}
	orders, err := s.orders.FindByOwner(ctx, ownerID, status)
	if err != nil {
		return nil, err
	}
	return enrichAll(ctx, s.catalog, orders)
}

// FindAll lists every order newest first. Privileged callers only.
func (s *OrderService) FindAll(ctx context.Context, caller model.Identity, status *model.Status) ([]model.Order, error) {
	if err := access.RequirePrivileged(caller); err != nil {
		return nil, err
	}
	orders, err := s.orders.FindAll(ctx, status)
	if err != nil {
		return nil, err
	}
	return enrichAll(ctx, s.catalog, orders)
}

// SetStatus moves the order to the parsed status. Privileged callers only.
// CANCELLED goes through Cancel so that stock is restored.
func (s *OrderService) SetStatus(ctx context.Context, caller model.Identity, id uuid.UUID, rawStatus string) (*model.Order, error) {
	if err := access.RequirePrivileged(caller); err != nil {
		return nil, err
	}
	next, err := model.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	if next == model.StatusCancelled {
		return s.Cancel(ctx, caller, id)
	}

	for range s.attempts {
		order, err := s.orders.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := model.CheckTransition(order.Status, next); err != nil {
			logFailure(ctx, s.logger, "Rejected status change", err, "order_id", id, "to", next)
			return nil, err
		}
		updated, err := s.orders.CompareAndSetStatus(ctx, id, order.Status, next)
		if errors.Is(err, apperrors.ErrStatusConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		s.statusChanged(ctx, updated, order.Status)
		return s.enriched(ctx, updated)
	}
	return nil, fmt.Errorf("order %s after %d attempts: %w", id, s.attempts, apperrors.ErrStatusConflict)
}

// Cancel cancels a non-terminal order and restores the stock of every snapshot line.
func (s *OrderService) Cancel(ctx context.Context, caller model.Identity, id uuid.UUID) (*model.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Require(ctx, caller, order.OwnerID); err != nil {
		return nil, err
	}

	for range s.attempts {
		if err := model.CheckTransition(order.Status, model.StatusCancelled); err != nil {
			logFailure(ctx, s.logger, "Rejected cancellation", err, "order_id", id)
			return nil, err
		}
		updated, err := s.cancelOnce(ctx, order)
		if errors.Is(err, apperrors.ErrStatusConflict) {
			if order, err = s.orders.FindByID(ctx, id); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			logFailure(ctx, s.logger, "Failed to cancel order", err, "order_id", id)
			return nil, err
		}
		s.metrics.ordersCancelled.Add(ctx, 1)
		s.statusChanged(ctx, updated, order.Status)
		return s.enriched(ctx, updated)
	}
	return nil, fmt.Errorf("order %s after %d attempts: %w", id, s.attempts, apperrors.ErrStatusConflict)
}

// cancelOnce flips the status observed in order and then restores stock. A failed
// restoration undoes the restorations made so far and the status flip.
func (s *OrderService) cancelOnce(ctx context.Context, order *model.Order) (*model.Order, error) {
	var updated *model.Order
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.orders.CompareAndSetStatus(ctx, order.ID, order.Status, model.StatusCancelled)
		if err != nil {
			return err
		}
		var restored []stockChange
		for _, itemID := range updated.Lines.ItemIDs() {
			delta := updated.Lines.Quantity(itemID)
			if _, err := s.catalog.AdjustStock(ctx, itemID, delta); err != nil {
				revert(ctx, s.catalog, s.logger, restored)
				if _, rbErr := s.orders.CompareAndSetStatus(ctx, order.ID, model.StatusCancelled, order.Status); rbErr != nil {
					s.logger.ErrorContext(ctx, "Failed to revert order status", "order_id", order.ID, "error", rbErr)
				}
				return err
			}
			restored = append(restored, stockChange{itemID: itemID, delta: delta})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *OrderService) statusChanged(ctx context.Context, order *model.Order, from model.Status) {
	s.logger.InfoContext(ctx, "Order status changed", "order_id", order.ID, "from", from, "to", order.Status)
	publish(ctx, s.publisher, s.logger, events.OrderStatusChangedEvent{
		Carrier:   traceCarrier(ctx),
		OrderID:   order.ID,
		UserID:    order.OwnerID,
		From:      string(from),
		To:        string(order.Status),
		ChangedAt: s.now().UTC(),
	})
}

func (s *OrderService) enriched(ctx context.Context, order *model.Order) (*model.Order, error) {
	if err := enrich(ctx, s.catalog, order); err != nil {
		return nil, err
	}
	return order, nil
}
