package service

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/abgdnv/supermarket/internal/errors"
	"github.com/abgdnv/supermarket/internal/model"
	"github.com/abgdnv/supermarket/internal/store"
)

// cartTotal prices lines with current catalog prices. Items that no longer exist count as 0.
func cartTotal(ctx context.Context, catalog store.ItemCatalog, lines model.LineSet) (int64, error) {
	var total int64
	for _, id := range lines.ItemIDs() {
		item, err := catalog.Get(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return 0, fmt.Errorf("failed to price item %s: %w", id, err)
		}
		total += item.UnitPrice * int64(lines.Quantity(id))
	}
	return total, nil
}

// enrich fills the derived Details and Total of order from the current catalog.
// Lines whose item has disappeared are skipped. The snapshot itself is not touched.
func enrich(ctx context.Context, catalog store.ItemCatalog, order *model.Order) error {
	details := make([]model.LineDetail, 0, order.Lines.Len())
	var total int64
	for _, id := range order.Lines.ItemIDs() {
		item, err := catalog.Get(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return fmt.Errorf("failed to load item %s: %w", id, err)
		}
		qty := order.Lines.Quantity(id)
		subtotal := item.UnitPrice * int64(qty)
		details = append(details, model.LineDetail{
			ItemID:    id,
			ItemName:  item.Name,
			Quantity:  qty,
			UnitPrice: item.UnitPrice,
			Subtotal:  subtotal,
		})
		total += subtotal
	}
	order.Details = details
	order.Total = total
	return nil
}

func enrichAll(ctx context.Context, catalog store.ItemCatalog, orders []model.Order) ([]model.Order, error) {
	for i := range orders {
		if err := enrich(ctx, catalog, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}
