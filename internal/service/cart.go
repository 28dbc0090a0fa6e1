package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abgdnv/supermarket/internal/access"
	apperrors "github.com/abgdnv/supermarket/internal/errors"
	"github.com/abgdnv/supermarket/internal/model"
	"github.com/abgdnv/supermarket/internal/store"
	"github.com/google/uuid"
)

// CartService manages the single live cart of each owner.
// Stock is checked on every mutation; checkout re-checks it authoritatively.
type CartService struct {
	carts   store.CartStore
	catalog store.ItemCatalog
	guard   *access.Guard
	logger  *slog.Logger
}

func NewCartService(carts store.CartStore, catalog store.ItemCatalog, guard *access.Guard, logger *slog.Logger) *CartService {
	return &CartService{
		carts:   carts,
		catalog: catalog,
		guard:   guard,
		logger:  logger.With("component", "cart_service"),
	}
}

// GetCart returns the owner's cart with the total computed from current prices.
func (s *CartService) GetCart(ctx context.Context, caller model.Identity, ownerID uuid.UUID) (*model.Cart, error) {
	if err := s.guard.RequireExisting(ctx, caller, ownerID); err != nil {
		return nil, err
	}
	cart, err := s.carts.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.priced(ctx, cart)
}

// AddItem merges qty units of itemID into the cart. The merged quantity may not exceed stock.
func (s *CartService) AddItem(ctx context.Context, caller model.Identity, ownerID, itemID uuid.UUID, qty int32) (*model.Cart, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("quantity must be greater than 0: %w", apperrors.ErrValidation)
	}
	if err := s.guard.RequireExisting(ctx, caller, ownerID); err != nil {
		return nil, err
	}
	item, err := s.catalog.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	cart, err := s.carts.Update(ctx, ownerID, func(cart *model.Cart) error {
		existing := cart.Lines.Quantity(itemID)
		if int64(existing)+int64(qty) > int64(item.StockQuantity) {
			available := max(item.StockQuantity-existing, 0)
			return fmt.Errorf("cannot add %d items: only %d available in stock: %w", qty, available, apperrors.ErrInsufficientStock)
		}
		cart.Lines[itemID] = existing + qty
		return nil
	})
	if err != nil {
		logFailure(ctx, s.logger, "Failed to add item to cart", err, "owner_id", ownerID, "item_id", itemID)
		return nil, err
	}
	return s.priced(ctx, cart)
}

// SetItemQuantity replaces the quantity of itemID. Use RemoveItem to drop a line.
func (s *CartService) SetItemQuantity(ctx context.Context, caller model.Identity, ownerID, itemID uuid.UUID, qty int32) (*model.Cart, error) {
	if qty < 1 {
		return nil, fmt.Errorf("quantity must be greater than 0: %w", apperrors.ErrValidation)
	}
	if err := s.guard.RequireExisting(ctx, caller, ownerID); err != nil {
		return nil, err
	}
	item, err := s.catalog.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if qty > item.StockQuantity {
		return nil, fmt.Errorf("cannot set quantity to %d: only %d available in stock: %w", qty, item.StockQuantity, apperrors.ErrInsufficientStock)
	}
	cart, err := s.carts.Update(ctx, ownerID, func(cart *model.Cart) error {
		cart.Lines[itemID] = qty
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.priced(ctx, cart)
}

// RemoveItem drops the line of itemID; ErrCartLineNotFound if there is none.
func (s *CartService) RemoveItem(ctx context.Context, caller model.Identity, ownerID, itemID uuid.UUID) (*model.Cart, error) {
	if err := s.guard.RequireExisting(ctx, caller, ownerID); err != nil {
		return nil, err
	}
	cart, err := s.carts.Update(ctx, ownerID, func(cart *model.Cart) error {
		if !cart.Lines.Has(itemID) {
			return apperrors.ErrCartLineNotFound
		}
		delete(cart.Lines, itemID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.priced(ctx, cart)
}

// Clear empties the cart. Clearing an empty cart succeeds.
func (s *CartService) Clear(ctx context.Context, caller model.Identity, ownerID uuid.UUID) (*model.Cart, error) {
	if err := s.guard.RequireExisting(ctx, caller, ownerID); err != nil {
		return nil, err
	}
	if err := s.carts.Clear(ctx, ownerID); err != nil {
		return nil, err
	}
	cart, err := s.carts.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.priced(ctx, cart)
}

func (s *CartService) priced(ctx context.Context, cart *model.Cart) (*model.Cart, error) {
	total, err := cartTotal(ctx, s.catalog, cart.Lines)
	if err != nil {
		return nil, err
	}
	cart.Total = total
	return cart, nil
}
