package store

import (
	"context"
	"fmt"

	"github.com/abgdnv/supermarket/internal/model"
	"github.com/abgdnv/supermarket/internal/store/db"
	"github.com/google/uuid"
)

// PgCartStore keeps carts in the carts and cart_items tables. Update holds the cart row
// lock (SELECT ... FOR UPDATE) for the whole read-modify-write.
type PgCartStore struct {
	pool PgPool
}

func NewPgCartStore(pool PgPool) *PgCartStore {
	return &PgCartStore{pool: pool}
}

func (s *PgCartStore) Get(ctx context.Context, ownerID uuid.UUID) (*model.Cart, error) {
	var cart *model.Cart
	err := withTransaction(ctx, s.pool, func(qtx *db.Queries) error {
		if err := qtx.EnsureCart(ctx, ownerID); err != nil {
			return fmt.Errorf("failed to create cart: %w", err)
		}
		row, err := qtx.FindCartByUserID(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("failed to find cart: %w", err)
		}
		cart, err = loadLines(ctx, qtx, row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *PgCartStore) Update(ctx context.Context, ownerID uuid.UUID, fn func(cart *model.Cart) error) (*model.Cart, error) {
	var cart *model.Cart
	err := withTransaction(ctx, s.pool, func(qtx *db.Queries) error {
		if err := qtx.EnsureCart(ctx, ownerID); err != nil {
			return fmt.Errorf("failed to create cart: %w", err)
		}
		row, err := qtx.LockCartByUserID(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("failed to lock cart: %w", err)
		}
		cart, err = loadLines(ctx, qtx, row)
		if err != nil {
			return err
		}
		if err := fn(cart); err != nil {
			return err
		}
		if err := qtx.DeleteCartItems(ctx, row.ID); err != nil {
			return fmt.Errorf("failed to replace cart lines: %w", err)
		}
		for _, itemID := range cart.Lines.ItemIDs() {
			err := qtx.CreateCartItem(ctx, db.CreateCartItemParams{
				CartID:   row.ID,
				ItemID:   itemID,
				Quantity: cart.Lines.Quantity(itemID),
			})
			if err != nil {
				return fmt.Errorf("failed to store cart line %s: %w", itemID, err)
			}
		}
		if err := qtx.TouchCart(ctx, row.ID); err != nil {
			return fmt.Errorf("failed to bump cart version: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *PgCartStore) Clear(ctx context.Context, ownerID uuid.UUID) error {
	_, err := s.Update(ctx, ownerID, func(cart *model.Cart) error {
		cart.Lines = model.LineSet{}
		return nil
	})
	return err
}

func loadLines(ctx context.Context, qtx *db.Queries, row db.Cart) (*model.Cart, error) {
	items, err := qtx.FindCartItems(ctx, row.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find cart lines: %w", err)
	}
	lines := make(model.LineSet, len(items))
	for _, it := range items {
		lines[it.ItemID] = it.Quantity
	}
	return &model.Cart{ID: row.ID, OwnerID: row.UserID, Lines: lines}, nil
}
