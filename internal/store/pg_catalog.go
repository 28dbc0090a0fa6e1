package store

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/abgdnv/supermarket/internal/errors"
	"github.com/abgdnv/supermarket/internal/model"
	"github.com/abgdnv/supermarket/internal/store/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgCheckViolation  = "23514"
	pgNumericOverflow = "22003"
)

// PgCatalog is an ItemCatalog over the items table. AdjustStock is one guarded UPDATE, so
// the row lock serializes concurrent adjusters of an item.
type PgCatalog struct {
	pool PgPool
}

func NewPgCatalog(pool PgPool) *PgCatalog {
	return &PgCatalog{pool: pool}
}

func toItem(i db.Item) *model.Item {
	return &model.Item{ID: i.ID, Name: i.Name, UnitPrice: i.Price, StockQuantity: i.StockQuantity}
}

func (c *PgCatalog) Get(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	it, err := queries(ctx, c.pool).FindItemByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to find item %s: %w", id, err)
	}
	return toItem(it), nil
}

func (c *PgCatalog) AdjustStock(ctx context.Context, id uuid.UUID, delta int32) (*model.Item, error) {
	q := queries(ctx, c.pool)
	it, err := q.AdjustItemStock(ctx, db.AdjustItemStockParams{Delta: delta, ID: id})
	if err == nil {
		return toItem(it), nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
		return nil, fmt.Errorf("item %s cannot absorb %d: %w", id, delta, apperrors.ErrInsufficientStock)
	}
	if errors.As(err, &pgErr) && pgErr.Code == pgNumericOverflow {
		return nil, fmt.Errorf("item %s cannot absorb %d: %w", id, delta, apperrors.ErrStockOverflow)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to adjust stock of item %s: %w", id, err)
	}
	// No row matched: either the item is missing or the guard rejected the delta.
	exists, err := q.ItemExists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check item %s: %w", id, err)
	}
	if !exists {
		return nil, apperrors.ErrItemNotFound
	}
	return nil, fmt.Errorf("item %s cannot absorb %d: %w", id, delta, apperrors.ErrInsufficientStock)
}

func (c *PgCatalog) Put(ctx context.Context, item model.Item) (*model.Item, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.StockQuantity < 0 || item.UnitPrice < 0 {
		return nil, fmt.Errorf("price and stock must not be negative: %w", apperrors.ErrValidation)
	}
	it, err := queries(ctx, c.pool).UpsertItem(ctx, db.UpsertItemParams{
		ID:            item.ID,
		Name:          item.Name,
		Price:         item.UnitPrice,
		StockQuantity: item.StockQuantity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert item %s: %w", item.ID, err)
	}
	return toItem(it), nil
}
