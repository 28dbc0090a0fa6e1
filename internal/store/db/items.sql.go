package db

import (
	"context"

	"github.com/google/uuid"
)

const adjustItemStock = `-- name: AdjustItemStock :one
UPDATE items
SET stock_quantity = stock_quantity + $1::integer,
    version        = version + 1,
    updated_at     = now()
WHERE id = $2
  AND stock_quantity + $1::integer >= 0
RETURNING id, name, price, stock_quantity, version, created_at, updated_at
`

type AdjustItemStockParams struct {
	Delta int32     `json:"delta"`
	ID    uuid.UUID `json:"id"`
}

func (q *Queries) AdjustItemStock(ctx context.Context, arg AdjustItemStockParams) (Item, error) {
	row := q.db.QueryRow(ctx, adjustItemStock, arg.Delta, arg.ID)
	var i Item
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Price,
		&i.StockQuantity,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const findItemByID = `-- name: FindItemByID :one
SELECT id, name, price, stock_quantity, version, created_at, updated_at
FROM items
WHERE id = $1
`

func (q *Queries) FindItemByID(ctx context.Context, id uuid.UUID) (Item, error) {
	row := q.db.QueryRow(ctx, findItemByID, id)
	var i Item
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Price,
		&i.StockQuantity,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const itemExists = `-- name: ItemExists :one
SELECT EXISTS(SELECT 1 FROM items WHERE id = $1)
`

func (q *Queries) ItemExists(ctx context.Context, id uuid.UUID) (bool, error) {
	row := q.db.QueryRow(ctx, itemExists, id)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const upsertItem = `-- name: UpsertItem :one
INSERT INTO items (id, name, price, stock_quantity)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
    SET name           = EXCLUDED.name,
        price          = EXCLUDED.price,
        stock_quantity = EXCLUDED.stock_quantity,
        version        = items.version + 1,
        updated_at     = now()
RETURNING id, name, price, stock_quantity, version, created_at, updated_at
`

type UpsertItemParams struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Price         int64     `json:"price"`
	StockQuantity int32     `json:"stock_quantity"`
}

func (q *Queries) UpsertItem(ctx context.Context, arg UpsertItemParams) (Item, error) {
	row := q.db.QueryRow(ctx, upsertItem,
		arg.ID,
		arg.Name,
		arg.Price,
		arg.StockQuantity,
	)
	var i Item
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Price,
		&i.StockQuantity,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
