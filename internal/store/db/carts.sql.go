package db

import (
	"context"

	"github.com/google/uuid"
)

const createCartItem = `-- name: CreateCartItem :exec
INSERT INTO cart_items (cart_id, item_id, quantity)
VALUES ($1, $2, $3)
`

type CreateCartItemParams struct {
	CartID   uuid.UUID `json:"cart_id"`
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int32     `json:"quantity"`
}

func (q *Queries) CreateCartItem(ctx context.Context, arg CreateCartItemParams) error {
	_, err := q.db.Exec(ctx, createCartItem, arg.CartID, arg.ItemID, arg.Quantity)
	return err
}

const deleteCartItems = `-- name: DeleteCartItems :exec
DELETE
FROM cart_items
WHERE cart_id = $1
`

func (q *Queries) DeleteCartItems(ctx context.Context, cartID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteCartItems, cartID)
	return err
}

const ensureCart = `-- name: EnsureCart :exec
INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO NOTHING
`

func (q *Queries) EnsureCart(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.Exec(ctx, ensureCart, userID)
	return err
}

const findCartByUserID = `-- name: FindCartByUserID :one
SELECT id, user_id, version, created_at, updated_at
FROM carts
WHERE user_id = $1
`

func (q *Queries) FindCartByUserID(ctx context.Context, userID uuid.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx, findCartByUserID, userID)
	var i Cart
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const findCartItems = `-- name: FindCartItems :many
SELECT cart_id, item_id, quantity
FROM cart_items
WHERE cart_id = $1
`

func (q *Queries) FindCartItems(ctx context.Context, cartID uuid.UUID) ([]CartItem, error) {
	rows, err := q.db.Query(ctx, findCartItems, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CartItem
	for rows.Next() {
		var i CartItem
		if err := rows.Scan(&i.CartID, &i.ItemID, &i.Quantity); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const lockCartByUserID = `-- name: LockCartByUserID :one
SELECT id, user_id, version, created_at, updated_at
FROM carts
WHERE user_id = $1
    FOR UPDATE
`

func (q *Queries) LockCartByUserID(ctx context.Context, userID uuid.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx, lockCartByUserID, userID)
	var i Cart
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const touchCart = `-- name: TouchCart :exec
UPDATE carts
SET version    = version + 1,
    updated_at = now()
WHERE id = $1
`

func (q *Queries) TouchCart(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, touchCart, id)
	return err
}
