package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const compareAndSetOrderStatus = `-- name: CompareAndSetOrderStatus :one
UPDATE orders
SET status  = $1,
    version = version + 1
WHERE id = $2
  AND status = $3
RETURNING id, user_id, status, payment_method, order_date, version
`

type CompareAndSetOrderStatusParams struct {
	NewStatus      string    `json:"new_status"`
	ID             uuid.UUID `json:"id"`
	ExpectedStatus string    `json:"expected_status"`
}

func (q *Queries) CompareAndSetOrderStatus(ctx context.Context, arg CompareAndSetOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, compareAndSetOrderStatus, arg.NewStatus, arg.ID, arg.ExpectedStatus)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Status,
		&i.PaymentMethod,
		&i.OrderDate,
		&i.Version,
	)
	return i, err
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (id, user_id, status, payment_method, order_date)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, status, payment_method, order_date, version
`

type CreateOrderParams struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"payment_method"`
	OrderDate     time.Time `json:"order_date"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.ID,
		arg.UserID,
		arg.Status,
		arg.PaymentMethod,
		arg.OrderDate,
	)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Status,
		&i.PaymentMethod,
		&i.OrderDate,
		&i.Version,
	)
	return i, err
}

const createOrderItem = `-- name: CreateOrderItem :exec
INSERT INTO order_items (order_id, item_id, quantity)
VALUES ($1, $2, $3)
`

type CreateOrderItemParams struct {
	OrderID  uuid.UUID `json:"order_id"`
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int32     `json:"quantity"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) error {
	_, err := q.db.Exec(ctx, createOrderItem, arg.OrderID, arg.ItemID, arg.Quantity)
	return err
}

const findAllOrders = `-- name: FindAllOrders :many
SELECT id, user_id, status, payment_method, order_date, version
FROM orders
ORDER BY order_date DESC, id
`

func (q *Queries) FindAllOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, findAllOrders)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

const findOrderByID = `-- name: FindOrderByID :one
SELECT id, user_id, status, payment_method, order_date, version
FROM orders
WHERE id = $1
`

func (q *Queries) FindOrderByID(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, findOrderByID, id)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Status,
		&i.PaymentMethod,
		&i.OrderDate,
		&i.Version,
	)
	return i, err
}

const findOrderItemsByOrderIDs = `-- name: FindOrderItemsByOrderIDs :many
SELECT order_id, item_id, quantity
FROM order_items
WHERE order_id = ANY ($1::uuid[])
`

func (q *Queries) FindOrderItemsByOrderIDs(ctx context.Context, orderIds []uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, findOrderItemsByOrderIDs, orderIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.OrderID, &i.ItemID, &i.Quantity); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const findOrdersByStatus = `-- name: FindOrdersByStatus :many
SELECT id, user_id, status, payment_method, order_date, version
FROM orders
WHERE status = $1
ORDER BY order_date DESC, id
`

func (q *Queries) FindOrdersByStatus(ctx context.Context, status string) ([]Order, error) {
	rows, err := q.db.Query(ctx, findOrdersByStatus, status)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

const findOrdersByUserID = `-- name: FindOrdersByUserID :many
SELECT id, user_id, status, payment_method, order_date, version
FROM orders
WHERE user_id = $1
ORDER BY order_date DESC, id
`

func (q *Queries) FindOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, findOrdersByUserID, userID)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}

const findOrdersByUserIDAndStatus = `-- name: FindOrdersByUserIDAndStatus :many
SELECT id, user_id, status, payment_method, order_date, version
FROM orders
WHERE user_id = $1
  AND status = $2
ORDER BY order_date DESC, id
`

type FindOrdersByUserIDAndStatusParams struct {
	UserID uuid.UUID `json:"user_id"`
	Status string    `json:"status"`
}

func (q *Queries) FindOrdersByUserIDAndStatus(ctx context.Context, arg FindOrdersByUserIDAndStatusParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, findOrdersByUserIDAndStatus, arg.UserID, arg.Status)
	if err != nil {
		return nil, err
	}
	return scanOrders(rows)
}
