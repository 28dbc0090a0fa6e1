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
)

type PgOrderStore struct {
	pool PgPool
}

// NewPgOrderStore creates an OrderStore over the orders and order_items tables.
func NewPgOrderStore(pool PgPool) *PgOrderStore {
	return &PgOrderStore{pool: pool}
}

func (p *PgOrderStore) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	id := order.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	var created *model.Order
	err := withTransaction(ctx, p.pool, func(qtx *db.Queries) error {
		row, err := qtx.CreateOrder(ctx, db.CreateOrderParams{
			ID:            id,
			UserID:        order.OwnerID,
			Status:        string(order.Status),
			PaymentMethod: order.PaymentMethod,
			OrderDate:     order.OrderDate,
		})
		if err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		lines := order.Lines.Clone()
		for _, itemID := range lines.ItemIDs() {
			err := qtx.CreateOrderItem(ctx, db.CreateOrderItemParams{
				OrderID:  row.ID,
				ItemID:   itemID,
				Quantity: lines.Quantity(itemID),
			})
			if err != nil {
				return fmt.Errorf("failed to create order item %s: %w", itemID, err)
			}
		}
		created = toOrder(row, lines)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (p *PgOrderStore) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	q := queries(ctx, p.pool)
	row, err := q.FindOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order %s: %w", id, err)
	}
	orders, err := p.withLines(ctx, q, []db.Order{row})
	if err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (p *PgOrderStore) FindByOwner(ctx context.Context, ownerID uuid.UUID, status *model.Status) ([]model.Order, error) {
	q := queries(ctx, p.pool)
	var rows []db.Order
	var err error
	if status == nil {
		rows, err = q.FindOrdersByUserID(ctx, ownerID)
	} else {
		rows, err = q.FindOrdersByUserIDAndStatus(ctx, db.FindOrdersByUserIDAndStatusParams{UserID: ownerID, Status: string(*status)})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find orders of user %s: %w", ownerID, err)
	}
	return p.withLines(ctx, q, rows)
}

func (p *PgOrderStore) FindAll(ctx context.Context, status *model.Status) ([]model.Order, error) {
	q := queries(ctx, p.pool)
	var rows []db.Order
	var err error
	if status == nil {
		rows, err = q.FindAllOrders(ctx)
	} else {
		rows, err = q.FindOrdersByStatus(ctx, string(*status))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find orders: %w", err)
	}
	return p.withLines(ctx, q, rows)
}

func (p *PgOrderStore) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next model.Status) (*model.Order, error) {
	q := queries(ctx, p.pool)
	row, err := q.CompareAndSetOrderStatus(ctx, db.CompareAndSetOrderStatusParams{
		NewStatus:      string(next),
		ID:             id,
		ExpectedStatus: string(expected),
	})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to update order %s: %w", id, err)
		}
		// Check if the order exists, or its status moved on.
		if _, err := q.FindOrderByID(ctx, id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.ErrOrderNotFound
			}
			return nil, fmt.Errorf("failed to find order %s: %w", id, err)
		}
		return nil, apperrors.ErrStatusConflict
	}
	orders, err := p.withLines(ctx, q, []db.Order{row})
	if err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// withLines attaches the snapshot lines to rows with one query.
func (p *PgOrderStore) withLines(ctx context.Context, q *db.Queries, rows []db.Order) ([]model.Order, error) {
	out := make([]model.Order, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	items, err := q.FindOrderItemsByOrderIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to find order items: %w", err)
	}
	lines := make(map[uuid.UUID]model.LineSet, len(rows))
	for _, it := range items {
		if lines[it.OrderID] == nil {
			lines[it.OrderID] = model.LineSet{}
		}
		lines[it.OrderID][it.ItemID] = it.Quantity
	}
	for _, r := range rows {
		out = append(out, *toOrder(r, lines[r.ID].Clone()))
	}
	return out, nil
}

func toOrder(row db.Order, lines model.LineSet) *model.Order {
	return &model.Order{
		ID:            row.ID,
		OwnerID:       row.UserID,
		Lines:         lines,
		OrderDate:     row.OrderDate.UTC(),
		Status:        model.Status(row.Status),
		PaymentMethod: row.PaymentMethod,
		Version:       row.Version,
	}
}
