// Package store provides the storage contracts of the checkout service and their
// in-memory, PostgreSQL and Redis implementations.
package store

import (
	"context"

	"github.com/abgdnv/supermarket/internal/model"
	"github.com/google/uuid"
)

// ItemCatalog is the authoritative source of item prices and stock.
type ItemCatalog interface {
	// Get returns the item or ErrItemNotFound.
	Get(ctx context.Context, id uuid.UUID) (*model.Item, error)

	// AdjustStock applies stock += delta atomically with respect to other adjustments of the
	// same item and returns the updated item. A negative result is rejected with
	// ErrInsufficientStock and leaves the stock unchanged.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int32) (*model.Item, error)

	// Put creates or replaces an item.
	Put(ctx context.Context, item model.Item) (*model.Item, error)
}

// CartStore owns the single live cart of each owner. Carts are created lazily.
type CartStore interface {
	// Get returns the owner's cart, creating an empty one if needed.
	Get(ctx context.Context, ownerID uuid.UUID) (*model.Cart, error)

	// Update runs fn on the owner's cart and persists the result when fn returns nil.
	// Calls for the same owner never interleave.
	Update(ctx context.Context, ownerID uuid.UUID, fn func(cart *model.Cart) error) (*model.Cart, error)

	// Clear removes every line of the owner's cart.
	Clear(ctx context.Context, ownerID uuid.UUID) error
}

// OrderStore is the ledger of orders. Line snapshots are written once and never updated.
type OrderStore interface {
	Create(ctx context.Context, order *model.Order) (*model.Order, error)

	// FindByID returns ErrOrderNotFound if no order exists with the given id.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// FindByOwner lists an owner's orders newest first, optionally filtered by status.
	FindByOwner(ctx context.Context, ownerID uuid.UUID, status *model.Status) ([]model.Order, error)

	// FindAll lists every order newest first, optionally filtered by status.
	FindAll(ctx context.Context, status *model.Status) ([]model.Order, error)

	// CompareAndSetStatus moves the order to next only while its status is still expected.
	// Returns ErrStatusConflict when the status has changed meanwhile.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next model.Status) (*model.Order, error)
}

// Transactor runs fn as one unit of work. Stores called with the context passed to fn
// take part in the same unit.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// IdempotencyStore remembers request keys for a limited time.
type IdempotencyStore interface {
	// Reserve records key and reports false when it was already recorded.
	Reserve(ctx context.Context, key string) (bool, error)

	// Release forgets key so the request can be retried.
	Release(ctx context.Context, key string) error
}

// NoopTransactor runs fn directly. It serves stores without transactions, where callers
// rely on compensation instead.
type NoopTransactor struct{}

func (NoopTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
