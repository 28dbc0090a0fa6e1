package store

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/abgdnv/supermarket/internal/errors"
	"github.com/abgdnv/supermarket/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_InMemoryCatalog_AdjustStock(t *testing.T) {
	itemID := uuid.New()

	testCases := []struct {
		name          string
		delta         int32
		expectedStock int32
		expectError   error
	}{
		{name: "Success - decrement", delta: -3, expectedStock: 2},
		{name: "Success - decrement to zero", delta: -5, expectedStock: 0},
		{name: "Success - increment", delta: 4, expectedStock: 9},
		{name: "Error - negative result", delta: -6, expectedStock: 5, expectError: apperrors.ErrInsufficientStock},
		{name: "Error - result above int32 range", delta: math.MaxInt32 - 4, expectedStock: 5, expectError: apperrors.ErrStockOverflow},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			ctx := context.Background()
			catalog := NewInMemoryCatalog(model.Item{ID: itemID, Name: "milk", UnitPrice: 120, StockQuantity: 5})

			// when
			_, err := catalog.AdjustStock(ctx, itemID, tc.delta)

			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
			} else {
				require.NoError(t, err)
			}
			item, err := catalog.Get(ctx, itemID)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedStock, item.StockQuantity)
		})
	}
}

func Test_InMemoryCatalog_UnknownItem(t *testing.T) {
	catalog := NewInMemoryCatalog()

	_, err := catalog.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = catalog.AdjustStock(context.Background(), uuid.New(), 1)
	assert.ErrorIs(t, err, apperrors.ErrItemNotFound)
}

func Test_InMemoryCatalog_ConcurrentDecrementsNeverOversell(t *testing.T) {
	// given
	ctx := context.Background()
	itemID := uuid.New()
	catalog := NewInMemoryCatalog(model.Item{ID: itemID, StockQuantity: 50})
	var succeeded atomic.Int32

	// when
	var wg sync.WaitGroup
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := catalog.AdjustStock(ctx, itemID, -1); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	// then
	item, err := catalog.Get(ctx, itemID)
	require.NoError(t, err)
	assert.Equal(t, int32(0), item.StockQuantity)
	assert.Equal(t, int32(50), succeeded.Load())
}

func Test_InMemoryCartStore_UpdateIsSerialized(t *testing.T) {
	// given
	ctx := context.Background()
	owner := uuid.New()
	itemID := uuid.New()
	carts := NewInMemoryCartStore()

	// when
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := carts.Update(ctx, owner, func(cart *model.Cart) error {
				cart.Lines[itemID] = cart.Lines.Quantity(itemID) + 1
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// then
	cart, err := carts.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int32(100), cart.Lines.Quantity(itemID))
}

func Test_InMemoryCartStore_FailedUpdateKeepsCart(t *testing.T) {
	// given
	ctx := context.Background()
	owner := uuid.New()
	itemID := uuid.New()
	carts := NewInMemoryCartStore()
	_, err := carts.Update(ctx, owner, func(cart *model.Cart) error {
		cart.Lines[itemID] = 2
		return nil
	})
	require.NoError(t, err)

	// when
	_, err = carts.Update(ctx, owner, func(cart *model.Cart) error {
		cart.Lines[itemID] = 9
		return apperrors.ErrInsufficientStock
	})

	// then
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	cart, err := carts.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int32(2), cart.Lines.Quantity(itemID))

	require.NoError(t, carts.Clear(ctx, owner))
	cleared, err := carts.Get(ctx, owner)
	require.NoError(t, err)
	assert.True(t, cleared.Lines.IsEmpty())
	assert.Equal(t, cart.ID, cleared.ID, "clear keeps the cart in place")
}

func Test_InMemoryOrderStore(t *testing.T) {
	// given
	ctx := context.Background()
	owner := uuid.New()
	orders := NewInMemoryOrderStore()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	lines := model.LineSet{uuid.New(): 2}

	older, err := orders.Create(ctx, &model.Order{OwnerID: owner, Lines: lines, OrderDate: base, Status: model.StatusPending})
	require.NoError(t, err)
	newer, err := orders.Create(ctx, &model.Order{OwnerID: owner, Lines: lines, OrderDate: base.Add(time.Hour), Status: model.StatusShipped})
	require.NoError(t, err)
	_, err = orders.Create(ctx, &model.Order{OwnerID: uuid.New(), Lines: lines, OrderDate: base, Status: model.StatusPending})
	require.NoError(t, err)

	// when
	byOwner, err := orders.FindByOwner(ctx, owner, nil)
	require.NoError(t, err)
	pending := model.StatusPending
	allPending, err := orders.FindAll(ctx, &pending)
	require.NoError(t, err)

	// then
	require.Len(t, byOwner, 2)
	assert.Equal(t, newer.ID, byOwner[0].ID)
	assert.Equal(t, older.ID, byOwner[1].ID)
	assert.Len(t, allPending, 2)
	assert.Equal(t, int32(1), older.Version)

	updated, err := orders.CompareAndSetStatus(ctx, older.ID, model.StatusPending, model.StatusShipping)
	require.NoError(t, err)
	assert.Equal(t, model.StatusShipping, updated.Status)
	assert.Equal(t, int32(2), updated.Version)

	_, err = orders.CompareAndSetStatus(ctx, older.ID, model.StatusPending, model.StatusCancelled)
	assert.ErrorIs(t, err, apperrors.ErrStatusConflict)

	_, err = orders.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
}

func Test_InMemoryOrderStore_SnapshotIsIndependent(t *testing.T) {
	// given
	ctx := context.Background()
	itemID := uuid.New()
	lines := model.LineSet{itemID: 3}
	orders := NewInMemoryOrderStore()
	created, err := orders.Create(ctx, &model.Order{OwnerID: uuid.New(), Lines: lines, Status: model.StatusPending})
	require.NoError(t, err)

	// when
	lines[itemID] = 10
	created.Lines[itemID] = 11

	// then
	found, err := orders.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(3), found.Lines.Quantity(itemID))
}

func Test_InMemoryIdempotencyStore(t *testing.T) {
	// given
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewInMemoryIdempotencyStore(time.Minute)
	s.now = func() time.Time { return now }

	// when / then
	ok, err := s.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok, "replay within ttl")

	now = now.Add(2 * time.Minute)
	ok, err = s.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok, "expired key can be reserved again")

	require.NoError(t, s.Release(ctx, "k1"))
	ok, err = s.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
}
