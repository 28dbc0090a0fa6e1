package service

import (
	"testing"

	apperrors "github.com/abgdnv/supermarket/internal/errors"
	"github.com/abgdnv/supermarket/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_CartService_AddItem(t *testing.T) {
	ghostID := uuid.New()
	testCases := []struct {
		name          string
		existing      int32
		qty           int32
		item          uuid.UUID
		caller        func(f *fixture) model.Identity
		owner         func(f *fixture) uuid.UUID
		expectedQty   int32
		expectedTotal int64
		expectError   error
		expectMessage string
	}{
		{
			name:          "Success - new line",
			qty:           3,
			item:          itemA,
			expectedQty:   3,
			expectedTotal: 300,
		},
		{
			name:          "Success - merges with existing line",
			existing:      2,
			qty:           3,
			item:          itemA,
			expectedQty:   5,
			expectedTotal: 500,
		},
		{
			name:          "Success - privileged caller edits another cart",
			qty:           1,
			item:          itemA,
			caller:        func(f *fixture) model.Identity { return f.admin },
			expectedQty:   1,
			expectedTotal: 100,
		},
		{
			name:        "Error - zero quantity",
			qty:         0,
			item:        itemA,
			expectError: apperrors.ErrValidation,
		},
		{
			name:        "Error - negative quantity",
			qty:         -1,
			item:        itemA,
			expectError: apperrors.ErrValidation,
		},
		{
			name:        "Error - unknown item",
			qty:         1,
			item:        uuid.New(),
			expectError: apperrors.ErrNotFound,
		},
		{
			name:          "Error - merged quantity exceeds stock",
			existing:      4,
			qty:           2,
			item:          itemA,
			expectedQty:   4,
			expectError:   apperrors.ErrInsufficientStock,
			expectMessage: "cannot add 2 items: only 1 available in stock",
		},
		{
			name:        "Error - other user's cart",
			qty:         1,
			item:        itemA,
			caller:      func(f *fixture) model.Identity { return f.bob },
			expectError: apperrors.ErrForbidden,
		},
		{
			name:        "Error - unknown owner for standard caller",
			qty:         1,
			item:        itemA,
			owner:       func(f *fixture) uuid.UUID { return uuid.New() },
			expectError: apperrors.ErrUserNotFound,
		},
		{
			name:        "Error - standard caller whose account is missing",
			qty:         1,
			item:        itemA,
			caller:      func(f *fixture) model.Identity { return model.Identity{ID: ghostID, Role: model.RoleStandard} },
			owner:       func(f *fixture) uuid.UUID { return ghostID },
			expectError: apperrors.ErrUserNotFound,
		},
		{
			name:        "Error - unknown owner for privileged caller",
			qty:         1,
			item:        itemA,
			caller:      func(f *fixture) model.Identity { return f.admin },
			owner:       func(f *fixture) uuid.UUID { return uuid.New() },
			expectError: apperrors.ErrUserNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			f := newFixture(t)
			f.putItem(t, itemA, "apple", 100, 5)
			if tc.existing > 0 {
				_, err := f.cartSvc.AddItem(f.ctx, f.alice, f.alice.ID, itemA, tc.existing)
				require.NoError(t, err)
			}
			caller, owner := f.alice, f.alice.ID
			if tc.caller != nil {
				caller = tc.caller(f)
			}
			if tc.owner != nil {
				owner = tc.owner(f)
			}

			// when
			cart, err := f.cartSvc.AddItem(f.ctx, caller, owner, tc.item, tc.qty)

			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				if tc.expectMessage != "" {
					assert.Contains(t, err.Error(), tc.expectMessage)
				}
				stored, getErr := f.carts.Get(f.ctx, f.alice.ID)
				require.NoError(t, getErr)
				assert.Equal(t, tc.expectedQty, stored.Lines.Quantity(itemA), "failed add must not change the cart")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedQty, cart.Lines.Quantity(itemA))
			assert.Equal(t, tc.expectedTotal, cart.Total)
			assert.Equal(t, int32(5), f.stockOf(t, itemA), "adding to a cart does not reserve stock")
		})
	}
}

func Test_CartService_SetItemQuantity(t *testing.T) {
	testCases := []struct {
		name          string
		qty           int32
		expectedQty   int32
		expectError   error
		expectMessage string
	}{
		{name: "Success - raise", qty: 4, expectedQty: 4},
		{name: "Success - lower", qty: 1, expectedQty: 1},
		{name: "Success - up to stock", qty: 5, expectedQty: 5},
		{name: "Error - zero", qty: 0, expectedQty: 2, expectError: apperrors.ErrValidation},
		{name: "Error - negative", qty: -3, expectedQty: 2, expectError: apperrors.ErrValidation},
		{
			name:          "Error - above stock",
			qty:           6,
			expectedQty:   2,
			expectError:   apperrors.ErrInsufficientStock,
			expectMessage: "only 5 available in stock",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			f := newFixture(t)
			f.putItem(t, itemA, "apple", 100, 5)
			_, err := f.cartSvc.AddItem(f.ctx, f.alice, f.alice.ID, itemA, 2)
			require.NoError(t, err)

			// when
			_, err = f.cartSvc.SetItemQuantity(f.ctx, f.alice, f.alice.ID, itemA, tc.qty)

			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				if tc.expectMessage != "" {
					assert.Contains(t, err.Error(), tc.expectMessage)
				}
			} else {
				require.NoError(t, err)
			}
			cart, err := f.cartSvc.GetCart(f.ctx, f.alice, f.alice.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedQty, cart.Lines.Quantity(itemA))
		})
	}
}

func Test_CartService_RemoveItemAndClear(t *testing.T) {
	// given
	f := newFixture(t)
	f.putItem(t, itemA, "apple", 100, 5)
	f.putItem(t, itemB, "bread", 250, 5)
	_, err := f.cartSvc.AddItem(f.ctx, f.alice, f.alice.ID, itemA, 1)
	require.NoError(t, err)
	_, err = f.cartSvc.AddItem(f.ctx, f.alice, f.alice.ID, itemB, 2)
	require.NoError(t, err)

	// when
	cart, err := f.cartSvc.RemoveItem(f.ctx, f.alice, f.alice.ID, itemA)

	// then
	require.NoError(t, err)
	assert.False(t, cart.Lines.Has(itemA))
	assert.Equal(t, int64(500), cart.Total)

	_, err = f.cartSvc.RemoveItem(f.ctx, f.alice, f.alice.ID, itemA)
	assert.ErrorIs(t, err, apperrors.ErrCartLineNotFound)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.cartSvc.RemoveItem(f.ctx, f.bob, f.alice.ID, itemB)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	for range 2 {
		cleared, err := f.cartSvc.Clear(f.ctx, f.alice, f.alice.ID)
		require.NoError(t, err)
		assert.True(t, cleared.Lines.IsEmpty())
		assert.Zero(t, cleared.Total)
		assert.Equal(t, cart.ID, cleared.ID)
	}
}

func Test_CartService_GetCart_TotalUsesCurrentPrices(t *testing.T) {
	// given
	f := newFixture(t)
	f.putItem(t, itemA, "apple", 100, 5)
	_, err := f.cartSvc.AddItem(f.ctx, f.alice, f.alice.ID, itemA, 2)
	require.NoError(t, err)
	f.putItem(t, itemA, "apple", 150, 5)
	_, err = f.carts.Update(f.ctx, f.alice.ID, func(c *model.Cart) error {
		c.Lines[uuid.New()] = 3
		return nil
	})
	require.NoError(t, err)

	// when
	cart, err := f.cartSvc.GetCart(f.ctx, f.alice, f.alice.ID)

	// then
	require.NoError(t, err)
	assert.Equal(t, int64(300), cart.Total, "repriced line counts, vanished item is skipped")
	assert.Equal(t, 2, cart.Lines.Len())

	_, err = f.cartSvc.GetCart(f.ctx, f.bob, f.alice.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}
