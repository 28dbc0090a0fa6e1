package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abgdnv/supermarket/internal/access"
	"github.com/abgdnv/supermarket/internal/directory"
	apperrors "github.com/abgdnv/supermarket/internal/errors"
	"github.com/abgdnv/supermarket/internal/model"
	"github.com/abgdnv/supermarket/internal/store"
	"github.com/cucumber/godog"
	"github.com/google/uuid"
)

var errorKinds = map[string]error{
	"not found":          apperrors.ErrNotFound,
	"forbidden":          apperrors.ErrForbidden,
	"validation error":   apperrors.ErrValidation,
	"insufficient stock": apperrors.ErrInsufficientStock,
	"invalid state":      apperrors.ErrInvalidState,
}

type checkoutTestContext struct {
	ctx      context.Context
	users    *directory.InMemory
	catalog  *store.InMemoryCatalog
	cartSvc  *CartService
	checkout *CheckoutService
	orderSvc *OrderService

	shoppers map[string]model.Identity
	items    map[string]uuid.UUID
	order    *model.Order
	err      error
	results  []error
}

func (c *checkoutTestContext) reset() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c.ctx = context.Background()
	c.users = directory.NewInMemory()
	c.catalog = store.NewInMemoryCatalog()
	carts := store.NewInMemoryCartStore()
	orders := store.NewInMemoryOrderStore()
	guard := access.NewGuard(c.users)
	c.cartSvc = NewCartService(carts, c.catalog, guard, logger)
	c.checkout = NewCheckoutService(carts, c.catalog, orders, store.NoopTransactor{},
		store.NewInMemoryIdempotencyStore(time.Hour), guard, nil, logger)
	c.orderSvc = NewOrderService(orders, c.catalog, store.NoopTransactor{}, guard, nil, 3, logger)
	c.shoppers = map[string]model.Identity{}
	c.items = map[string]uuid.UUID{}
	c.order = nil
	c.err = nil
	c.results = nil
}

func (c *checkoutTestContext) aRegisteredShopper(name string) error {
	id := model.Identity{ID: uuid.New(), Email: name + "@example.com", Role: model.RoleStandard}
	c.shoppers[name] = id
	return c.users.Put(c.ctx, model.User{ID: id.ID, Email: id.Email})
}

func (c *checkoutTestContext) itemPricedWithStock(name string, price int, stock int) error {
	item, err := c.catalog.Put(c.ctx, model.Item{Name: name, UnitPrice: int64(price), StockQuantity: int32(stock)})
	if err != nil {
		return err
	}
	c.items[name] = item.ID
	return nil
}

func (c *checkoutTestContext) addsToTheCart(shopper string, qty int, item string) error {
	return c.addsToTheCartOf(shopper, qty, item, shopper)
}

func (c *checkoutTestContext) addsToTheCartOf(shopper string, qty int, item, owner string) error {
	_, c.err = c.cartSvc.AddItem(c.ctx, c.shoppers[shopper], c.shoppers[owner].ID, c.items[item], int32(qty))
	return nil
}

func (c *checkoutTestContext) checksOutPayingWith(shopper, method string) error {
	id := c.shoppers[shopper]
	order, err := c.checkout.Checkout(c.ctx, id, id.ID, method, "")
	c.err = err
	if err == nil {
		c.order = order
	}
	return nil
}

func (c *checkoutTestContext) cancelsTheOrder(shopper string) error {
	if c.order == nil {
		return errors.New("no order was placed")
	}
	order, err := c.orderSvc.Cancel(c.ctx, c.shoppers[shopper], c.order.ID)
	c.err = err
	if err == nil {
		c.order = order
	}
	return nil
}

func (c *checkoutTestContext) checkOutAtTheSameTime(first, second string) error {
	names := []string{first, second}
	c.results = make([]error, len(names))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, name := range names {
		id := c.shoppers[name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, c.results[i] = c.checkout.Checkout(c.ctx, id, id.ID, "CARD", "")
		}()
	}
	close(start)
	wg.Wait()
	return nil
}

func (c *checkoutTestContext) theRequestSucceeds() error {
	if c.err != nil {
		return fmt.Errorf("expected success, got %w", c.err)
	}
	return nil
}

func (c *checkoutTestContext) theRequestFailsWith(kind string) error {
	target, ok := errorKinds[kind]
	if !ok {
		return fmt.Errorf("unknown error kind %q", kind)
	}
	if !errors.Is(c.err, target) {
		return fmt.Errorf("expected %s, got %v", kind, c.err)
	}
	return nil
}

func (c *checkoutTestContext) theErrorMessageContains(text string) error {
	if c.err == nil || !strings.Contains(c.err.Error(), text) {
		return fmt.Errorf("expected error containing %q, got %v", text, c.err)
	}
	return nil
}

func (c *checkoutTestContext) theStockOfIs(item string, expected int) error {
	it, err := c.catalog.Get(c.ctx, c.items[item])
	if err != nil {
		return err
	}
	if it.StockQuantity != int32(expected) {
		return fmt.Errorf("expected stock %d of %s, got %d", expected, item, it.StockQuantity)
	}
	return nil
}

func (c *checkoutTestContext) theOrderStatusIs(status string) error {
	if c.order == nil {
		return errors.New("no order was placed")
	}
	if string(c.order.Status) != status {
		return fmt.Errorf("expected status %s, got %s", status, c.order.Status)
	}
	return nil
}

func (c *checkoutTestContext) theOrderTotalIs(total int) error {
	if c.order == nil {
		return errors.New("no order was placed")
	}
	if c.order.Total != int64(total) {
		return fmt.Errorf("expected total %d, got %d", total, c.order.Total)
	}
	return nil
}

func (c *checkoutTestContext) exactlyOneCheckoutSucceeds(kind string) error {
	target := errorKinds[kind]
	var ok, failed int
	for _, err := range c.results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, target):
			failed++
		default:
			return fmt.Errorf("unexpected checkout error: %w", err)
		}
	}
	if ok != 1 || failed != 1 {
		return fmt.Errorf("expected one success and one %s, got %d and %d", kind, ok, failed)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &checkoutTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a registered shopper "([^"]*)"$`, tc.aRegisteredShopper)
	ctx.Step(`^item "([^"]*)" priced (\d+) with stock (\d+)$`, tc.itemPricedWithStock)

	// When steps
	ctx.Step(`^"([^"]*)" adds (\d+) of "([^"]*)" to the cart$`, tc.addsToTheCart)
	ctx.Step(`^"([^"]*)" adds (\d+) of "([^"]*)" to the cart of "([^"]*)"$`, tc.addsToTheCartOf)
	ctx.Step(`^"([^"]*)" checks out paying with "([^"]*)"$`, tc.checksOutPayingWith)
	ctx.Step(`^"([^"]*)" cancels the order$`, tc.cancelsTheOrder)
	ctx.Step(`^"([^"]*)" and "([^"]*)" check out at the same time$`, tc.checkOutAtTheSameTime)

	// Then steps
	ctx.Step(`^the request succeeds$`, tc.theRequestSucceeds)
	ctx.Step(`^the request fails with "([^"]*)"$`, tc.theRequestFailsWith)
	ctx.Step(`^the error message contains "([^"]*)"$`, tc.theErrorMessageContains)
	ctx.Step(`^the stock of "([^"]*)" is (\d+)$`, tc.theStockOfIs)
	ctx.Step(`^the order status is "([^"]*)"$`, tc.theOrderStatusIs)
	ctx.Step(`^the order total is (\d+)$`, tc.theOrderTotalIs)
	ctx.Step(`^exactly one checkout succeeds and the other fails with "([^"]*)"$`, tc.exactlyOneCheckoutSucceeds)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/checkout.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
