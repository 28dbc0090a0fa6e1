package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/abgdnv/supermarket/internal/access"
	"github.com/abgdnv/supermarket/internal/directory"
	apperrors "github.com/abgdnv/supermarket/internal/errors"
	"github.com/abgdnv/supermarket/internal/model"
	"github.com/abgdnv/supermarket/internal/store"
	"github.com/abgdnv/supermarket/pkg/messaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	itemA = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	itemB = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	itemC = uuid.MustParse("00000000-0000-0000-0000-00000000000c")
)

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []messaging.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event messaging.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Subject())
	}
	return out
}

// faultyCatalog fails AdjustStock when failAdjust returns an error.
type faultyCatalog struct {
	store.ItemCatalog
	failAdjust func(id uuid.UUID, delta int32) error
}

func (c *faultyCatalog) AdjustStock(ctx context.Context, id uuid.UUID, delta int32) (*model.Item, error) {
	if c.failAdjust != nil {
		if err := c.failAdjust(id, delta); err != nil {
			return nil, err
		}
	}
	return c.ItemCatalog.AdjustStock(ctx, id, delta)
}

// faultyOrders fails Create with createErr and reports the first conflicts CAS calls as conflicts.
type faultyOrders struct {
	store.OrderStore
	mu        sync.Mutex
	createErr error
	conflicts int
}

func (o *faultyOrders) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	if o.createErr != nil {
		return nil, o.createErr
	}
	return o.OrderStore.Create(ctx, order)
}

func (o *faultyOrders) CompareAndSetStatus(ctx context.Context, id uuid.UUID, expected, next model.Status) (*model.Order, error) {
	o.mu.Lock()
	if o.conflicts > 0 {
		o.conflicts--
		o.mu.Unlock()
		return nil, apperrors.ErrStatusConflict
	}
	o.mu.Unlock()
	return o.OrderStore.CompareAndSetStatus(ctx, id, expected, next)
}

type fixture struct {
	ctx       context.Context
	users     *directory.InMemory
	stock     *store.InMemoryCatalog
	catalog   store.ItemCatalog
	carts     *store.InMemoryCartStore
	ledger    *store.InMemoryOrderStore
	orders    store.OrderStore
	publisher *recordingPublisher
	cartSvc   *CartService
	checkout  *CheckoutService
	orderSvc  *OrderService

	alice model.Identity
	bob   model.Identity
	admin model.Identity
}

type fixtureOption func(f *fixture)

func withCatalog(wrap func(store.ItemCatalog) store.ItemCatalog) fixtureOption {
	return func(f *fixture) { f.catalog = wrap(f.catalog) }
}

func withOrders(wrap func(store.OrderStore) store.OrderStore) fixtureOption {
	return func(f *fixture) { f.orders = wrap(f.orders) }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	f := &fixture{
		ctx:       context.Background(),
		stock:     store.NewInMemoryCatalog(),
		carts:     store.NewInMemoryCartStore(),
		ledger:    store.NewInMemoryOrderStore(),
		publisher: &recordingPublisher{},
		alice:     model.Identity{ID: uuid.New(), Email: "alice@example.com", Role: model.RoleStandard},
		bob:       model.Identity{ID: uuid.New(), Email: "bob@example.com", Role: model.RoleStandard},
		admin:     model.Identity{ID: uuid.New(), Email: "admin@example.com", Role: model.RolePrivileged},
	}
	f.users = directory.NewInMemory(
		model.User{ID: f.alice.ID, Email: f.alice.Email},
		model.User{ID: f.bob.ID, Email: f.bob.Email},
		model.User{ID: f.admin.ID, Email: f.admin.Email},
	)
	f.catalog = f.stock
	f.orders = f.ledger
	for _, opt := range opts {
		opt(f)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard := access.NewGuard(f.users)
	f.cartSvc = NewCartService(f.carts, f.catalog, guard, logger)
	f.checkout = NewCheckoutService(f.carts, f.catalog, f.orders, store.NoopTransactor{},
		store.NewInMemoryIdempotencyStore(time.Hour), guard, f.publisher, logger)
	f.orderSvc = NewOrderService(f.orders, f.catalog, store.NoopTransactor{}, guard, f.publisher, 3, logger)

	// Orders placed one after another get distinct, increasing dates.
	var clockMu sync.Mutex
	clock := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	f.checkout.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	return f
}

func (f *fixture) putItem(t *testing.T, id uuid.UUID, name string, price int64, stock int32) {
	t.Helper()
	_, err := f.stock.Put(f.ctx, model.Item{ID: id, Name: name, UnitPrice: price, StockQuantity: stock})
	require.NoError(t, err)
}

func (f *fixture) stockOf(t *testing.T, id uuid.UUID) int32 {
	t.Helper()
	item, err := f.stock.Get(f.ctx, id)
	require.NoError(t, err)
	return item.StockQuantity
}

// placeOrder fills alice's cart with lines and checks out.
func (f *fixture) placeOrder(t *testing.T, lines model.LineSet) *model.Order {
	t.Helper()
	for _, id := range lines.ItemIDs() {
		_, err := f.cartSvc.AddItem(f.ctx, f.alice, f.alice.ID, id, lines.Quantity(id))
		require.NoError(t, err)
	}
	order, err := f.checkout.Checkout(f.ctx, f.alice, f.alice.ID, "CARD", "")
	require.NoError(t, err)
	return order
}
