package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	apperrors "github.com/abgdnv/supermarket/internal/errors"
	"github.com/abgdnv/supermarket/internal/model"
	"github.com/google/uuid"
)

// InMemoryCatalog is an ItemCatalog backed by a map. One mutex guards every item, so each
// adjustment is a short O(1) critical section.
type InMemoryCatalog struct {
	mu    sync.Mutex
	items map[uuid.UUID]model.Item
}

func NewInMemoryCatalog(items ...model.Item) *InMemoryCatalog {
	c := &InMemoryCatalog{items: make(map[uuid.UUID]model.Item, len(items))}
	for _, it := range items {
		c.items[it.ID] = it
	}
	return c
}

func (c *InMemoryCatalog) Get(_ context.Context, id uuid.UUID) (*model.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[id]
	if !ok {
		return nil, apperrors.ErrItemNotFound
	}
	return &it, nil
}

func (c *InMemoryCatalog) AdjustStock(_ context.Context, id uuid.UUID, delta int32) (*model.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[id]
	if !ok {
		return nil, apperrors.ErrItemNotFound
	}
	next := int64(it.StockQuantity) + int64(delta)
	if next < 0 {
		return nil, fmt.Errorf("item %s has %d in stock, cannot remove %d: %w", id, it.StockQuantity, -delta, apperrors.ErrInsufficientStock)
	}
	if next > math.MaxInt32 {
		return nil, fmt.Errorf("item %s has %d in stock, cannot add %d: %w", id, it.StockQuantity, delta, apperrors.ErrStockOverflow)
	}
	it.StockQuantity = int32(next)
	c.items[id] = it
	return &it, nil
}

func (c *InMemoryCatalog) Put(_ context.Context, item model.Item) (*model.Item, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.StockQuantity < 0 || item.UnitPrice < 0 {
		return nil, fmt.Errorf("price and stock must not be negative: %w", apperrors.ErrValidation)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[item.ID] = item
	return &item, nil
}

// InMemoryCartStore serializes updates with one mutex per owner.
type InMemoryCartStore struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*model.Cart
	locks map[uuid.UUID]*sync.Mutex
}

func NewInMemoryCartStore() *InMemoryCartStore {
	return &InMemoryCartStore{
		carts: make(map[uuid.UUID]*model.Cart),
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *InMemoryCartStore) ownerLock(ownerID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[ownerID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[ownerID] = l
	}
	return l
}

// load returns a copy of the owner's cart, creating it on first access.
func (s *InMemoryCartStore) load(ownerID uuid.UUID) *model.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[ownerID]
	if !ok {
		c = &model.Cart{ID: uuid.New(), OwnerID: ownerID, Lines: model.LineSet{}}
		s.carts[ownerID] = c
	}
	return &model.Cart{ID: c.ID, OwnerID: c.OwnerID, Lines: c.Lines.Clone()}
}

func (s *InMemoryCartStore) save(cart *model.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[cart.OwnerID] = &model.Cart{ID: cart.ID, OwnerID: cart.OwnerID, Lines: cart.Lines.Clone()}
}

func (s *InMemoryCartStore) Get(_ context.Context, ownerID uuid.UUID) (*model.Cart, error) {
	l := s.ownerLock(ownerID)
	l.Lock()
	defer l.Unlock()
	return s.load(ownerID), nil
}

func (s *InMemoryCartStore) Update(_ context.Context, ownerID uuid.UUID, fn func(cart *model.Cart) error) (*model.Cart, error) {
	l := s.ownerLock(ownerID)
	l.Lock()
	defer l.Unlock()
	cart := s.load(ownerID)
	if err := fn(cart); err != nil {
		return nil, err
	}
	s.save(cart)
	return s.load(ownerID), nil
}

func (s *InMemoryCartStore) Clear(ctx context.Context, ownerID uuid.UUID) error {
	_, err := s.Update(ctx, ownerID, func(cart *model.Cart) error {
		cart.Lines = model.LineSet{}
		return nil
	})
	return err
}

// InMemoryOrderStore keeps orders in a map.
type InMemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]model.Order
}

func NewInMemoryOrderStore() *InMemoryOrderStore {
	return &InMemoryOrderStore{orders: make(map[uuid.UUID]model.Order)}
}

func cloneOrder(o model.Order) model.Order {
	o.Lines = o.Lines.Clone()
	o.Details = nil
	o.Total = 0
	return o
}

func (s *InMemoryOrderStore) Create(_ context.Context, order *model.Order) (*model.Order, error) {
	o := cloneOrder(*order)
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	o.Version = 1
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[o.ID]; exists {
		return nil, fmt.Errorf("order %s already exists: %w", o.ID, apperrors.ErrValidation)
	}
	s.orders[o.ID] = o
	out := cloneOrder(o)
	return &out, nil
}

func (s *InMemoryOrderStore) FindByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, apperrors.ErrOrderNotFound
	}
	out := cloneOrder(o)
	return &out, nil
}

func (s *InMemoryOrderStore) FindByOwner(_ context.Context, ownerID uuid.UUID, status *model.Status) ([]model.Order, error) {
	return s.filter(func(o model.Order) bool {
		return o.OwnerID == ownerID && (status == nil || o.Status == *status)
	}), nil
}

func (s *InMemoryOrderStore) FindAll(_ context.Context, status *model.Status) ([]model.Order, error) {
	return s.filter(func(o model.Order) bool {
		return status == nil || o.Status == *status
	}), nil
}

func (s *InMemoryOrderStore) filter(keep func(o model.Order) bool) []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Order, 0)
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sortNewestFirst(out)
	return out
}

func (s *InMemoryOrderStore) CompareAndSetStatus(_ context.Context, id uuid.UUID, expected, next model.Status) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, apperrors.ErrOrderNotFound
	}
	if o.Status != expected {
		return nil, apperrors.ErrStatusConflict
	}
	o.Status = next
	o.Version++
	s.orders[id] = o
	out := cloneOrder(o)
	return &out, nil
}

func sortNewestFirst(orders []model.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].OrderDate.Equal(orders[j].OrderDate) {
			return orders[i].OrderDate.After(orders[j].OrderDate)
		}
		return orders[i].ID.String() < orders[j].ID.String()
	})
}

// InMemoryIdempotencyStore keeps keys until their TTL elapses.
type InMemoryIdempotencyStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	keys map[string]time.Time
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{ttl: ttl, now: time.Now, keys: make(map[string]time.Time)}
}

func (s *InMemoryIdempotencyStore) Reserve(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if exp, ok := s.keys[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.keys[key] = now.Add(s.ttl)
	return true, nil
}

func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}
