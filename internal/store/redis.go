package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	apperrors "github.com/abgdnv/supermarket/internal/errors"
	"github.com/abgdnv/supermarket/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	itemKeyPrefix        = "item:"
	idempotencyKeyPrefix = "idempotency:"
)

const (
	adjustMissing      = 0
	adjustInsufficient = -1
	adjustOverflow     = -2
	adjustCorrupt      = -3
	adjustApplied      = 1
)

// adjustStockScript applies a guarded HINCRBY on the stock field of an item hash.
// The result must stay within 0..ARGV[2]. It returns {status, name, price, stock}.
var adjustStockScript = redis.NewScript(`
local key = KEYS[1]
local delta = tonumber(ARGV[1])

if redis.call('EXISTS', key) == 0 then
	return {0}
end

local current = tonumber(redis.call('HGET', key, 'stock'))
if current == nil then
	return {-3}
end
if current + delta < 0 then
	return {-1}
end
if current + delta > tonumber(ARGV[2]) then
	return {-2}
end

local stock = redis.call('HINCRBY', key, 'stock', delta)
local fields = redis.call('HMGET', key, 'name', 'price')
return {1, fields[1], fields[2], stock}
`)

// ErrCorruptItem reports an item hash whose fields cannot be read as an item.
var ErrCorruptItem = errors.New("corrupt item")

// RedisCatalog keeps items as hashes item:{id} with the fields name, price and stock.
type RedisCatalog struct {
	client redis.UniversalClient
}

func NewRedisCatalog(client redis.UniversalClient) *RedisCatalog {
	return &RedisCatalog{client: client}
}

func itemKey(id uuid.UUID) string {
	return itemKeyPrefix + id.String()
}

func (c *RedisCatalog) Get(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	fields, err := c.client.HGetAll(ctx, itemKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read item %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, apperrors.ErrItemNotFound
	}
	return parseItem(id, fields["name"], fields["price"], fields["stock"])
}

func (c *RedisCatalog) AdjustStock(ctx context.Context, id uuid.UUID, delta int32) (*model.Item, error) {
	res, err := adjustStockScript.Run(ctx, c.client, []string{itemKey(id)}, delta, math.MaxInt32).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to adjust stock of item %s: %w", id, err)
	}
	status, _ := res[0].(int64)
	switch status {
	case adjustMissing:
		return nil, apperrors.ErrItemNotFound
	case adjustInsufficient:
		return nil, fmt.Errorf("item %s cannot absorb %d: %w", id, delta, apperrors.ErrInsufficientStock)
	case adjustOverflow:
		return nil, fmt.Errorf("item %s cannot absorb %d: %w", id, delta, apperrors.ErrStockOverflow)
	case adjustCorrupt:
		return nil, fmt.Errorf("item %s has no numeric stock field: %w", id, ErrCorruptItem)
	case adjustApplied:
		if len(res) < 4 {
			return nil, fmt.Errorf("unexpected stock script reply for item %s: %v", id, res)
		}
		name, _ := res[1].(string)
		price, _ := res[2].(string)
		stock, _ := res[3].(int64)
		return parseItem(id, name, price, strconv.FormatInt(stock, 10))
	default:
		return nil, fmt.Errorf("unexpected stock script status %d for item %s", status, id)
	}
}

func (c *RedisCatalog) Put(ctx context.Context, item model.Item) (*model.Item, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.StockQuantity < 0 || item.UnitPrice < 0 {
		return nil, fmt.Errorf("price and stock must not be negative: %w", apperrors.ErrValidation)
	}
	err := c.client.HSet(ctx, itemKey(item.ID),
		"name", item.Name,
		"price", item.UnitPrice,
		"stock", item.StockQuantity,
	).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to store item %s: %w", item.ID, err)
	}
	return &item, nil
}

func parseItem(id uuid.UUID, name, price, stock string) (*model.Item, error) {
	p, err := strconv.ParseInt(price, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("price of item %s is %q: %w", id, price, ErrCorruptItem)
	}
	s, err := strconv.ParseInt(stock, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("stock of item %s is %q: %w", id, stock, ErrCorruptItem)
	}
	return &model.Item{ID: id, Name: name, UnitPrice: p, StockQuantity: int32(s)}, nil
}

// RedisIdempotencyStore reserves keys with SETNX and a TTL.
type RedisIdempotencyStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client redis.UniversalClient, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	return ok, nil
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyKeyPrefix+key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
