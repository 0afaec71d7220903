package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

type OrderStatus struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusCache keeps the last known status per order. It is a cache only; the
// order store stays the source of truth.
type StatusCache struct {
	rdb redis.Cmdable
	ttl time.Duration
	now func() time.Time
}

func NewStatusCache(rdb redis.Cmdable, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = TTLStatusCache
	}
	return &StatusCache{rdb: rdb, ttl: ttl, now: time.Now}
}

// Get returns the cached status. A miss is (zero, false, nil).
func (c *StatusCache) Get(ctx context.Context, orderID string) (OrderStatus, bool, error) {
	b, err := c.rdb.Get(ctx, OrderStatusKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return OrderStatus{}, false, nil
	}
	if err != nil {
		return OrderStatus{}, false, fmt.Errorf("redis get status %s: %w", orderID, err)
	}
	var s OrderStatus
	if err := json.Unmarshal(b, &s); err != nil {
		return OrderStatus{}, false, fmt.Errorf("decode cached status %s: %w", orderID, err)
	}
	return s, true, nil
}

func (c *StatusCache) Set(ctx context.Context, orderID, status string) error {
	b, err := json.Marshal(OrderStatus{Status: status, UpdatedAt: c.now().UTC()})
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, OrderStatusKey(orderID), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set status %s: %w", orderID, err)
	}
	return nil
}

func (c *StatusCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
