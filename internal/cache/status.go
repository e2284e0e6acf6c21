package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shopcore/storefront/internal/order"
)

const (
	// order_status:{order_id} -> {"userId": "...", "status": "..."}
	keyOrderStatus = "order_status:%s"

	statusTTL = 5 * time.Minute
)

// StatusCache keeps a short-lived copy of each order's lifecycle state so
// status polls don't hit Postgres. Entirely best-effort; callers fall back
// to the repository on miss or error.
type StatusCache struct {
	rdb *redis.Client
}

func NewStatusCache(addr string) *StatusCache {
	return &StatusCache{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

func (c *StatusCache) Close() error {
	return c.rdb.Close()
}

func (c *StatusCache) SetStatus(ctx context.Context, orderID string, entry order.StatusEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal status entry: %w", err)
	}
	return c.rdb.Set(ctx, fmt.Sprintf(keyOrderStatus, orderID), body, statusTTL).Err()
}

func (c *StatusCache) GetStatus(ctx context.Context, orderID string) (order.StatusEntry, bool, error) {
	body, err := c.rdb.Get(ctx, fmt.Sprintf(keyOrderStatus, orderID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return order.StatusEntry{}, false, nil
		}
		return order.StatusEntry{}, false, err
	}

	var entry order.StatusEntry
	if err := json.Unmarshal(body, &entry); err != nil {
		return order.StatusEntry{}, false, err
	}
	return entry, true, nil
}
