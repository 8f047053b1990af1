// Package cache adds a Redis read-through layer in front of the menu
// catalog. Cache failures degrade to direct reads; the cache is never
// load-bearing.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tably/ordercore/internal/domain/menu"
)

var _ menu.Repository = (*MenuCache)(nil)

// DefaultTTL bounds staleness of cached menu items. Price changes take
// up to this long to reach new orders.
const DefaultTTL = 5 * time.Minute

// MenuCache wraps a menu.Repository with per-item Redis caching.
type MenuCache struct {
	next menu.Repository
	rdb  *redis.Client
	ttl  time.Duration
	lg   *zap.Logger
}

// NewMenuCache creates the read-through wrapper.
func NewMenuCache(next menu.Repository, rdb *redis.Client, ttl time.Duration, lg *zap.Logger) *MenuCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MenuCache{next: next, rdb: rdb, ttl: ttl, lg: lg}
}

func itemKey(tenantID, id string) string {
	return "menu:" + tenantID + ":" + id
}

// GetByIDs serves items from Redis where possible and reads the misses
// from the underlying repository in one batch. Only found items are
// cached; absence is re-checked on every call so undeleting an item
// takes effect immediately.
func (c *MenuCache) GetByIDs(ctx context.Context, tenantID string, ids []string) ([]menu.Item, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = itemKey(tenantID, id)
	}

	var out []menu.Item
	var misses []string

	cached, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.lg.Warn("Menu cache read failed", zap.Error(err))
		return c.next.GetByIDs(ctx, tenantID, ids)
	}
	for i, raw := range cached {
		s, ok := raw.(string)
		if !ok {
			misses = append(misses, ids[i])
			continue
		}
		var item menu.Item
		if err := json.Unmarshal([]byte(s), &item); err != nil {
			misses = append(misses, ids[i])
			continue
		}
		out = append(out, item)
	}

	if len(misses) == 0 {
		return out, nil
	}

	fresh, err := c.next.GetByIDs(ctx, tenantID, misses)
	if err != nil {
		return nil, err
	}
	for _, item := range fresh {
		c.store(ctx, tenantID, item)
	}
	return append(out, fresh...), nil
}

func (c *MenuCache) store(ctx context.Context, tenantID string, item menu.Item) {
	data, err := json.Marshal(item)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, itemKey(tenantID, item.ID), data, c.ttl).Err(); err != nil {
		c.lg.Warn("Menu cache write failed",
			zap.String("menu_item_id", item.ID),
			zap.Error(err),
		)
	}
}

// Invalidate drops the cached copies of the given items, used after
// menu edits or soft deletes.
func (c *MenuCache) Invalidate(ctx context.Context, tenantID string, ids ...string) error {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = itemKey(tenantID, id)
	}
	return c.rdb.Del(ctx, keys...).Err()
}
