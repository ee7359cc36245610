package ledger

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix = "xray:finding:" // Cached known-imported IDs: xray:finding:{finding_id}
	cacheTTL       = 7 * 24 * time.Hour
)

// Cache is an optional redis read-through in front of the ledger store. A
// cache hit means "already imported"; a miss or an error says nothing and
// falls through to the store.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Seen reports whether the ID is cached as imported. Errors count as unseen.
func (c *Cache) Seen(ctx context.Context, id string) bool {
	if c == nil || c.client == nil {
		return false
	}
	_, err := c.client.Get(ctx, cacheKeyPrefix+id).Result()
	return err == nil
}

// Mark caches an ID as imported. Best effort; failures are ignored because
// the store remains authoritative.
func (c *Cache) Mark(ctx context.Context, id string) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Set(ctx, cacheKeyPrefix+id, "1", cacheTTL)
}
