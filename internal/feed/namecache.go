package feed

import (
	"context"
	"sync"
	"time"

	"mealcraft/internal/docstore"
	"mealcraft/internal/models"
	"mealcraft/internal/schema"

	"github.com/redis/go-redis/v9"
)

const (
	nameCachePrefix = "displayname:"
	nameCacheTTL    = 24 * time.Hour
)

// NameCache resolves owner ids to display names. Each id is looked up at
// most once per cache lifetime: first the local map, then Redis (when
// configured), then a point read of the profile document. Redis being down
// just means every process resolves names itself.
type NameCache struct {
	docs  docstore.Store
	redis *redis.Client

	mu    sync.Mutex
	names map[string]string
}

// NewNameCache returns a cache backed by the document store and an optional
// Redis client (nil disables the shared tier).
func NewNameCache(docs docstore.Store, redisClient *redis.Client) *NameCache {
	return &NameCache{
		docs:  docs,
		redis: redisClient,
		names: make(map[string]string),
	}
}

// Resolve returns the display name for ownerID, falling back to the raw id
// when the profile is missing or unreadable.
func (c *NameCache) Resolve(ctx context.Context, ownerID string) string {
	c.mu.Lock()
	if name, ok := c.names[ownerID]; ok {
		c.mu.Unlock()
		return name
	}
	c.mu.Unlock()

	if c.redis != nil {
		if name, err := c.redis.Get(ctx, nameCachePrefix+ownerID).Result(); err == nil && name != "" {
			c.store(ownerID, name)
			return name
		}
	}

	var user models.User
	if err := c.docs.Get(ctx, schema.UserDoc(ownerID), &user); err != nil {
		// Unknown owner; do not cache, a later delivery may resolve it.
		return ownerID
	}
	user.ID = ownerID
	name := user.Name()

	c.store(ownerID, name)
	if c.redis != nil {
		// Best effort; the local tier already has it.
		_ = c.redis.Set(ctx, nameCachePrefix+ownerID, name, nameCacheTTL).Err()
	}
	return name
}

func (c *NameCache) store(ownerID, name string) {
	c.mu.Lock()
	c.names[ownerID] = name
	c.mu.Unlock()
}
