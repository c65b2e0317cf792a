package doctors

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-appointments/pkg/logging"
)

const listCacheKey = "doctors:all"

// CachedCatalog is a Redis read-through cache in front of another catalog.
// Redis failures fall through to the underlying catalog.
type CachedCatalog struct {
	next   Catalog
	client redis.Cmdable
	ttl    time.Duration
	logger *logging.Logger
}

func NewCachedCatalog(next Catalog, client redis.Cmdable, ttl time.Duration, logger *logging.Logger) *CachedCatalog {
	if next == nil {
		panic("doctors: underlying catalog required")
	}
	if client == nil {
		panic("doctors: redis client required")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedCatalog{next: next, client: client, ttl: ttl, logger: logger}
}

func (c *CachedCatalog) List(ctx context.Context) ([]Doctor, error) {
	raw, err := c.client.Get(ctx, listCacheKey).Bytes()
	switch {
	case err == nil:
		var list []Doctor
		if jsonErr := json.Unmarshal(raw, &list); jsonErr == nil {
			return list, nil
		}
		c.logger.Warn("doctor cache entry corrupt", "key", listCacheKey)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("doctor cache read failed", "error", err)
	}

	list, err := c.next.List(ctx)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(list); err == nil {
		if err := c.client.Set(ctx, listCacheKey, encoded, c.ttl).Err(); err != nil {
			c.logger.Warn("doctor cache write failed", "error", err)
		}
	}
	return list, nil
}

func (c *CachedCatalog) Get(ctx context.Context, id string) (*Doctor, error) {
	list, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range list {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, ErrNotFound
}

// Invalidate drops the cached list.
func (c *CachedCatalog) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, listCacheKey).Err()
}
