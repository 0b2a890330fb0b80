package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-bike-configurator/internal/redisx"
)

// CachedSnapshots is a cache-aside wrapper over a SnapshotSource. Redis
// failures fall through to the source.
type CachedSnapshots struct {
	Source SnapshotSource
	Redis  *redis.Client
	TTL    time.Duration
	Log    zerolog.Logger
}

func (c *CachedSnapshots) Snapshot(ctx context.Context, productID string) (*Snapshot, error) {
	key := fmt.Sprintf(redisx.KeyCatalogSnapshot, productID)

	b, err := c.Redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var snap Snapshot
		if err := json.Unmarshal(b, &snap); err == nil {
			return &snap, nil
		}
		c.Log.Warn().Str("product_id", productID).Msg("corrupt snapshot in cache, reloading")
	case !errors.Is(err, redis.Nil):
		c.Log.Warn().Err(err).Str("product_id", productID).Msg("snapshot cache read failed")
	}

	snap, err := c.Source.Snapshot(ctx, productID)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(snap); err == nil {
		if err := c.Redis.Set(ctx, key, b, c.ttl()).Err(); err != nil {
			c.Log.Warn().Err(err).Str("product_id", productID).Msg("snapshot cache write failed")
		}
	}
	return snap, nil
}

func (c *CachedSnapshots) Invalidate(ctx context.Context, productID string) {
	key := fmt.Sprintf(redisx.KeyCatalogSnapshot, productID)
	if err := c.Redis.Del(ctx, key).Err(); err != nil {
		c.Log.Warn().Err(err).Str("product_id", productID).Msg("snapshot cache invalidate failed")
	}
}

func (c *CachedSnapshots) ttl() time.Duration {
	if c.TTL <= 0 {
		return redisx.TTLCatalogSnapshot
	}
	return c.TTL
}
