package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Dedup remembers processed event ids per consuming service.
type Dedup struct {
	R       *redis.Client
	Service string
}

// Claim is true when id has not been seen before.
func (d *Dedup) Claim(ctx context.Context, id string) (bool, error) {
	return d.R.SetNX(ctx, fmt.Sprintf(KeyDedup, d.Service, id), "1", TTLDedup).Result()
}

// Forget lets a failed event be processed again on redelivery.
func (d *Dedup) Forget(ctx context.Context, id string) error {
	return d.R.Del(ctx, fmt.Sprintf(KeyDedup, d.Service, id)).Err()
}
