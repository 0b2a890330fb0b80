package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type StatusCache struct {
	R *redis.Client
}

type cachedStatus struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *StatusCache) Set(ctx context.Context, orderID, status string) error {
	b, err := json.Marshal(cachedStatus{Status: status, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return c.R.Set(ctx, fmt.Sprintf(KeyOrderStatus, orderID), b, TTLStatusCache).Err()
}

func (c *StatusCache) Get(ctx context.Context, orderID string) (string, bool, error) {
	b, err := c.R.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	var s cachedStatus
	if err := json.Unmarshal(b, &s); err != nil || s.Status == "" {
		return "", false, nil
	}
	return s.Status, true, nil
}
