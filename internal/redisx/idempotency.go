package redisx

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Idempotency guards checkout retries carrying the same Idempotency-Key.
type Idempotency struct {
	R *redis.Client
}

// Claim returns claimed=true for the first caller. Later callers get the
// stored order id, or "" while the first checkout is still running.
func (i *Idempotency) Claim(ctx context.Context, key string) (existing string, claimed bool, err error) {
	k := fmt.Sprintf(KeyIdemCheckout, key)
	ok, err := i.R.SetNX(ctx, k, IdemPending, TTLIdemPending).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}
	v, err := i.R.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return i.Claim(ctx, key)
	}
	if err != nil {
		return "", false, err
	}
	if v == IdemPending {
		return "", false, nil
	}
	return v, false, nil
}

func (i *Idempotency) Complete(ctx context.Context, key, orderID string) error {
	return i.R.Set(ctx, fmt.Sprintf(KeyIdemCheckout, key), orderID, TTLIdempotency).Err()
}

func (i *Idempotency) Abandon(ctx context.Context, key string) error {
	return i.R.Del(ctx, fmt.Sprintf(KeyIdemCheckout, key)).Err()
}
