// Package worker runs the asynq handlers for delayed checkout work.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-bike-configurator/internal/apperr"
	"github.com/ariefcatur/go-bike-configurator/internal/queue"
)

// Expirer cancels orders whose payment window has closed.
type Expirer interface {
	ExpirePayment(ctx context.Context, orderID string) error
}

type Consumer struct {
	Orders Expirer
	Log    zerolog.Logger
}

func (c *Consumer) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(queue.TaskPaymentTimeout, c.handlePaymentTimeout)
}

func (c *Consumer) handlePaymentTimeout(ctx context.Context, task *asynq.Task) error {
	var payload queue.PaymentTimeoutPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		c.Log.Warn().Err(err).Msg("payment timeout payload undecodable")
		return fmt.Errorf("decode payload: %w: %w", err, asynq.SkipRetry)
	}
	if payload.OrderID == "" {
		c.Log.Debug().Msg("payment timeout without order id skipped")
		return nil
	}
	err := c.Orders.ExpirePayment(ctx, payload.OrderID)
	if apperr.Is(err, apperr.KindNotFound) {
		c.Log.Debug().Str("order_id", payload.OrderID).Msg("payment timeout for unknown order skipped")
		return nil
	}
	if err != nil {
		c.Log.Warn().Err(err).Str("order_id", payload.OrderID).Msg("payment timeout failed")
		return err
	}
	return nil
}
