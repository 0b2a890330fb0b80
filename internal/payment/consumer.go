package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-bike-configurator/internal/apperr"
	"github.com/ariefcatur/go-bike-configurator/internal/checkout"
	kafkax "github.com/ariefcatur/go-bike-configurator/internal/kafka"
	"github.com/ariefcatur/go-bike-configurator/internal/orders"
)

// Settler applies payment outcomes to orders.
type Settler interface {
	CompletePayment(ctx context.Context, res checkout.PaymentResult) error
	FailPayment(ctx context.Context, res checkout.PaymentResult) error
}

// Deduper remembers processed event ids.
type Deduper interface {
	Claim(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

// ResultConsumer handles payment.result events.
type ResultConsumer struct {
	Settler Settler
	Dedup   Deduper // optional
	Log     zerolog.Logger
}

var _ kafkax.Handler = (*ResultConsumer)(nil).Handle

// Handle is the kafka handler for payment.result. Business rejections are
// logged and committed; infrastructure errors are returned for retry.
func (c *ResultConsumer) Handle(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		c.Log.Error().Err(err).Int64("offset", m.Offset).Msg("undecodable payment event dropped")
		return nil
	}
	if env.EventType != orders.EventPaymentSucceeded && env.EventType != orders.EventPaymentFailed {
		return nil
	}

	if c.Dedup != nil && env.EventID != "" {
		fresh, err := c.Dedup.Claim(ctx, env.EventID)
		if err != nil {
			c.Log.Warn().Err(err).Str("event_id", env.EventID).Msg("dedup claim failed")
		} else if !fresh {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[orders.PaymentResultPayload](env.Payload)
	if err != nil {
		c.Log.Error().Err(err).Str("event_id", env.EventID).Msg("bad payment payload dropped")
		return nil
	}
	res := checkout.PaymentResult{
		OrderID:        p.OrderID,
		TransactionID:  p.TransactionID,
		Success:        env.EventType == orders.EventPaymentSucceeded,
		GatewayRef:     p.GatewayRef,
		PaymentMethod:  p.PaymentMethod,
		PaymentGateway: p.PaymentGateway,
		Reason:         p.Reason,
		Details:        p.Details,
	}
	if res.OrderID == "" {
		c.Log.Error().Str("event_id", env.EventID).Msg("payment event without order id dropped")
		return nil
	}

	log := c.Log.With().Str("event_id", env.EventID).Str("order_id", res.OrderID).Bool("success", res.Success).Logger()
	if res.Success {
		err = c.Settler.CompletePayment(ctx, res)
	} else {
		err = c.Settler.FailPayment(ctx, res)
	}
	switch {
	case err == nil:
		log.Info().Msg("payment result applied")
		return nil
	case retryable(err):
		if c.Dedup != nil && env.EventID != "" {
			if ferr := c.Dedup.Forget(context.WithoutCancel(ctx), env.EventID); ferr != nil {
				log.Warn().Err(ferr).Msg("dedup forget failed")
			}
		}
		return fmt.Errorf("apply payment result: %w", err)
	default:
		log.Warn().Err(err).Msg("payment result rejected")
		return nil
	}
}

// retryable is true for infrastructure failures, including errors outside
// the taxonomy.
func retryable(err error) bool {
	return apperr.As(err).Kind == apperr.KindInternal
}
