// Package payment connects checkout to the payment side over Kafka.
package payment

import (
	"context"

	"github.com/ariefcatur/go-bike-configurator/internal/checkout"
	"github.com/ariefcatur/go-bike-configurator/internal/orders"
)

const GatewayName = "event-bus"

// EventGateway starts a payment by publishing payment.requested. The result
// comes back on payment.result or through the HTTP callback.
type EventGateway struct {
	Events checkout.Events
}

var _ checkout.Gateway = (*EventGateway)(nil)

func (g *EventGateway) Initiate(ctx context.Context, req checkout.PaymentRequest) (*checkout.PaymentReceipt, error) {
	err := g.Events.Emit(ctx, orders.TopicPaymentRequested, orders.EventPaymentRequested, req.OrderID,
		orders.PaymentRequestedPayload{
			OrderID:       req.OrderID,
			TransactionID: req.TransactionID,
			Amount:        req.Amount,
			Currency:      req.Currency,
			UserID:        req.UserID,
		})
	if err != nil {
		return nil, err
	}
	return &checkout.PaymentReceipt{Gateway: GatewayName, Ref: req.TransactionID}, nil
}
