package orders

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-bike-configurator/internal/kafka"
	"github.com/ariefcatur/go-bike-configurator/internal/money"
)

const (
	EventOrderCreated     = "OrderCreated"
	EventOrderPaid        = "OrderPaid"
	EventOrderCancelled   = "OrderCancelled"
	EventPaymentRequested = "PaymentRequested"
	EventPaymentSucceeded = "PaymentSucceeded"
	EventPaymentFailed    = "PaymentFailed"
)

const EventVersion = 1

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type ItemPrice struct {
	PartID      string      `json:"part_id"`
	VariationID string      `json:"variation_id"`
	Price       money.Money `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID    string      `json:"order_id"`
	UserID     string      `json:"user_id"`
	ProductID  string      `json:"product_id"`
	Items      []ItemPrice `json:"items"`
	TotalPrice money.Money `json:"total_price"`
	Currency   string      `json:"currency"`
}

type OrderPaidPayload struct {
	OrderID       string      `json:"order_id"`
	TransactionID string      `json:"transaction_id"`
	Amount        money.Money `json:"amount"`
	Currency      string      `json:"currency"`
}

type OrderCancelledPayload struct {
	OrderID       string        `json:"order_id"`
	Reason        string        `json:"reason"` // PAYMENT_FAILED | PAYMENT_TIMEOUT | GATEWAY_ERROR
	CheckoutState CheckoutState `json:"checkout_state"`
}

type PaymentRequestedPayload struct {
	OrderID       string      `json:"order_id"`
	TransactionID string      `json:"transaction_id"`
	Amount        money.Money `json:"amount"`
	Currency      string      `json:"currency"`
	UserID        string      `json:"user_id"`
}

// PaymentResultPayload is produced by the payment side on payment.result.
type PaymentResultPayload struct {
	OrderID        string         `json:"order_id"`
	TransactionID  string         `json:"transaction_id"`
	Success        bool           `json:"success"`
	GatewayRef     string         `json:"gateway_ref,omitempty"`
	PaymentMethod  string         `json:"payment_method,omitempty"`
	PaymentGateway string         `json:"payment_gateway,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
}

// NewEnvelope wraps payload as a v1 event. The request id in ctx, if any,
// becomes the trace id.
func NewEnvelope(ctx context.Context, producer, eventType, orderID string, payload any) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  EventVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
}

// Publisher emits order lifecycle events to Kafka.
type Publisher struct {
	Producer *kafkax.Producer
	Service  string
}

func (p *Publisher) Emit(ctx context.Context, topic, eventType, orderID string, payload any) error {
	ev := NewEnvelope(ctx, p.Service, eventType, orderID, payload)
	return p.Producer.Publish(ctx, topic, PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(EventVersion))},
	)
}
