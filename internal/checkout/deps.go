package checkout

import (
	"context"
	"time"

	"github.com/ariefcatur/go-bike-configurator/internal/configurator"
	"github.com/ariefcatur/go-bike-configurator/internal/ledger"
	"github.com/ariefcatur/go-bike-configurator/internal/money"
)

type Resolver interface {
	Resolve(ctx context.Context, productID string, selection map[string]string) (*configurator.Configuration, error)
}

type StockLedger interface {
	Reserve(ctx context.Context, variationID string, qty int, orderID string, ttl time.Duration) (string, error)
	Reservations(ctx context.Context, orderID string) ([]ledger.Reservation, error)
	CommitOrder(ctx context.Context, orderID string) error
	ReleaseOrder(ctx context.Context, orderID string) error
}

type PaymentRequest struct {
	OrderID       string
	TransactionID string
	UserID        string
	Amount        money.Money
	Currency      string
}

type PaymentReceipt struct {
	Gateway string
	Ref     string
}

// Gateway records a payment attempt with the external payment side. A nil
// error means the attempt was accepted; the outcome arrives later.
type Gateway interface {
	Initiate(ctx context.Context, req PaymentRequest) (*PaymentReceipt, error)
}

type Scheduler interface {
	SchedulePaymentTimeout(ctx context.Context, orderID string, after time.Duration) error
}

type Events interface {
	Emit(ctx context.Context, topic, eventType, orderID string, payload any) error
}

// Idempotency maps an Idempotency-Key to the order it created.
type Idempotency interface {
	// Claim returns ("", false) while another request holds the key.
	Claim(ctx context.Context, key string) (orderID string, claimed bool, err error)
	Complete(ctx context.Context, key, orderID string) error
	Abandon(ctx context.Context, key string) error
}

type StatusCache interface {
	Set(ctx context.Context, orderID, status string) error
	Get(ctx context.Context, orderID string) (string, bool, error)
}
