package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInsufficientStock = errors.New("ledger: insufficient stock")
	ErrVariationNotFound = errors.New("ledger: variation not found")
	ErrBelowReserved     = errors.New("ledger: stock would drop below reserved units")
)

// Reservation is a time-bounded hold on variation stock for one order.
type Reservation struct {
	ID          string    `json:"id"`
	VariationID string    `json:"variation_id"`
	OrderID     string    `json:"order_id"`
	Qty         int       `json:"qty"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

type Stock struct {
	VariationID string `json:"variation_id"`
	Available   int    `json:"available_stock"`
	Reserved    int    `json:"reserved_stock"`
	Enabled     bool   `json:"stock_enabled"`
}

// Free is what a new reservation may still take. Disabled stock has none.
func (s Stock) Free() int {
	if !s.Enabled || s.Available <= s.Reserved {
		return 0
	}
	return s.Available - s.Reserved
}

// Store is the persistence side of the ledger. Reserve must check and take
// stock in one atomic step per variation.
type Store interface {
	Reserve(ctx context.Context, r Reservation) error
	// Commit and Release report false when the reservation no longer exists.
	Commit(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) (bool, error)
	ByOrder(ctx context.Context, orderID string) ([]Reservation, error)
	Stock(ctx context.Context, variationID string) (Stock, error)
	SetStockEnabled(ctx context.Context, variationID string, enabled bool) (Stock, error)
	Adjust(ctx context.Context, variationID string, delta int) (Stock, error)
	// SweepExpired releases up to limit reservations that expired at or before now.
	SweepExpired(ctx context.Context, now time.Time, limit int) ([]Reservation, error)
}
