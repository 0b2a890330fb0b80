package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-bike-configurator/internal/apperr"
)

// Ledger is the only writer of variation stock counters.
type Ledger struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time
}

func New(store Store, log zerolog.Logger) *Ledger {
	return &Ledger{store: store, log: log, now: time.Now}
}

func (l *Ledger) Reserve(ctx context.Context, variationID string, qty int, orderID string, ttl time.Duration) (string, error) {
	if qty <= 0 {
		return "", apperr.BadRequest(fmt.Sprintf("invalid quantity %d", qty))
	}
	now := l.now().UTC()
	r := Reservation{
		ID:          uuid.NewString(),
		VariationID: variationID,
		OrderID:     orderID,
		Qty:         qty,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}
	err := l.store.Reserve(ctx, r)
	switch {
	case errors.Is(err, ErrInsufficientStock):
		return "", apperr.OutOfStock(variationID)
	case errors.Is(err, ErrVariationNotFound):
		return "", apperr.UnknownVariation(variationID)
	case err != nil:
		return "", apperr.Internal("reserve stock", err)
	}
	l.log.Debug().Str("reservation_id", r.ID).Str("variation_id", variationID).
		Str("order_id", orderID).Int("qty", qty).Msg("stock reserved")
	return r.ID, nil
}

// Commit is a no-op for a reservation already committed, released or expired.
func (l *Ledger) Commit(ctx context.Context, id string) error {
	done, err := l.store.Commit(ctx, id)
	if err != nil {
		return apperr.Internal("commit reservation", err)
	}
	if done {
		l.log.Debug().Str("reservation_id", id).Msg("reservation committed")
	}
	return nil
}

// Release is a no-op for a reservation that no longer exists.
func (l *Ledger) Release(ctx context.Context, id string) error {
	done, err := l.store.Release(ctx, id)
	if err != nil {
		return apperr.Internal("release reservation", err)
	}
	if done {
		l.log.Debug().Str("reservation_id", id).Msg("reservation released")
	}
	return nil
}

func (l *Ledger) Reservations(ctx context.Context, orderID string) ([]Reservation, error) {
	rs, err := l.store.ByOrder(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal("list reservations", err)
	}
	return rs, nil
}

// ReleaseOrder releases every reservation held by an order.
func (l *Ledger) ReleaseOrder(ctx context.Context, orderID string) error {
	rs, err := l.Reservations(ctx, orderID)
	if err != nil {
		return err
	}
	for _, r := range rs {
		if err := l.Release(ctx, r.ID); err != nil {
			return err
		}
	}
	return nil
}

// CommitOrder commits every reservation held by an order.
func (l *Ledger) CommitOrder(ctx context.Context, orderID string) error {
	rs, err := l.Reservations(ctx, orderID)
	if err != nil {
		return err
	}
	for _, r := range rs {
		if err := l.Commit(ctx, r.ID); err != nil {
			return err
		}
	}
	return nil
}

// Available is the stock a checkout could still reserve.
func (l *Ledger) Available(ctx context.Context, variationID string) (int, error) {
	s, err := l.stock(ctx, variationID)
	if err != nil {
		return 0, err
	}
	return s.Free(), nil
}

func (l *Ledger) Stock(ctx context.Context, variationID string) (Stock, error) {
	return l.stock(ctx, variationID)
}

func (l *Ledger) SetStockEnabled(ctx context.Context, variationID string, enabled bool) (Stock, error) {
	s, err := l.store.SetStockEnabled(ctx, variationID, enabled)
	if errors.Is(err, ErrVariationNotFound) {
		return Stock{}, apperr.UnknownVariation(variationID)
	}
	if err != nil {
		return Stock{}, apperr.Internal("toggle stock", err)
	}
	l.log.Info().Str("variation_id", variationID).Bool("enabled", enabled).Msg("stock toggled")
	return s, nil
}

// Restock adds delta (possibly negative) units of stock.
func (l *Ledger) Restock(ctx context.Context, variationID string, delta int) (Stock, error) {
	s, err := l.store.Adjust(ctx, variationID, delta)
	switch {
	case errors.Is(err, ErrVariationNotFound):
		return Stock{}, apperr.UnknownVariation(variationID)
	case errors.Is(err, ErrBelowReserved):
		return Stock{}, apperr.Conflict(fmt.Sprintf("variation %s: stock cannot go below reserved units", variationID))
	case err != nil:
		return Stock{}, apperr.Internal("adjust stock", err)
	}
	l.log.Info().Str("variation_id", variationID).Int("delta", delta).Int("available", s.Available).Msg("stock adjusted")
	return s, nil
}

func (l *Ledger) stock(ctx context.Context, variationID string) (Stock, error) {
	s, err := l.store.Stock(ctx, variationID)
	if errors.Is(err, ErrVariationNotFound) {
		return Stock{}, apperr.UnknownVariation(variationID)
	}
	if err != nil {
		return Stock{}, apperr.Internal("read stock", err)
	}
	return s, nil
}
