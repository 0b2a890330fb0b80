package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/ariefcatur/go-bike-configurator/internal/ledger"
)

type Ledger struct{ db *DB }

var _ ledger.Store = (*Ledger)(nil)

func (l *Ledger) Reserve(_ context.Context, r ledger.Reservation) error {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()

	v, ok := l.db.variations[r.VariationID]
	if !ok {
		return ledger.ErrVariationNotFound
	}
	if !v.StockEnabled || v.AvailableStock-v.ReservedStock < r.Qty {
		return ledger.ErrInsufficientStock
	}
	v.ReservedStock += r.Qty
	l.db.variations[v.ID] = v
	l.db.reservations[r.ID] = r
	return nil
}

func (l *Ledger) Commit(_ context.Context, id string) (bool, error) {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()

	r, ok := l.db.reservations[id]
	if !ok {
		return false, nil
	}
	delete(l.db.reservations, id)
	v := l.db.variations[r.VariationID]
	v.AvailableStock -= r.Qty
	v.ReservedStock -= r.Qty
	l.db.variations[v.ID] = v
	return true, nil
}

func (l *Ledger) Release(_ context.Context, id string) (bool, error) {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()
	return l.releaseLocked(id), nil
}

func (l *Ledger) releaseLocked(id string) bool {
	r, ok := l.db.reservations[id]
	if !ok {
		return false
	}
	delete(l.db.reservations, id)
	v := l.db.variations[r.VariationID]
	v.ReservedStock -= r.Qty
	l.db.variations[v.ID] = v
	return true
}

func (l *Ledger) ByOrder(_ context.Context, orderID string) ([]ledger.Reservation, error) {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()

	var out []ledger.Reservation
	for _, r := range l.db.reservations {
		if r.OrderID == orderID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (l *Ledger) Stock(_ context.Context, variationID string) (ledger.Stock, error) {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()
	return l.stockLocked(variationID)
}

func (l *Ledger) stockLocked(variationID string) (ledger.Stock, error) {
	v, ok := l.db.variations[variationID]
	if !ok {
		return ledger.Stock{}, ledger.ErrVariationNotFound
	}
	return ledger.Stock{
		VariationID: v.ID,
		Available:   v.AvailableStock,
		Reserved:    v.ReservedStock,
		Enabled:     v.StockEnabled,
	}, nil
}

func (l *Ledger) SetStockEnabled(_ context.Context, variationID string, enabled bool) (ledger.Stock, error) {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()

	v, ok := l.db.variations[variationID]
	if !ok {
		return ledger.Stock{}, ledger.ErrVariationNotFound
	}
	v.StockEnabled = enabled
	l.db.variations[v.ID] = v
	return l.stockLocked(variationID)
}

func (l *Ledger) Adjust(_ context.Context, variationID string, delta int) (ledger.Stock, error) {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()

	v, ok := l.db.variations[variationID]
	if !ok {
		return ledger.Stock{}, ledger.ErrVariationNotFound
	}
	if v.AvailableStock+delta < v.ReservedStock {
		return ledger.Stock{}, ledger.ErrBelowReserved
	}
	v.AvailableStock += delta
	l.db.variations[v.ID] = v
	return l.stockLocked(variationID)
}

func (l *Ledger) SweepExpired(_ context.Context, now time.Time, limit int) ([]ledger.Reservation, error) {
	l.db.mu.Lock()
	defer l.db.mu.Unlock()

	var expired []ledger.Reservation
	for _, r := range l.db.reservations {
		if !r.ExpiresAt.After(now) {
			expired = append(expired, r)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ExpiresAt.Before(expired[j].ExpiresAt) })
	if len(expired) > limit {
		expired = expired[:limit]
	}
	for _, r := range expired {
		l.releaseLocked(r.ID)
	}
	return expired, nil
}
