package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/ariefcatur/go-bike-configurator/internal/orders"
)

type Orders struct{ db *DB }

var _ orders.Repository = (*Orders)(nil)

func (s *Orders) CreateOrder(_ context.Context, o *orders.Order) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.orders[o.ID]; ok {
		return orders.ErrDuplicateOrder
	}
	if o.IdempotencyKey != "" {
		for _, existing := range s.db.orders {
			if existing.IdempotencyKey == o.IdempotencyKey {
				return orders.ErrDuplicateOrder
			}
		}
	}
	s.db.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (s *Orders) GetOrder(_ context.Context, id string) (*orders.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	o, ok := s.db.orders[id]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (s *Orders) FindByIdempotencyKey(_ context.Context, key string) (*orders.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, o := range s.db.orders {
		if key != "" && o.IdempotencyKey == key {
			o = cloneOrder(o)
			return &o, nil
		}
	}
	return nil, orders.ErrOrderNotFound
}

func (s *Orders) Transition(_ context.Context, id string, from, to orders.Phase) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	o, ok := s.db.orders[id]
	if !ok {
		return orders.ErrOrderNotFound
	}
	if o.Phase() != from {
		return orders.ErrPhaseConflict
	}
	o.Status, o.CheckoutState = to.Status, to.State
	o.UpdatedAt = time.Now().UTC()
	s.db.orders[id] = o
	return nil
}

func (s *Orders) CreateTransaction(_ context.Context, t *orders.Transaction) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if t.PaymentStatus == orders.TxPending {
		for _, other := range s.db.txs {
			if other.OrderID == t.OrderID && other.PaymentStatus == orders.TxPending {
				return orders.ErrTransactionInFlight
			}
		}
	}
	tx := *t
	tx.Details = cloneDetails(t.Details)
	s.db.txs[t.ID] = tx
	return nil
}

func (s *Orders) UpdateTransaction(_ context.Context, id string, from orders.TxStatus, u orders.TxUpdate) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t, ok := s.db.txs[id]
	if !ok {
		return orders.ErrTransactionNotFound
	}
	if t.PaymentStatus != from {
		return orders.ErrPhaseConflict
	}
	t.PaymentStatus = u.Status
	if u.GatewayRef != "" {
		t.GatewayRef = u.GatewayRef
	}
	if u.PaymentMethod != "" {
		t.PaymentMethod = u.PaymentMethod
	}
	if u.PaymentGateway != "" {
		t.PaymentGateway = u.PaymentGateway
	}
	if len(u.Details) > 0 {
		merged := cloneDetails(t.Details)
		if merged == nil {
			merged = map[string]any{}
		}
		for k, v := range u.Details {
			merged[k] = v
		}
		t.Details = merged
	}
	t.UpdatedAt = time.Now().UTC()
	s.db.txs[id] = t
	return nil
}

func (s *Orders) GetTransaction(_ context.Context, id string) (*orders.Transaction, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t, ok := s.db.txs[id]
	if !ok {
		return nil, orders.ErrTransactionNotFound
	}
	t.Details = cloneDetails(t.Details)
	return &t, nil
}

func (s *Orders) ListTransactions(_ context.Context, orderID string) ([]orders.Transaction, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var out []orders.Transaction
	for _, t := range s.db.txs {
		if t.OrderID == orderID {
			t.Details = cloneDetails(t.Details)
			out = append(out, t)
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
