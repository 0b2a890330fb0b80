package ledger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper releases reservations of abandoned checkouts.
type Sweeper struct {
	Store    Store
	Interval time.Duration
	Batch    int
	Log      zerolog.Logger
}

// Run sweeps every Interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := s.SweepOnce(ctx, time.Now().UTC()); err != nil && ctx.Err() == nil {
				s.Log.Error().Err(err).Msg("reservation sweep failed")
			}
		}
	}
}

// SweepOnce drains expired reservations batch by batch.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) (int, error) {
	batch := s.Batch
	if batch <= 0 {
		batch = 100
	}
	total := 0
	for {
		released, err := s.Store.SweepExpired(ctx, now, batch)
		if err != nil {
			return total, err
		}
		for _, r := range released {
			s.Log.Info().Str("reservation_id", r.ID).Str("variation_id", r.VariationID).
				Str("order_id", r.OrderID).Msg("expired reservation released")
		}
		total += len(released)
		if len(released) < batch {
			return total, nil
		}
	}
}
