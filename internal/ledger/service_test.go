package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-bike-configurator/internal/apperr"
	"github.com/ariefcatur/go-bike-configurator/internal/catalog"
	"github.com/ariefcatur/go-bike-configurator/internal/ledger"
	"github.com/ariefcatur/go-bike-configurator/internal/logger"
	"github.com/ariefcatur/go-bike-configurator/internal/memstore"
	"github.com/ariefcatur/go-bike-configurator/internal/money"
)

// withVariation returns a ledger over a fresh store holding one variation.
func withVariation(t *testing.T, stock int) (*ledger.Ledger, ledger.Store, string) {
	t.Helper()
	ctx := context.Background()
	db := memstore.New()
	svc := catalog.NewService(db.Catalog(), nil, logger.Nop())

	p, err := svc.CreateProduct(ctx, catalog.Product{Name: "Bicycle"})
	require.NoError(t, err)
	part, err := svc.CreatePart(ctx, catalog.Part{ProductID: p.ID, Name: "Wheels"})
	require.NoError(t, err)
	v, err := svc.CreateVariation(ctx, catalog.Variation{
		PartID:         part.ID,
		Name:           "Alloy",
		AvailableStock: stock,
		StockEnabled:   true,
		PriceRules:     []catalog.PriceRule{{Price: money.MustParse("80")}},
	})
	require.NoError(t, err)
	return ledger.New(db.Ledger(), logger.Nop()), db.Ledger(), v.ID
}

func TestLedger_CommitIsIdempotent(t *testing.T) {
	l, _, vid := withVariation(t, 3)
	ctx := context.Background()

	id, err := l.Reserve(ctx, vid, 2, "order-1", time.Minute)
	require.NoError(t, err)
	free, err := l.Available(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, 1, free)

	require.NoError(t, l.Commit(ctx, id))
	require.NoError(t, l.Commit(ctx, id))

	s, err := l.Stock(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Available)
	assert.Equal(t, 0, s.Reserved)
}

func TestLedger_ReleaseIsIdempotent(t *testing.T) {
	l, _, vid := withVariation(t, 3)
	ctx := context.Background()

	id, err := l.Reserve(ctx, vid, 1, "order-1", time.Minute)
	require.NoError(t, err)

	require.NoError(t, l.Release(ctx, id))
	require.NoError(t, l.Release(ctx, id))
	// a released reservation cannot be committed later
	require.NoError(t, l.Commit(ctx, id))

	s, err := l.Stock(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, ledger.Stock{VariationID: vid, Available: 3, Reserved: 0, Enabled: true}, s)
}

func TestLedger_ConcurrentReservationsForLastUnit(t *testing.T) {
	l, _, vid := withVariation(t, 1)
	ctx := context.Background()

	const n = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		outOfSt int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Reserve(ctx, vid, 1, "order", time.Minute)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperr.Is(err, apperr.KindOutOfStock):
				outOfSt++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, outOfSt)
}

func TestLedger_DisabledStock(t *testing.T) {
	l, _, vid := withVariation(t, 5)
	ctx := context.Background()

	s, err := l.SetStockEnabled(ctx, vid, false)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Free())

	_, err = l.Reserve(ctx, vid, 1, "order-1", time.Minute)
	assert.True(t, apperr.HasCode(err, apperr.CodeOutOfStock))

	_, err = l.SetStockEnabled(ctx, "ghost", true)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = l.SetStockEnabled(ctx, vid, true)
	require.NoError(t, err)
	free, err := l.Available(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, 5, free)
}

func TestLedger_ReserveUnknownVariation(t *testing.T) {
	l, _, _ := withVariation(t, 5)

	_, err := l.Reserve(context.Background(), "ghost", 1, "order-1", time.Minute)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnknownVariation))

	_, err = l.Reserve(context.Background(), "ghost", 0, "order-1", time.Minute)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
}

func TestLedger_RestockCannotDropBelowReserved(t *testing.T) {
	l, _, vid := withVariation(t, 2)
	ctx := context.Background()

	_, err := l.Reserve(ctx, vid, 2, "order-1", time.Minute)
	require.NoError(t, err)

	_, err = l.Restock(ctx, vid, -1)
	assert.True(t, apperr.Is(err, apperr.KindConcurrencyConflict))

	s, err := l.Restock(ctx, vid, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, s.Available)
	assert.Equal(t, 4, s.Free())
}

func TestLedger_OrderWideCommitAndRelease(t *testing.T) {
	l, _, vid := withVariation(t, 4)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := l.Reserve(ctx, vid, 1, "paid", time.Minute)
		require.NoError(t, err)
	}
	_, err := l.Reserve(ctx, vid, 1, "abandoned", time.Minute)
	require.NoError(t, err)

	require.NoError(t, l.CommitOrder(ctx, "paid"))
	require.NoError(t, l.ReleaseOrder(ctx, "abandoned"))

	s, err := l.Stock(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Available)
	assert.Equal(t, 0, s.Reserved)

	left, err := l.Reservations(ctx, "paid")
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestSweeper_ReleasesExpired(t *testing.T) {
	l, store, vid := withVariation(t, 5)
	ctx := context.Background()

	_, err := l.Reserve(ctx, vid, 1, "old-1", -time.Second)
	require.NoError(t, err)
	_, err = l.Reserve(ctx, vid, 1, "old-2", -time.Second)
	require.NoError(t, err)
	_, err = l.Reserve(ctx, vid, 1, "fresh", time.Hour)
	require.NoError(t, err)

	sw := &ledger.Sweeper{Store: store, Batch: 1, Log: logger.Nop()}
	n, err := sw.SweepOnce(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	s, err := l.Stock(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Reserved)

	fresh, err := l.Reservations(ctx, "fresh")
	require.NoError(t, err)
	assert.Len(t, fresh, 1)
}

func TestSweeper_RunStopsWithContext(t *testing.T) {
	_, store, _ := withVariation(t, 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- (&ledger.Sweeper{Store: store, Interval: time.Millisecond, Log: logger.Nop()}).Run(ctx)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
