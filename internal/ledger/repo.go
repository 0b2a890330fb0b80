package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

// Reserve takes stock and records the hold in a single statement. The row
// lock taken by the UPDATE serializes concurrent checkouts of one variation.
func (r *Repo) Reserve(ctx context.Context, res Reservation) error {
	ct, err := r.DB.Exec(ctx, `
		WITH upd AS (
			UPDATE variations
			SET reserved_stock = reserved_stock + $3, updated_at = now()
			WHERE id = $2 AND stock_enabled AND available_stock - reserved_stock >= $3
			RETURNING id
		)
		INSERT INTO stock_reservations(id, variation_id, order_id, qty, expires_at, created_at)
		SELECT $1, upd.id, $4, $3, $5, $6 FROM upd`,
		res.ID, res.VariationID, res.Qty, res.OrderID, res.ExpiresAt, res.CreatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	if ok, err := r.exists(ctx, res.VariationID); err != nil {
		return err
	} else if !ok {
		return ErrVariationNotFound
	}
	return ErrInsufficientStock
}

func (r *Repo) Commit(ctx context.Context, id string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		WITH del AS (
			DELETE FROM stock_reservations WHERE id = $1
			RETURNING variation_id, qty
		)
		UPDATE variations v
		SET available_stock = v.available_stock - del.qty,
		    reserved_stock  = v.reserved_stock - del.qty,
		    updated_at      = now()
		FROM del WHERE v.id = del.variation_id`, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *Repo) Release(ctx context.Context, id string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		WITH del AS (
			DELETE FROM stock_reservations WHERE id = $1
			RETURNING variation_id, qty
		)
		UPDATE variations v
		SET reserved_stock = v.reserved_stock - del.qty, updated_at = now()
		FROM del WHERE v.id = del.variation_id`, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (r *Repo) ByOrder(ctx context.Context, orderID string) ([]Reservation, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, variation_id, order_id, qty, expires_at, created_at
		FROM stock_reservations WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func (r *Repo) Stock(ctx context.Context, variationID string) (Stock, error) {
	return r.scanStock(r.DB.QueryRow(ctx, `
		SELECT id, available_stock, reserved_stock, stock_enabled FROM variations WHERE id = $1`, variationID))
}

func (r *Repo) SetStockEnabled(ctx context.Context, variationID string, enabled bool) (Stock, error) {
	return r.scanStock(r.DB.QueryRow(ctx, `
		UPDATE variations SET stock_enabled = $2, updated_at = now() WHERE id = $1
		RETURNING id, available_stock, reserved_stock, stock_enabled`, variationID, enabled))
}

func (r *Repo) Adjust(ctx context.Context, variationID string, delta int) (Stock, error) {
	s, err := r.scanStock(r.DB.QueryRow(ctx, `
		UPDATE variations SET available_stock = available_stock + $2, updated_at = now()
		WHERE id = $1 AND available_stock + $2 >= reserved_stock
		RETURNING id, available_stock, reserved_stock, stock_enabled`, variationID, delta))
	if !errors.Is(err, ErrVariationNotFound) {
		return s, err
	}
	if ok, err := r.exists(ctx, variationID); err != nil {
		return Stock{}, err
	} else if ok {
		return Stock{}, ErrBelowReserved
	}
	return Stock{}, ErrVariationNotFound
}

// SweepExpired skips rows locked by a concurrent sweeper or commit.
func (r *Repo) SweepExpired(ctx context.Context, now time.Time, limit int) ([]Reservation, error) {
	rows, err := r.DB.Query(ctx, `
		WITH expired AS (
			DELETE FROM stock_reservations
			WHERE id IN (
				SELECT id FROM stock_reservations
				WHERE expires_at <= $1
				ORDER BY expires_at
				LIMIT $2
				FOR UPDATE SKIP LOCKED
			)
			RETURNING id, variation_id, order_id, qty, expires_at, created_at
		), per_variation AS (
			SELECT variation_id, SUM(qty)::int AS qty FROM expired GROUP BY variation_id
		), upd AS (
			UPDATE variations v
			SET reserved_stock = v.reserved_stock - pv.qty, updated_at = now()
			FROM per_variation pv WHERE v.id = pv.variation_id
			RETURNING v.id
		)
		SELECT id, variation_id, order_id, qty, expires_at, created_at FROM expired`, now, limit)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func (r *Repo) exists(ctx context.Context, variationID string) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM variations WHERE id = $1)`, variationID).Scan(&ok)
	return ok, err
}

func (r *Repo) scanStock(row pgx.Row) (Stock, error) {
	var s Stock
	err := row.Scan(&s.VariationID, &s.Available, &s.Reserved, &s.Enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return Stock{}, ErrVariationNotFound
	}
	return s, err
}

func collectReservations(rows pgx.Rows) ([]Reservation, error) {
	defer rows.Close()
	var out []Reservation
	for rows.Next() {
		var res Reservation
		if err := rows.Scan(&res.ID, &res.VariationID, &res.OrderID, &res.Qty, &res.ExpiresAt, &res.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
