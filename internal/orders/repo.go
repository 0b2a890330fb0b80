package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrDuplicateOrder      = errors.New("order already exists")
	ErrPhaseConflict       = errors.New("order changed concurrently")
	ErrTransactionInFlight = errors.New("order already has a pending transaction")
	ErrTransactionNotFound = errors.New("transaction not found")
)

type Repository interface {
	// CreateOrder fails with ErrDuplicateOrder on a reused idempotency key.
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Order, error)
	// Transition moves an order only while it is still in from.
	Transition(ctx context.Context, id string, from, to Phase) error
	// CreateTransaction fails with ErrTransactionInFlight while another pending one exists.
	CreateTransaction(ctx context.Context, t *Transaction) error
	// UpdateTransaction applies u only while the transaction is still in from.
	UpdateTransaction(ctx context.Context, id string, from TxStatus, u TxUpdate) error
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	ListTransactions(ctx context.Context, orderID string) ([]Transaction, error)
}

type Repo struct{ DB *pgxpool.Pool }

var _ Repository = (*Repo)(nil)

const orderCols = `id, user_id, items, status, checkout_state, total_price, currency,
	COALESCE(idempotency_key, ''), created_at, updated_at`
const txCols = `id, order_id, payment_method, payment_status, payment_gateway, gateway_ref,
	amount, currency, details, created_at, updated_at`

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" &&
		(constraint == "" || pgErr.ConstraintName == constraint)
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var status, state string
	err := row.Scan(&o.ID, &o.UserID, &o.Items, &status, &state, &o.TotalPrice, &o.Currency,
		&o.IdempotencyKey, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status, o.CheckoutState = Status(status), CheckoutState(state)
	return &o, nil
}

func scanTx(row pgx.Row) (*Transaction, error) {
	var t Transaction
	var status string
	err := row.Scan(&t.ID, &t.OrderID, &t.PaymentMethod, &status, &t.PaymentGateway, &t.GatewayRef,
		&t.Amount, &t.Currency, &t.Details, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	t.PaymentStatus = TxStatus(status)
	return &t, nil
}

func (r *Repo) CreateOrder(ctx context.Context, o *Order) error {
	var key any
	if o.IdempotencyKey != "" {
		key = o.IdempotencyKey
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO orders(id, user_id, items, status, checkout_state, total_price, currency,
		                   idempotency_key, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		o.ID, o.UserID, o.Items, string(o.Status), string(o.CheckoutState), o.TotalPrice, o.Currency,
		key, o.CreatedAt, o.UpdatedAt)
	if isUniqueViolation(err, "") {
		return ErrDuplicateOrder
	}
	return err
}

func (r *Repo) GetOrder(ctx context.Context, id string) (*Order, error) {
	return scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
}

func (r *Repo) FindByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	return scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE idempotency_key=$1`, key))
}

func (r *Repo) Transition(ctx context.Context, id string, from, to Phase) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$4, checkout_state=$5, updated_at=now()
		WHERE id=$1 AND status=$2 AND checkout_state=$3`,
		id, string(from.Status), string(from.State), string(to.Status), string(to.State))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.GetOrder(ctx, id); err != nil {
		return err
	}
	return ErrPhaseConflict
}

func (r *Repo) CreateTransaction(ctx context.Context, t *Transaction) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO transactions(id, order_id, payment_method, payment_status, payment_gateway, gateway_ref,
		                         amount, currency, details, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		t.ID, t.OrderID, t.PaymentMethod, string(t.PaymentStatus), t.PaymentGateway, t.GatewayRef,
		t.Amount, t.Currency, detailsOrEmpty(t.Details), t.CreatedAt, t.UpdatedAt)
	if isUniqueViolation(err, "transactions_one_pending_per_order") {
		return ErrTransactionInFlight
	}
	return err
}

func (r *Repo) UpdateTransaction(ctx context.Context, id string, from TxStatus, u TxUpdate) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE transactions SET
			payment_status  = $3,
			gateway_ref     = COALESCE(NULLIF($4, ''), gateway_ref),
			payment_method  = COALESCE(NULLIF($5, ''), payment_method),
			payment_gateway = COALESCE(NULLIF($6, ''), payment_gateway),
			details         = details || $7::jsonb,
			updated_at      = now()
		WHERE id=$1 AND payment_status=$2`,
		id, string(from), string(u.Status), u.GatewayRef, u.PaymentMethod, u.PaymentGateway, detailsOrEmpty(u.Details))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.GetTransaction(ctx, id); err != nil {
		return err
	}
	return ErrPhaseConflict
}

func (r *Repo) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	return scanTx(r.DB.QueryRow(ctx, `SELECT `+txCols+` FROM transactions WHERE id=$1`, id))
}

func (r *Repo) ListTransactions(ctx context.Context, orderID string) ([]Transaction, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+txCols+` FROM transactions WHERE order_id=$1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func detailsOrEmpty(d map[string]any) map[string]any {
	if d == nil {
		return map[string]any{}
	}
	return d
}
