package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-bike-configurator/internal/apperr"
	"github.com/ariefcatur/go-bike-configurator/internal/ledger"
	"github.com/ariefcatur/go-bike-configurator/internal/orders"
)

const (
	ReasonPaymentFailed  = "PAYMENT_FAILED"
	ReasonPaymentTimeout = "PAYMENT_TIMEOUT"
	ReasonGatewayError   = "GATEWAY_ERROR"
	ReasonStockLost      = "STOCK_LOST"
)

type Request struct {
	UserID         string            `json:"user_id" validate:"required"`
	ProductID      string            `json:"product_id" validate:"required"`
	Selection      map[string]string `json:"selection" validate:"required,min=1"`
	IdempotencyKey string            `json:"-"`
}

type PaymentResult struct {
	OrderID        string         `json:"order_id" validate:"required"`
	TransactionID  string         `json:"transaction_id"`
	Success        bool           `json:"success"`
	GatewayRef     string         `json:"gateway_ref"`
	PaymentMethod  string         `json:"payment_method"`
	PaymentGateway string         `json:"payment_gateway"`
	Reason         string         `json:"reason"`
	Details        map[string]any `json:"details"`
}

type Options struct {
	ReservationTTL time.Duration
	PaymentTimeout time.Duration
}

type Deps struct {
	Resolver  Resolver
	Ledger    StockLedger
	Orders    orders.Repository
	Gateway   Gateway
	Events    Events
	Scheduler Scheduler   // optional
	Idem      Idempotency // optional
	Status    StatusCache // optional
	Log       zerolog.Logger
}

// Service turns configurations into orders and settles them on payment outcomes.
type Service struct {
	Deps
	opts     Options
	validate *validator.Validate
}

func NewService(d Deps, opts Options) *Service {
	if opts.ReservationTTL <= 0 {
		opts.ReservationTTL = 15 * time.Minute
	}
	if opts.PaymentTimeout <= 0 {
		opts.PaymentTimeout = 10 * time.Minute
	}
	return &Service{Deps: d, opts: opts, validate: validator.New()}
}

// Checkout validates, reserves, persists and starts payment for a selection.
func (s *Service) Checkout(ctx context.Context, req Request) (_ *orders.Order, err error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperr.BadRequest(err.Error())
	}
	if req.IdempotencyKey == "" {
		return s.checkout(ctx, req)
	}

	existing, claimed, err := s.claim(ctx, req.IdempotencyKey)
	if err != nil || existing != nil {
		return existing, err
	}
	if claimed {
		defer func() {
			bg := context.WithoutCancel(ctx)
			if err != nil {
				if aerr := s.Idem.Abandon(bg, req.IdempotencyKey); aerr != nil {
					s.Log.Warn().Err(aerr).Msg("idempotency key abandon failed")
				}
			}
		}()
	}

	o, err := s.checkout(ctx, req)
	if errors.Is(err, orders.ErrDuplicateOrder) {
		return s.replay(ctx, req.IdempotencyKey)
	}
	if err != nil {
		return nil, err
	}
	if claimed {
		if err := s.Idem.Complete(context.WithoutCancel(ctx), req.IdempotencyKey, o.ID); err != nil {
			s.Log.Warn().Err(err).Str("order_id", o.ID).Msg("idempotency key store failed")
		}
	}
	return o, nil
}

// claim returns the earlier order for a reused key, or claimed=true when
// this request owns the key.
func (s *Service) claim(ctx context.Context, key string) (*orders.Order, bool, error) {
	if s.Idem == nil {
		o, err := s.replay(ctx, key)
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, false, nil
		}
		return o, false, err
	}
	orderID, claimed, err := s.Idem.Claim(ctx, key)
	if err != nil {
		// redis down: the unique key on orders still guards duplicates
		s.Log.Warn().Err(err).Msg("idempotency claim failed")
		return nil, false, nil
	}
	if !claimed {
		if orderID == "" {
			return nil, false, apperr.Conflict("a checkout with this idempotency key is in progress")
		}
		o, err := s.GetOrder(ctx, orderID)
		return o, false, err
	}
	o, err := s.replay(ctx, key)
	if err == nil {
		_ = s.Idem.Complete(ctx, key, o.ID)
		return o, false, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		_ = s.Idem.Abandon(ctx, key)
		return nil, false, err
	}
	return nil, true, nil
}

func (s *Service) replay(ctx context.Context, key string) (*orders.Order, error) {
	o, err := s.Orders.FindByIdempotencyKey(ctx, key)
	if errors.Is(err, orders.ErrOrderNotFound) {
		return nil, apperr.NotFound("order for idempotency key", key)
	}
	if err != nil {
		return nil, apperr.Internal("load order", err)
	}
	return s.withTransactions(ctx, o)
}

func (s *Service) checkout(ctx context.Context, req Request) (*orders.Order, error) {
	cfg, err := s.Resolver.Resolve(ctx, req.ProductID, req.Selection)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	orderID := uuid.NewString()
	log := s.Log.With().Str("order_id", orderID).Str("product_id", req.ProductID).Logger()
	// past this point cleanup must run even if the caller goes away
	bg := context.WithoutCancel(ctx)

	for _, it := range cfg.Items {
		if _, err := s.Ledger.Reserve(ctx, it.VariationID, 1, orderID, s.opts.ReservationTTL); err != nil {
			s.release(bg, log, orderID)
			log.Debug().Err(err).Str("variation_id", it.VariationID).Msg("reservation failed")
			return nil, err
		}
	}

	now := time.Now().UTC()
	o := &orders.Order{
		ID:             orderID,
		UserID:         req.UserID,
		Status:         orders.StatusPending,
		CheckoutState:  orders.StateAwaitingPayment,
		TotalPrice:     cfg.TotalPrice,
		Currency:       cfg.Currency,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	item := orders.OrderItem{ProductID: cfg.ProductID}
	for _, it := range cfg.Items {
		item.Variations = append(item.Variations, orders.SelectedVariation{
			PartID:        it.PartID,
			VariationID:   it.VariationID,
			VariationName: it.VariationName,
			Price:         it.Price,
		})
	}
	o.Items = []orders.OrderItem{item}

	if err := s.Orders.CreateOrder(bg, o); err != nil {
		s.release(bg, log, orderID)
		if errors.Is(err, orders.ErrDuplicateOrder) {
			return nil, err
		}
		return nil, apperr.Internal("persist order", err)
	}

	tx := &orders.Transaction{
		ID:            uuid.NewString(),
		OrderID:       orderID,
		PaymentStatus: orders.TxPending,
		Amount:        o.TotalPrice,
		Currency:      o.Currency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Orders.CreateTransaction(bg, tx); err != nil {
		s.abort(bg, log, o, nil, ReasonGatewayError)
		if errors.Is(err, orders.ErrTransactionInFlight) {
			return nil, apperr.Conflict("order already has a payment in flight")
		}
		return nil, apperr.Internal("open transaction", err)
	}

	receipt, err := s.Gateway.Initiate(ctx, PaymentRequest{
		OrderID:       orderID,
		TransactionID: tx.ID,
		UserID:        req.UserID,
		Amount:        o.TotalPrice,
		Currency:      o.Currency,
	})
	if err != nil {
		s.abort(bg, log, o, tx, ReasonGatewayError)
		return nil, apperr.PaymentFailed("payment could not be started", err)
	}
	upd := orders.TxUpdate{Status: orders.TxPending, GatewayRef: receipt.Ref, PaymentGateway: receipt.Gateway}
	if err := s.Orders.UpdateTransaction(bg, tx.ID, orders.TxPending, upd); err != nil {
		log.Warn().Err(err).Msg("record gateway reference failed")
	} else {
		tx.GatewayRef, tx.PaymentGateway = receipt.Ref, receipt.Gateway
	}

	if s.Scheduler != nil {
		if err := s.Scheduler.SchedulePaymentTimeout(bg, orderID, s.opts.PaymentTimeout); err != nil {
			// the reservation sweep still frees the stock
			log.Warn().Err(err).Msg("schedule payment timeout failed")
		}
	}

	s.emit(bg, log, orders.TopicOrderCreated, orders.EventOrderCreated, orderID, orders.OrderCreatedPayload{
		OrderID:    orderID,
		UserID:     req.UserID,
		ProductID:  cfg.ProductID,
		Items:      itemPrices(item),
		TotalPrice: o.TotalPrice,
		Currency:   o.Currency,
	})
	s.cacheStatus(bg, log, orderID, o.Status)

	log.Info().Str("total", o.TotalPrice.String()).Msg("order awaiting payment")
	o.Transactions = []orders.Transaction{*tx}
	return o, nil
}

// abort cancels an order whose payment could not start.
func (s *Service) abort(ctx context.Context, log zerolog.Logger, o *orders.Order, tx *orders.Transaction, reason string) {
	s.release(ctx, log, o.ID)
	to := orders.Phase{Status: orders.StatusCancelled, State: orders.StateFailed}
	if err := s.Orders.Transition(ctx, o.ID, o.Phase(), to); err != nil {
		log.Error().Err(err).Msg("cancel order failed")
	} else {
		o.Status, o.CheckoutState = to.Status, to.State
	}
	if tx != nil {
		if err := s.Orders.UpdateTransaction(ctx, tx.ID, orders.TxPending, orders.TxUpdate{Status: orders.TxFailed}); err != nil {
			log.Error().Err(err).Msg("fail transaction failed")
		}
	}
	s.emit(ctx, log, orders.TopicOrderCancelled, orders.EventOrderCancelled, o.ID, orders.OrderCancelledPayload{
		OrderID: o.ID, Reason: reason, CheckoutState: to.State,
	})
	s.cacheStatus(ctx, log, o.ID, orders.StatusCancelled)
}

func (s *Service) release(ctx context.Context, log zerolog.Logger, orderID string) {
	if err := s.Ledger.ReleaseOrder(ctx, orderID); err != nil {
		log.Error().Err(err).Msg("release reservations failed, sweep will reclaim")
	}
}

// TODO: route through a transactional outbox so events survive a crash after commit.
func (s *Service) emit(ctx context.Context, log zerolog.Logger, topic, eventType, orderID string, payload any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Emit(ctx, topic, eventType, orderID, payload); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("publish event failed")
	}
}

func (s *Service) cacheStatus(ctx context.Context, log zerolog.Logger, orderID string, st orders.Status) {
	if s.Status == nil {
		return
	}
	if err := s.Status.Set(ctx, orderID, string(st)); err != nil {
		log.Warn().Err(err).Msg("status cache write failed")
	}
}

func itemPrices(item orders.OrderItem) []orders.ItemPrice {
	out := make([]orders.ItemPrice, 0, len(item.Variations))
	for _, v := range item.Variations {
		out = append(out, orders.ItemPrice{PartID: v.PartID, VariationID: v.VariationID, Price: v.Price})
	}
	return out
}

func (s *Service) load(ctx context.Context, orderID string) (*orders.Order, error) {
	o, err := s.Orders.GetOrder(ctx, orderID)
	if errors.Is(err, orders.ErrOrderNotFound) {
		return nil, apperr.NotFound("order", orderID)
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("load order %s", orderID), err)
	}
	return o, nil
}

func (s *Service) withTransactions(ctx context.Context, o *orders.Order) (*orders.Order, error) {
	txs, err := s.Orders.ListTransactions(ctx, o.ID)
	if err != nil {
		return nil, apperr.Internal("list transactions", err)
	}
	o.Transactions = txs
	return o, nil
}

var _ StockLedger = (*ledger.Ledger)(nil)
