package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-bike-configurator/internal/apperr"
	"github.com/ariefcatur/go-bike-configurator/internal/orders"
)

const maxPhaseRetries = 3

var (
	awaiting   = orders.Phase{Status: orders.StatusPending, State: orders.StateAwaitingPayment}
	committing = orders.Phase{Status: orders.StatusPending, State: orders.StateCommitting}
	completed  = orders.Phase{Status: orders.StatusPaid, State: orders.StateCompleted}
)

// CompletePayment commits the order's stock and marks it paid. Repeated
// success callbacks are no-ops. A success for an order that was already
// cancelled flags the transaction for refund.
func (s *Service) CompletePayment(ctx context.Context, res PaymentResult) error {
	log := s.Log.With().Str("order_id", res.OrderID).Logger()

	for attempt := 0; attempt < maxPhaseRetries; attempt++ {
		o, err := s.load(ctx, res.OrderID)
		if err != nil {
			return err
		}
		tx, err := s.transactionFor(ctx, o.ID, res.TransactionID)
		if err != nil {
			return err
		}

		switch {
		case o.Status == orders.StatusPaid || o.Status == orders.StatusFulfilled || o.Status == orders.StatusClosed:
			return nil
		case o.Status == orders.StatusCancelled:
			s.flagRefund(ctx, log, tx, res)
			return apperr.Conflict(fmt.Sprintf("order %s was cancelled before payment completed", o.ID))
		case o.CheckoutState == orders.StateCommitting:
			return s.commit(ctx, log, o, tx, res)
		case o.Phase() == awaiting:
			err := s.Orders.Transition(ctx, o.ID, awaiting, committing)
			if errors.Is(err, orders.ErrPhaseConflict) {
				continue
			}
			if err != nil {
				return apperr.Internal("claim order for commit", err)
			}
			o.CheckoutState = orders.StateCommitting
			if err := s.restoreReservations(ctx, log, o); err != nil {
				s.loseStock(ctx, log, o, tx, res)
				return err
			}
			return s.commit(ctx, log, o, tx, res)
		default:
			return apperr.InvalidTransition(string(o.Status), string(orders.StatusPaid))
		}
	}
	return apperr.Conflict(fmt.Sprintf("order %s keeps changing, retry later", res.OrderID))
}

func (s *Service) commit(ctx context.Context, log zerolog.Logger, o *orders.Order, tx *orders.Transaction, res PaymentResult) error {
	if err := s.Ledger.CommitOrder(ctx, o.ID); err != nil {
		return err
	}
	err := s.Orders.Transition(ctx, o.ID, committing, completed)
	if err != nil && !errors.Is(err, orders.ErrPhaseConflict) {
		return apperr.Internal("mark order paid", err)
	}
	if tx != nil && tx.PaymentStatus == orders.TxPending {
		upd := orders.TxUpdate{
			Status:         orders.TxSucceeded,
			GatewayRef:     res.GatewayRef,
			PaymentMethod:  res.PaymentMethod,
			PaymentGateway: res.PaymentGateway,
			Details:        res.Details,
		}
		if err := s.Orders.UpdateTransaction(ctx, tx.ID, orders.TxPending, upd); err != nil && !errors.Is(err, orders.ErrPhaseConflict) {
			return apperr.Internal("complete transaction", err)
		}
	}

	txID := res.TransactionID
	if tx != nil {
		txID = tx.ID
	}
	s.emit(ctx, log, orders.TopicOrderPaid, orders.EventOrderPaid, o.ID, orders.OrderPaidPayload{
		OrderID: o.ID, TransactionID: txID, Amount: o.TotalPrice, Currency: o.Currency,
	})
	s.cacheStatus(ctx, log, o.ID, orders.StatusPaid)
	log.Info().Msg("order paid")
	return nil
}

// restoreReservations re-takes stock for units whose reservation expired
// before the payment arrived.
func (s *Service) restoreReservations(ctx context.Context, log zerolog.Logger, o *orders.Order) error {
	held, err := s.Ledger.Reservations(ctx, o.ID)
	if err != nil {
		return err
	}
	have := make(map[string]int, len(held))
	for _, r := range held {
		have[r.VariationID] += r.Qty
	}
	for _, variationID := range o.VariationIDs() {
		if have[variationID] > 0 {
			have[variationID]--
			continue
		}
		log.Warn().Str("variation_id", variationID).Msg("reservation expired before payment, re-reserving")
		if _, err := s.Ledger.Reserve(ctx, variationID, 1, o.ID, s.opts.ReservationTTL); err != nil {
			return err
		}
	}
	return nil
}

// loseStock cancels a paid-for order whose stock is gone.
func (s *Service) loseStock(ctx context.Context, log zerolog.Logger, o *orders.Order, tx *orders.Transaction, res PaymentResult) {
	bg := context.WithoutCancel(ctx)
	s.release(bg, log, o.ID)
	to := orders.Phase{Status: orders.StatusCancelled, State: orders.StateFailed}
	if err := s.Orders.Transition(bg, o.ID, committing, to); err != nil {
		log.Error().Err(err).Msg("cancel order failed")
	}
	s.flagRefund(bg, log, tx, res)
	s.emit(bg, log, orders.TopicOrderCancelled, orders.EventOrderCancelled, o.ID, orders.OrderCancelledPayload{
		OrderID: o.ID, Reason: ReasonStockLost, CheckoutState: to.State,
	})
	s.cacheStatus(bg, log, o.ID, orders.StatusCancelled)
}

func (s *Service) flagRefund(ctx context.Context, log zerolog.Logger, tx *orders.Transaction, res PaymentResult) {
	if tx == nil || tx.PaymentStatus == orders.TxRefundRequired {
		return
	}
	upd := orders.TxUpdate{
		Status:         orders.TxRefundRequired,
		GatewayRef:     res.GatewayRef,
		PaymentMethod:  res.PaymentMethod,
		PaymentGateway: res.PaymentGateway,
		Details:        res.Details,
	}
	if err := s.Orders.UpdateTransaction(ctx, tx.ID, tx.PaymentStatus, upd); err != nil {
		log.Error().Err(err).Str("transaction_id", tx.ID).Msg("flag refund failed")
		return
	}
	log.Warn().Str("transaction_id", tx.ID).Msg("payment received for cancelled order, refund required")
}

// FailPayment releases the stock and cancels the order.
func (s *Service) FailPayment(ctx context.Context, res PaymentResult) error {
	log := s.Log.With().Str("order_id", res.OrderID).Logger()
	reason := res.Reason
	if reason == "" {
		reason = ReasonPaymentFailed
	}
	to := orders.Phase{Status: orders.StatusCancelled, State: orders.StateFailed}
	return s.cancel(ctx, log, res.OrderID, res.TransactionID, to, orders.TxFailed, reason, res.Details)
}

// ExpirePayment cancels an order still waiting for payment. Any other order
// is left alone.
func (s *Service) ExpirePayment(ctx context.Context, orderID string) error {
	log := s.Log.With().Str("order_id", orderID).Logger()
	to := orders.Phase{Status: orders.StatusCancelled, State: orders.StateReleased}
	err := s.cancel(ctx, log, orderID, "", to, orders.TxExpired, ReasonPaymentTimeout, nil)
	if apperr.Is(err, apperr.KindConcurrencyConflict) {
		log.Debug().Err(err).Msg("payment timeout ignored")
		return nil
	}
	return err
}

func (s *Service) cancel(ctx context.Context, log zerolog.Logger, orderID, txID string, to orders.Phase,
	txStatus orders.TxStatus, reason string, details map[string]any) error {
	for attempt := 0; attempt < maxPhaseRetries; attempt++ {
		o, err := s.load(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == orders.StatusCancelled {
			return nil
		}
		if o.Phase() != awaiting {
			return apperr.InvalidTransition(fmt.Sprintf("%s/%s", o.Status, o.CheckoutState), string(to.Status))
		}
		err = s.Orders.Transition(ctx, o.ID, awaiting, to)
		if errors.Is(err, orders.ErrPhaseConflict) {
			continue
		}
		if err != nil {
			return apperr.Internal("cancel order", err)
		}

		bg := context.WithoutCancel(ctx)
		s.release(bg, log, o.ID)
		tx, err := s.transactionFor(bg, o.ID, txID)
		if err != nil {
			log.Warn().Err(err).Msg("transaction lookup failed")
		} else if tx != nil && tx.PaymentStatus == orders.TxPending {
			upd := orders.TxUpdate{Status: txStatus, Details: details}
			if err := s.Orders.UpdateTransaction(bg, tx.ID, orders.TxPending, upd); err != nil {
				log.Error().Err(err).Str("transaction_id", tx.ID).Msg("close transaction failed")
			}
		}
		s.emit(bg, log, orders.TopicOrderCancelled, orders.EventOrderCancelled, o.ID, orders.OrderCancelledPayload{
			OrderID: o.ID, Reason: reason, CheckoutState: to.State,
		})
		s.cacheStatus(bg, log, o.ID, orders.StatusCancelled)
		log.Info().Str("reason", reason).Msg("order cancelled")
		return nil
	}
	return apperr.Conflict(fmt.Sprintf("order %s keeps changing, retry later", orderID))
}

// AdvanceStatus is the admin move of a paid order to fulfilled, then closed.
func (s *Service) AdvanceStatus(ctx context.Context, orderID string, to orders.Status) (*orders.Order, error) {
	if to != orders.StatusFulfilled && to != orders.StatusClosed {
		return nil, apperr.BadRequest(fmt.Sprintf("status %q cannot be set directly", to))
	}
	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !orders.CanTransition(o.Status, to) {
		return nil, apperr.InvalidTransition(string(o.Status), string(to))
	}
	next := orders.Phase{Status: to, State: o.CheckoutState}
	err = s.Orders.Transition(ctx, o.ID, o.Phase(), next)
	if errors.Is(err, orders.ErrPhaseConflict) {
		return nil, apperr.Conflict(fmt.Sprintf("order %s changed concurrently", o.ID))
	}
	if err != nil {
		return nil, apperr.Internal("advance order", err)
	}
	o.Status = to
	s.cacheStatus(ctx, s.Log, o.ID, to)
	return s.withTransactions(ctx, o)
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.cacheStatus(ctx, s.Log, o.ID, o.Status)
	return s.withTransactions(ctx, o)
}

// GetStatus answers from the status cache when it can.
func (s *Service) GetStatus(ctx context.Context, orderID string) (orders.Status, error) {
	if s.Status != nil {
		st, ok, err := s.Status.Get(ctx, orderID)
		if err != nil {
			s.Log.Warn().Err(err).Str("order_id", orderID).Msg("status cache read failed")
		} else if ok {
			return orders.Status(st), nil
		}
	}
	o, err := s.load(ctx, orderID)
	if err != nil {
		return "", err
	}
	s.cacheStatus(ctx, s.Log, o.ID, o.Status)
	return o.Status, nil
}

// transactionFor picks txID when given, else the order's latest transaction.
func (s *Service) transactionFor(ctx context.Context, orderID, txID string) (*orders.Transaction, error) {
	if txID != "" {
		tx, err := s.Orders.GetTransaction(ctx, txID)
		if errors.Is(err, orders.ErrTransactionNotFound) {
			return nil, apperr.NotFound("transaction", txID)
		}
		if err != nil {
			return nil, apperr.Internal("load transaction", err)
		}
		if tx.OrderID != orderID {
			return nil, apperr.BadRequest(fmt.Sprintf("transaction %s does not belong to order %s", txID, orderID))
		}
		return tx, nil
	}
	txs, err := s.Orders.ListTransactions(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal("list transactions", err)
	}
	if len(txs) == 0 {
		return nil, nil
	}
	for i := len(txs) - 1; i >= 0; i-- {
		if txs[i].PaymentStatus == orders.TxPending {
			return &txs[i], nil
		}
	}
	return &txs[len(txs)-1], nil
}
