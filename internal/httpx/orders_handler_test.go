package httpx_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-bike-configurator/internal/apperr"
	"github.com/ariefcatur/go-bike-configurator/internal/checkout"
	"github.com/ariefcatur/go-bike-configurator/internal/httpx"
	"github.com/ariefcatur/go-bike-configurator/internal/logger"
	"github.com/ariefcatur/go-bike-configurator/internal/money"
	"github.com/ariefcatur/go-bike-configurator/internal/orders"
)

func newOrdersRouter() (http.Handler, *MockOrders) {
	m := new(MockOrders)
	r := httpx.NewRouter(logger.Nop())
	(&httpx.OrdersHandler{Orders: m}).Register(r)
	return r, m
}

func pendingOrder() *orders.Order {
	return &orders.Order{
		ID:            "o-1",
		UserID:        "u-1",
		Status:        orders.StatusPending,
		CheckoutState: orders.StateAwaitingPayment,
		TotalPrice:    money.MustParse("325"),
		Currency:      "EUR",
		Transactions:  []orders.Transaction{{ID: "tx-1", OrderID: "o-1", PaymentStatus: orders.TxPending}},
	}
}

func TestOrders_Checkout(t *testing.T) {
	h, m := newOrdersRouter()
	sel := map[string]string{"frame-type": "full-suspension"}
	m.On("Checkout", mock.Anything, checkout.Request{
		UserID: "u-1", ProductID: "bicycle", Selection: sel, IdempotencyKey: "k-1",
	}).Return(pendingOrder(), nil).Once()

	body := `{"user_id":"u-1","product_id":"bicycle","selection":{"frame-type":"full-suspension"}}`
	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", " k-1 ")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var got map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, "o-1", got["orderId"])
	assert.Equal(t, "325.00", got["total_price"])
	assert.Equal(t, "pending", got["status"])
	assert.Equal(t, "tx-1", got["transaction_id"])
	m.AssertExpectations(t)
}

func TestOrders_CheckoutErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"out of stock", apperr.OutOfStock("fat-bike-wheels"), http.StatusConflict, apperr.CodeOutOfStock},
		{"incomplete", apperr.IncompleteSelection("chain"), http.StatusConflict, apperr.CodeIncompleteSelection},
		{"unknown product", apperr.NotFound("product", "x"), http.StatusNotFound, apperr.CodeNotFound},
		{"payment", apperr.PaymentFailed("gateway down", nil), http.StatusPaymentRequired, apperr.CodePaymentFailed},
		{"internal", errors.New("db exploded"), http.StatusInternalServerError, apperr.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m := newOrdersRouter()
			m.On("Checkout", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			rr := do(t, h, http.MethodPost, "/checkout", httpx.CheckoutRequest{
				UserID: "u-1", ProductID: "bicycle", Selection: map[string]string{"chain": "8-speed"},
			})
			assert.Equal(t, tt.wantCode, rr.Code)
			e := decodeError(t, rr)
			assert.Equal(t, tt.wantKind, e.ErrorKind)
			if tt.wantKind == apperr.CodeInternal {
				assert.Equal(t, "internal error", e.Detail.Message)
			}
		})
	}
}

func TestOrders_CheckoutValidation(t *testing.T) {
	h, m := newOrdersRouter()
	rr := do(t, h, http.MethodPost, "/checkout", httpx.CheckoutRequest{ProductID: "bicycle"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	m.AssertNotCalled(t, "Checkout", mock.Anything, mock.Anything)
}

func TestOrders_GetOrderAndStatus(t *testing.T) {
	h, m := newOrdersRouter()
	m.On("GetOrder", mock.Anything, "o-1").Return(pendingOrder(), nil).Once()
	m.On("GetStatus", mock.Anything, "o-1").Return(orders.StatusPending, nil).Once()
	m.On("GetOrder", mock.Anything, "missing").Return(nil, apperr.NotFound("order", "missing")).Once()

	rr := do(t, h, http.MethodGet, "/orders/o-1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var o orders.Order
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&o))
	assert.Equal(t, "o-1", o.ID)
	require.Len(t, o.Transactions, 1)

	rr = do(t, h, http.MethodGet, "/orders/o-1/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"order_id":"o-1","status":"pending"}`, rr.Body.String())

	rr = do(t, h, http.MethodGet, "/orders/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestOrders_AdvanceStatus(t *testing.T) {
	h, m := newOrdersRouter()
	fulfilled := pendingOrder()
	fulfilled.Status = orders.StatusFulfilled
	m.On("AdvanceStatus", mock.Anything, "o-1", orders.StatusFulfilled).Return(fulfilled, nil).Once()

	rr := do(t, h, http.MethodPut, "/orders/o-1/status", httpx.StatusRequest{Status: orders.StatusFulfilled})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodPut, "/orders/o-1/status", httpx.StatusRequest{Status: orders.StatusPaid})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	m.AssertExpectations(t)
}

func TestOrders_PaymentCallback(t *testing.T) {
	h, m := newOrdersRouter()
	m.On("CompletePayment", mock.Anything, checkout.PaymentResult{
		OrderID: "o-1", TransactionID: "tx-1", Success: true, GatewayRef: "psp-7", PaymentMethod: "card",
	}).Return(nil).Once()
	m.On("GetStatus", mock.Anything, "o-1").Return(orders.StatusPaid, nil).Once()

	rr := do(t, h, http.MethodPost, "/payments/callback", map[string]any{
		"order_id": "o-1", "transaction_id": "tx-1", "success": true, "gateway_ref": "psp-7", "payment_method": "card",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"order_id":"o-1","status":"paid"}`, rr.Body.String())
	m.AssertExpectations(t)
}

func TestOrders_PaymentCallbackFailure(t *testing.T) {
	h, m := newOrdersRouter()
	m.On("FailPayment", mock.Anything, mock.MatchedBy(func(r checkout.PaymentResult) bool {
		return r.OrderID == "o-1" && !r.Success && r.Reason == "declined"
	})).Return(nil).Once()
	m.On("GetStatus", mock.Anything, "o-1").Return(orders.StatusCancelled, nil).Once()

	rr := do(t, h, http.MethodPost, "/payments/callback", map[string]any{
		"order_id": "o-1", "success": false, "reason": "declined",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodPost, "/payments/callback", map[string]any{"order_id": "o-1"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	m.AssertExpectations(t)
}

func TestOrders_LatePaymentConflict(t *testing.T) {
	h, m := newOrdersRouter()
	m.On("CompletePayment", mock.Anything, mock.Anything).
		Return(apperr.Conflict("order o-1 was cancelled before payment completed")).Once()

	rr := do(t, h, http.MethodPost, "/payments/callback", map[string]any{"order_id": "o-1", "success": true})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apperr.CodeConcurrencyConflict, decodeError(t, rr).ErrorKind)
}
