package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-bike-configurator/internal/checkout"
	"github.com/ariefcatur/go-bike-configurator/internal/money"
	"github.com/ariefcatur/go-bike-configurator/internal/orders"
)

type OrderService interface {
	Checkout(ctx context.Context, req checkout.Request) (*orders.Order, error)
	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)
	GetStatus(ctx context.Context, orderID string) (orders.Status, error)
	AdvanceStatus(ctx context.Context, orderID string, to orders.Status) (*orders.Order, error)
	CompletePayment(ctx context.Context, res checkout.PaymentResult) error
	FailPayment(ctx context.Context, res checkout.PaymentResult) error
}

type OrdersHandler struct {
	Orders OrderService
}

type CheckoutRequest struct {
	UserID    string            `json:"user_id" validate:"required"`
	ProductID string            `json:"product_id" validate:"required"`
	Selection map[string]string `json:"selection" validate:"required,min=1"`
}

type CheckoutResponse struct {
	OrderID       string               `json:"orderId"`
	TotalPrice    money.Money          `json:"total_price"`
	Currency      string               `json:"currency"`
	Status        orders.Status        `json:"status"`
	CheckoutState orders.CheckoutState `json:"checkout_state"`
	TransactionID string               `json:"transaction_id,omitempty"`
}

type StatusRequest struct {
	Status orders.Status `json:"status" validate:"required,oneof=fulfilled closed"`
}

type StatusResponse struct {
	OrderID string        `json:"order_id"`
	Status  orders.Status `json:"status"`
}

// PaymentCallbackRequest is what the payment provider posts back.
type PaymentCallbackRequest struct {
	OrderID        string         `json:"order_id" validate:"required"`
	TransactionID  string         `json:"transaction_id"`
	Success        *bool          `json:"success" validate:"required"`
	GatewayRef     string         `json:"gateway_ref"`
	PaymentMethod  string         `json:"payment_method"`
	PaymentGateway string         `json:"payment_gateway"`
	Reason         string         `json:"reason"`
	Details        map[string]any `json:"details"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.checkout)
	r.Get("/orders/{order_id}", h.getOrder)
	r.Get("/orders/{order_id}/status", h.getStatus)
	r.Put("/orders/{order_id}/status", h.advanceStatus)
	r.Post("/payments/callback", h.paymentCallback)
}

func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Orders.Checkout(r.Context(), checkout.Request{
		UserID:         req.UserID,
		ProductID:      req.ProductID,
		Selection:      req.Selection,
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := CheckoutResponse{
		OrderID:       o.ID,
		TotalPrice:    o.TotalPrice,
		Currency:      o.Currency,
		Status:        o.Status,
		CheckoutState: o.CheckoutState,
	}
	if n := len(o.Transactions); n > 0 {
		resp.TransactionID = o.Transactions[n-1].ID
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.GetOrder(r.Context(), chi.URLParam(r, "order_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "order_id")
	st, err := h.Orders.GetStatus(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{OrderID: id, Status: st})
}

func (h *OrdersHandler) advanceStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.Orders.AdvanceStatus(r.Context(), chi.URLParam(r, "order_id"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) paymentCallback(w http.ResponseWriter, r *http.Request) {
	var req PaymentCallbackRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res := checkout.PaymentResult{
		OrderID:        req.OrderID,
		TransactionID:  req.TransactionID,
		Success:        *req.Success,
		GatewayRef:     req.GatewayRef,
		PaymentMethod:  req.PaymentMethod,
		PaymentGateway: req.PaymentGateway,
		Reason:         req.Reason,
		Details:        req.Details,
	}
	var err error
	if res.Success {
		err = h.Orders.CompletePayment(r.Context(), res)
	} else {
		err = h.Orders.FailPayment(r.Context(), res)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := h.Orders.GetStatus(r.Context(), req.OrderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{OrderID: req.OrderID, Status: st})
}
