package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-bike-configurator/internal/ledger"
)

type StockAdmin interface {
	SetStockEnabled(ctx context.Context, variationID string, enabled bool) (ledger.Stock, error)
	Restock(ctx context.Context, variationID string, delta int) (ledger.Stock, error)
}

type StockHandler struct {
	Stock StockAdmin
}

type ToggleStockRequest struct {
	VariationID string `json:"variation_id" validate:"required"`
	Toggle      *bool  `json:"toggle" validate:"required"`
}

type RestockRequest struct {
	VariationID string `json:"variation_id" validate:"required"`
	Delta       int    `json:"delta" validate:"ne=0"`
}

type StockResponse struct {
	VariationID  string `json:"variation_id"`
	StockEnabled bool   `json:"stock_enabled"`
	Available    int    `json:"available"`
	Reserved     int    `json:"reserved"`
	OnHand       int    `json:"on_hand"`
}

func (h *StockHandler) Register(r *chi.Mux) {
	r.Put("/stock", h.toggle)
	r.Post("/stock/restock", h.restock)
}

func stockResponse(s ledger.Stock) StockResponse {
	return StockResponse{
		VariationID:  s.VariationID,
		StockEnabled: s.Enabled,
		Available:    s.Free(),
		Reserved:     s.Reserved,
		OnHand:       s.Available,
	}
}

func (h *StockHandler) toggle(w http.ResponseWriter, r *http.Request) {
	var req ToggleStockRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.Stock.SetStockEnabled(r.Context(), req.VariationID, *req.Toggle)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stockResponse(s))
}

func (h *StockHandler) restock(w http.ResponseWriter, r *http.Request) {
	var req RestockRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.Stock.Restock(r.Context(), req.VariationID, req.Delta)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stockResponse(s))
}
