package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-bike-configurator/internal/apperr"
	"github.com/ariefcatur/go-bike-configurator/internal/catalog"
	"github.com/ariefcatur/go-bike-configurator/internal/configurator"
	"github.com/ariefcatur/go-bike-configurator/internal/money"
)

type CatalogReader interface {
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
	ListParts(ctx context.Context, productID string) ([]catalog.Part, error)
	GetPart(ctx context.Context, id string) (*catalog.Part, error)
	ListVariations(ctx context.Context, partID string) ([]catalog.Variation, error)
}

type CatalogAdmin interface {
	CreateProduct(ctx context.Context, p catalog.Product) (*catalog.Product, error)
	CreatePart(ctx context.Context, p catalog.Part) (*catalog.Part, error)
	CreateVariation(ctx context.Context, v catalog.Variation) (*catalog.Variation, error)
	SetFlow(ctx context.Context, f catalog.Flow) (*catalog.Flow, error)
	ArchiveProduct(ctx context.Context, id string) error
}

type StockReader interface {
	Available(ctx context.Context, variationID string) (int, error)
}

type Pricer interface {
	Preview(ctx context.Context, productID string, selection map[string]string) (*configurator.Configuration, error)
}

type CatalogHandler struct {
	Catalog CatalogReader
	Admin   CatalogAdmin // nil disables the admin routes
	Stock   StockReader
	Pricer  Pricer
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{product_id}", h.getProduct)
	r.Get("/parts/{product_id}", h.listParts)
	r.Get("/variations/{part_id}", h.listVariations)
	r.Post("/configurations/price", h.price)

	if h.Admin != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Post("/products", h.createProduct)
			r.Delete("/products/{product_id}", h.archiveProduct)
			r.Post("/products/{product_id}/parts", h.createPart)
			r.Put("/products/{product_id}/flow", h.setFlow)
			r.Post("/parts/{part_id}/variations", h.createVariation)
		})
	}
}

// VariationView is a variation as shown to shoppers.
type VariationView struct {
	ID            string              `json:"id"`
	PartID        string              `json:"part_id"`
	Name          string              `json:"name"`
	Images        []string            `json:"images"`
	ProhibitedIDs []string            `json:"prohibited_ids"`
	PriceRules    []catalog.PriceRule `json:"price_rules"`
	BasePrice     money.Money         `json:"base_price"`
	Available     int                 `json:"available"`
	InStock       bool                `json:"in_stock"`
}

type PriceRequest struct {
	ProductID string            `json:"product_id" validate:"required"`
	Selection map[string]string `json:"selection" validate:"required,min=1"`
}

func catalogErr(err error, what, id string) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return apperr.NotFound(what, id)
	}
	return apperr.Internal("load "+what, err)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Catalog.ListProducts(r.Context())
	if err != nil {
		writeError(w, r, catalogErr(err, "products", ""))
		return
	}
	if ps == nil {
		ps = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "product_id")
	p, err := h.Catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, catalogErr(err, "product", id))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) listParts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "product_id")
	parts, err := h.Catalog.ListParts(r.Context(), id)
	if err != nil {
		writeError(w, r, catalogErr(err, "product", id))
		return
	}
	if parts == nil {
		parts = []catalog.Part{}
	}
	writeJSON(w, http.StatusOK, parts)
}

func (h *CatalogHandler) listVariations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	partID := chi.URLParam(r, "part_id")
	if _, err := h.Catalog.GetPart(ctx, partID); err != nil {
		writeError(w, r, catalogErr(err, "part", partID))
		return
	}
	vs, err := h.Catalog.ListVariations(ctx, partID)
	if err != nil {
		writeError(w, r, catalogErr(err, "part", partID))
		return
	}

	out := make([]VariationView, 0, len(vs))
	for _, v := range vs {
		available, err := h.Stock.Available(ctx, v.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		base, _ := v.BasePrice()
		out = append(out, VariationView{
			ID:            v.ID,
			PartID:        v.PartID,
			Name:          v.Name,
			Images:        v.Images,
			ProhibitedIDs: v.ProhibitedIDs,
			PriceRules:    v.PriceRules,
			BasePrice:     base,
			Available:     available,
			InStock:       available > 0,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) price(w http.ResponseWriter, r *http.Request) {
	var req PriceRequest
	if err := bind(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cfg, err := h.Pricer.Preview(r.Context(), req.ProductID, req.Selection)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := bind(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Admin.CreateProduct(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *CatalogHandler) archiveProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Admin.ArchiveProduct(r.Context(), chi.URLParam(r, "product_id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) createPart(w http.ResponseWriter, r *http.Request) {
	p := catalog.Part{ProductID: chi.URLParam(r, "product_id")}
	if err := bind(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	p.ProductID = chi.URLParam(r, "product_id")
	out, err := h.Admin.CreatePart(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *CatalogHandler) createVariation(w http.ResponseWriter, r *http.Request) {
	v := catalog.Variation{PartID: chi.URLParam(r, "part_id")}
	if err := bind(r, &v); err != nil {
		writeError(w, r, err)
		return
	}
	v.PartID = chi.URLParam(r, "part_id")
	out, err := h.Admin.CreateVariation(r.Context(), v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *CatalogHandler) setFlow(w http.ResponseWriter, r *http.Request) {
	f := catalog.Flow{ProductID: chi.URLParam(r, "product_id")}
	if err := bind(r, &f); err != nil {
		writeError(w, r, err)
		return
	}
	f.ProductID = chi.URLParam(r, "product_id")
	out, err := h.Admin.SetFlow(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
