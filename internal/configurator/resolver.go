package configurator

import (
	"context"
	"errors"
	"sort"

	"github.com/ariefcatur/go-bike-configurator/internal/apperr"
	"github.com/ariefcatur/go-bike-configurator/internal/catalog"
	"github.com/ariefcatur/go-bike-configurator/internal/constraint"
	"github.com/ariefcatur/go-bike-configurator/internal/money"
)

type Item struct {
	PartID        string      `json:"part_id"`
	PartName      string      `json:"part_name"`
	VariationID   string      `json:"variation_id"`
	VariationName string      `json:"variation_name"`
	Price         money.Money `json:"price"`
}

// Configuration is a validated and priced selection. Treat it as read-only.
type Configuration struct {
	ProductID  string      `json:"product_id"`
	Items      []Item      `json:"items"`
	TotalPrice money.Money `json:"total_price"`
	Currency   string      `json:"currency"`
}

func (c *Configuration) VariationIDs() []string {
	out := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		out = append(out, it.VariationID)
	}
	return out
}

type Resolver struct {
	source   catalog.SnapshotSource
	currency string
}

func NewResolver(source catalog.SnapshotSource, currency string) *Resolver {
	return &Resolver{source: source, currency: currency}
}

// Resolve validates selection (part id -> variation id) for a product and
// prices it. It stops at the first violation.
func (r *Resolver) Resolve(ctx context.Context, productID string, selection map[string]string) (*Configuration, error) {
	snap, err := r.source.Snapshot(ctx, productID)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, apperr.NotFound("product", productID).WithProduct(productID)
	}
	if err != nil {
		return nil, apperr.Internal("load product", err)
	}
	if !snap.Product.Active() {
		return nil, apperr.NotFound("product", productID).WithProduct(productID)
	}
	g, err := constraint.Build(snap)
	if err != nil {
		return nil, err
	}

	for _, partID := range snap.Flow.PartIDs {
		if selection[partID] == "" {
			return nil, apperr.IncompleteSelection(partID).WithProduct(productID)
		}
	}

	parts := catalog.OrderedParts(snap.Product, snap.Flow, snap.Parts)
	known := make(map[string]catalog.Part, len(parts))
	for _, p := range parts {
		known[p.ID] = p
	}
	for _, partID := range sortedKeys(selection) {
		if _, ok := known[partID]; !ok {
			return nil, apperr.NotFound("part", partID).WithProduct(productID).WithPart(partID)
		}
	}

	chosen := make([]catalog.Part, 0, len(selection))
	for _, p := range parts {
		if selection[p.ID] != "" {
			chosen = append(chosen, p)
		}
	}
	for _, p := range chosen {
		variationID := selection[p.ID]
		owner, ok := g.PartOf(variationID)
		if !ok {
			return nil, apperr.UnknownVariation(variationID).WithProduct(productID).WithPart(p.ID)
		}
		if owner != p.ID {
			return nil, apperr.InvalidVariationForPart(p.ID, variationID).WithProduct(productID)
		}
	}

	for i := range chosen {
		a := selection[chosen[i].ID]
		for _, later := range chosen[i+1:] {
			b := selection[later.ID]
			hit, err := g.Prohibited(a, b)
			if err != nil {
				return nil, err
			}
			if hit {
				return nil, apperr.ProhibitedCombination(a, b).WithProduct(productID)
			}
		}
	}

	cfg := &Configuration{ProductID: productID, Currency: r.currency, TotalPrice: money.Zero}
	for _, p := range chosen {
		variationID := selection[p.ID]
		price, err := g.PriceOf(variationID, selection)
		if err != nil {
			return nil, err
		}
		v, _ := g.Variation(variationID)
		cfg.Items = append(cfg.Items, Item{
			PartID:        p.ID,
			PartName:      p.Name,
			VariationID:   variationID,
			VariationName: v.Name,
			Price:         price,
		})
		cfg.TotalPrice = cfg.TotalPrice.Add(price)
	}
	return cfg, nil
}

// Preview prices a selection without touching stock.
func (r *Resolver) Preview(ctx context.Context, productID string, selection map[string]string) (*Configuration, error) {
	return r.Resolve(ctx, productID, selection)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
