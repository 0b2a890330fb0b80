// Package constraint holds the per-product prohibition relation and the
// conditional pricing table over variations.
package constraint

import (
	"github.com/ariefcatur/go-bike-configurator/internal/apperr"
	"github.com/ariefcatur/go-bike-configurator/internal/catalog"
	"github.com/ariefcatur/go-bike-configurator/internal/money"
)

// Graph is immutable once built and safe for concurrent use.
type Graph struct {
	productID  string
	variations map[string]catalog.Variation
	partOf     map[string]string
	prohibited map[string]map[string]struct{}
}

// Build loads a product snapshot. Prohibitions are closed under symmetry:
// a pair recorded on either side forbids both directions.
func Build(snap *catalog.Snapshot) (*Graph, error) {
	g := &Graph{
		productID:  snap.Product.ID,
		variations: make(map[string]catalog.Variation, len(snap.Variations)),
		partOf:     make(map[string]string, len(snap.Variations)),
		prohibited: make(map[string]map[string]struct{}),
	}
	for _, v := range snap.Variations {
		if err := catalog.ValidatePriceRules(v); err != nil {
			return nil, apperr.As(err).WithProduct(snap.Product.ID).WithPart(v.PartID)
		}
		g.variations[v.ID] = v
		g.partOf[v.ID] = v.PartID
	}
	for _, v := range snap.Variations {
		for _, other := range v.ProhibitedIDs {
			// ids from other products can never co-occur
			if _, ok := g.variations[other]; !ok || other == v.ID {
				continue
			}
			g.forbid(v.ID, other)
			g.forbid(other, v.ID)
		}
	}
	return g, nil
}

func (g *Graph) forbid(a, b string) {
	set, ok := g.prohibited[a]
	if !ok {
		set = make(map[string]struct{})
		g.prohibited[a] = set
	}
	set[b] = struct{}{}
}

func (g *Graph) ProductID() string { return g.productID }

func (g *Graph) Variation(id string) (catalog.Variation, bool) {
	v, ok := g.variations[id]
	return v, ok
}

func (g *Graph) PartOf(variationID string) (string, bool) {
	p, ok := g.partOf[variationID]
	return p, ok
}

func (g *Graph) Prohibited(a, b string) (bool, error) {
	if _, ok := g.variations[a]; !ok {
		return false, apperr.UnknownVariation(a).WithProduct(g.productID)
	}
	if _, ok := g.variations[b]; !ok {
		return false, apperr.UnknownVariation(b).WithProduct(g.productID)
	}
	_, hit := g.prohibited[a][b]
	return hit, nil
}

// PriceOf returns the price of the first conditional rule satisfied by
// selection (part id -> variation id), else the base price. A rule on X is
// satisfied when the selection picks X for X's own part.
func (g *Graph) PriceOf(variationID string, selection map[string]string) (money.Money, error) {
	v, ok := g.variations[variationID]
	if !ok {
		return money.Zero, apperr.UnknownVariation(variationID).WithProduct(g.productID)
	}
	for _, rule := range v.PriceRules {
		if rule.Unconditional() || rule.DependsOn == variationID {
			continue
		}
		part, known := g.partOf[rule.DependsOn]
		if known && selection[part] == rule.DependsOn {
			return rule.Price, nil
		}
	}
	base, _ := v.BasePrice()
	return base, nil
}
