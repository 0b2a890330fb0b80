package catalog

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-bike-configurator/internal/money"
)

const BicycleID = "bicycle"

type seedVariation struct {
	id, name   string
	stock      int
	base       string
	when       map[string]string // depends_on -> price, tried before base
	prohibited []string
}

type seedPart struct {
	id, name   string
	variations []seedVariation
}

var bicycleParts = []seedPart{
	{id: "frame-type", name: "Frame Type", variations: []seedVariation{
		{id: "full-suspension", name: "Full-suspension", stock: 5, base: "130"},
		{id: "diamond", name: "Diamond", stock: 10, base: "100"},
		{id: "step-through", name: "Step-through", stock: 8, base: "90"},
	}},
	{id: "frame-finish", name: "Frame Finish", variations: []seedVariation{
		{id: "matte", name: "Matte", stock: 20, base: "35", when: map[string]string{"full-suspension": "50"}},
		{id: "shiny", name: "Shiny", stock: 20, base: "30"},
	}},
	{id: "wheels", name: "Wheels", variations: []seedVariation{
		{id: "road-wheels", name: "Road wheels", stock: 10, base: "80"},
		{id: "mountain-wheels", name: "Mountain wheels", stock: 4, base: "90",
			prohibited: []string{"diamond", "step-through"}},
		{id: "fat-bike-wheels", name: "Fat bike wheels", stock: 3, base: "100"},
	}},
	{id: "rim-color", name: "Rim Color", variations: []seedVariation{
		{id: "red-rim", name: "Red", stock: 15, base: "35", prohibited: []string{"fat-bike-wheels"}},
		{id: "black-rim", name: "Black", stock: 15, base: "20"},
		{id: "blue-rim", name: "Blue", stock: 15, base: "20"},
	}},
	{id: "chain", name: "Chain", variations: []seedVariation{
		{id: "single-speed", name: "Single-speed chain", stock: 30, base: "43"},
		{id: "8-speed", name: "8-speed chain", stock: 12, base: "35"},
	}},
}

// SeedBicycle creates the demo "Bicycle" product. It reports false when the
// product already exists.
func SeedBicycle(ctx context.Context, svc *Service, r Reader) (bool, error) {
	_, err := r.GetProduct(ctx, BicycleID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	if _, err := svc.CreateProduct(ctx, Product{
		ID:             BicycleID,
		Name:           "Bicycle",
		Description:    "Customizable bicycle",
		AvailableStock: 1,
	}); err != nil {
		return false, err
	}
	flow := Flow{ProductID: BicycleID}
	for _, sp := range bicycleParts {
		if _, err := svc.CreatePart(ctx, Part{ID: sp.id, ProductID: BicycleID, Name: sp.name}); err != nil {
			return false, err
		}
		flow.PartIDs = append(flow.PartIDs, sp.id)
		for _, sv := range sp.variations {
			var rules []PriceRule
			for dep, price := range sv.when {
				rules = append(rules, PriceRule{DependsOn: dep, Price: money.MustParse(price)})
			}
			rules = append(rules, PriceRule{Price: money.MustParse(sv.base)})
			if _, err := svc.CreateVariation(ctx, Variation{
				ID:             sv.id,
				PartID:         sp.id,
				Name:           sv.name,
				ProhibitedIDs:  sv.prohibited,
				PriceRules:     rules,
				AvailableStock: sv.stock,
				StockEnabled:   true,
			}); err != nil {
				return false, err
			}
		}
	}
	if _, err := svc.SetFlow(ctx, flow); err != nil {
		return false, err
	}
	return true, nil
}
