package catalog

import (
	"time"

	"github.com/ariefcatur/go-bike-configurator/internal/money"
)

type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductArchived ProductStatus = "archived"
)

type Product struct {
	ID             string        `json:"id"`
	Name           string        `json:"name" validate:"required"`
	Description    string        `json:"description"`
	Images         []string      `json:"images"`
	PartIDs        []string      `json:"part_ids"`
	AvailableStock int           `json:"available_stock" validate:"gte=0"`
	Status         ProductStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (p Product) Active() bool { return p.Status != ProductArchived }

// Part is one customization slot of a product.
type Part struct {
	ID           string   `json:"id"`
	ProductID    string   `json:"product_id" validate:"required"`
	Name         string   `json:"name" validate:"required"`
	Icon         string   `json:"icon"`
	VariationIDs []string `json:"variation_ids"`
	Position     int      `json:"position"`
}

// PriceRule applies when DependsOn is empty or the selection contains DependsOn.
type PriceRule struct {
	DependsOn string      `json:"depends_on_variation_id,omitempty"`
	Price     money.Money `json:"price"`
}

func (r PriceRule) Unconditional() bool { return r.DependsOn == "" }

type Variation struct {
	ID             string      `json:"id"`
	PartID         string      `json:"part_id" validate:"required"`
	Name           string      `json:"name" validate:"required"`
	Images         []string    `json:"images"`
	ProhibitedIDs  []string    `json:"prohibited_ids"`
	PriceRules     []PriceRule `json:"price_rules" validate:"required,min=1"`
	AvailableStock int         `json:"available_stock" validate:"gte=0"`
	ReservedStock  int         `json:"reserved_stock"`
	StockEnabled   bool        `json:"stock_enabled"`
	Position       int         `json:"position"`
}

// BasePrice returns the first unconditional rule's price.
func (v Variation) BasePrice() (money.Money, bool) {
	for _, r := range v.PriceRules {
		if r.Unconditional() {
			return r.Price, true
		}
	}
	return money.Zero, false
}

// Free is the stock a new reservation can still take.
func (v Variation) Free() int {
	if !v.StockEnabled {
		return 0
	}
	if n := v.AvailableStock - v.ReservedStock; n > 0 {
		return n
	}
	return 0
}

type Flow struct {
	ID        string   `json:"id"`
	ProductID string   `json:"product_id" validate:"required"`
	PartIDs   []string `json:"part_ids" validate:"required,min=1"`
}

// Snapshot is a product with everything reachable from it, read as one unit.
type Snapshot struct {
	Product    Product     `json:"product"`
	Parts      []Part      `json:"parts"`
	Variations []Variation `json:"variations"`
	Flow       Flow        `json:"flow"`
}

// OrderedParts returns parts in Flow order followed by the parts the Flow omits.
func OrderedParts(product Product, flow Flow, parts []Part) []Part {
	byID := make(map[string]Part, len(parts))
	for _, p := range parts {
		byID[p.ID] = p
	}
	out := make([]Part, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	add := func(id string) {
		if p, ok := byID[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, p)
		}
	}
	for _, id := range flow.PartIDs {
		add(id)
	}
	for _, id := range product.PartIDs {
		add(id)
	}
	for _, p := range parts {
		add(p.ID)
	}
	return out
}
