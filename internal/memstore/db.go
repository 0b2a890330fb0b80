// Package memstore keeps catalog, stock and order state in process memory.
// One mutex guards everything, so every store operation is atomic.
package memstore

import (
	"sync"

	"github.com/ariefcatur/go-bike-configurator/internal/catalog"
	"github.com/ariefcatur/go-bike-configurator/internal/ledger"
	"github.com/ariefcatur/go-bike-configurator/internal/orders"
)

type DB struct {
	mu           sync.Mutex
	products     map[string]catalog.Product
	parts        map[string]catalog.Part
	variations   map[string]catalog.Variation
	flows        map[string]catalog.Flow // by product id
	reservations map[string]ledger.Reservation
	orders       map[string]orders.Order
	txs          map[string]orders.Transaction
}

func New() *DB {
	return &DB{
		products:     map[string]catalog.Product{},
		parts:        map[string]catalog.Part{},
		variations:   map[string]catalog.Variation{},
		flows:        map[string]catalog.Flow{},
		reservations: map[string]ledger.Reservation{},
		orders:       map[string]orders.Order{},
		txs:          map[string]orders.Transaction{},
	}
}

func (db *DB) Catalog() *Catalog { return &Catalog{db: db} }
func (db *DB) Ledger() *Ledger   { return &Ledger{db: db} }
func (db *DB) Orders() *Orders   { return &Orders{db: db} }

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func cloneVariation(v catalog.Variation) catalog.Variation {
	v.Images = cloneStrings(v.Images)
	v.ProhibitedIDs = cloneStrings(v.ProhibitedIDs)
	v.PriceRules = append([]catalog.PriceRule(nil), v.PriceRules...)
	return v
}

func cloneProduct(p catalog.Product) catalog.Product {
	p.Images = cloneStrings(p.Images)
	p.PartIDs = cloneStrings(p.PartIDs)
	return p
}

func clonePart(p catalog.Part) catalog.Part {
	p.VariationIDs = cloneStrings(p.VariationIDs)
	return p
}

func cloneOrder(o orders.Order) orders.Order {
	items := make([]orders.OrderItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = orders.OrderItem{
			ProductID:  it.ProductID,
			Variations: append([]orders.SelectedVariation(nil), it.Variations...),
		}
	}
	o.Items = items
	o.Transactions = nil
	return o
}

func cloneDetails(d map[string]any) map[string]any {
	if d == nil {
		return nil
	}
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
