package memstore

import (
	"context"
	"sort"

	"github.com/ariefcatur/go-bike-configurator/internal/catalog"
)

type Catalog struct{ db *DB }

var _ catalog.Store = (*Catalog)(nil)

func (c *Catalog) ListProducts(_ context.Context) ([]catalog.Product, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	out := make([]catalog.Product, 0, len(c.db.products))
	for _, p := range c.db.products {
		if p.Active() {
			out = append(out, cloneProduct(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *Catalog) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	p, ok := c.db.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	p = cloneProduct(p)
	return &p, nil
}

func (c *Catalog) ListParts(_ context.Context, productID string) ([]catalog.Part, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	snap, err := c.snapshotLocked(productID)
	if err != nil {
		return nil, err
	}
	return catalog.OrderedParts(snap.Product, snap.Flow, snap.Parts), nil
}

func (c *Catalog) GetPart(_ context.Context, id string) (*catalog.Part, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	p, ok := c.db.parts[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	p = clonePart(p)
	return &p, nil
}

func (c *Catalog) ListVariations(_ context.Context, partID string) ([]catalog.Variation, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	part, ok := c.db.parts[partID]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	out := make([]catalog.Variation, 0, len(part.VariationIDs))
	for _, id := range part.VariationIDs {
		if v, ok := c.db.variations[id]; ok {
			out = append(out, cloneVariation(v))
		}
	}
	return out, nil
}

func (c *Catalog) GetVariation(_ context.Context, id string) (*catalog.Variation, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	v, ok := c.db.variations[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	v = cloneVariation(v)
	return &v, nil
}

func (c *Catalog) GetFlow(_ context.Context, productID string) (*catalog.Flow, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	f, ok := c.db.flows[productID]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	f.PartIDs = cloneStrings(f.PartIDs)
	return &f, nil
}

func (c *Catalog) Snapshot(_ context.Context, productID string) (*catalog.Snapshot, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	return c.snapshotLocked(productID)
}

func (c *Catalog) snapshotLocked(productID string) (*catalog.Snapshot, error) {
	p, ok := c.db.products[productID]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	snap := &catalog.Snapshot{Product: cloneProduct(p)}
	for _, partID := range p.PartIDs {
		part, ok := c.db.parts[partID]
		if !ok {
			continue
		}
		snap.Parts = append(snap.Parts, clonePart(part))
		for _, vid := range part.VariationIDs {
			if v, ok := c.db.variations[vid]; ok {
				snap.Variations = append(snap.Variations, cloneVariation(v))
			}
		}
	}
	if f, ok := c.db.flows[productID]; ok {
		f.PartIDs = cloneStrings(f.PartIDs)
		snap.Flow = f
	} else {
		snap.Flow = catalog.Flow{ProductID: productID, PartIDs: cloneStrings(p.PartIDs)}
	}
	return snap, nil
}

func (c *Catalog) CreateProduct(_ context.Context, p *catalog.Product) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	c.db.products[p.ID] = cloneProduct(*p)
	return nil
}

func (c *Catalog) CreatePart(_ context.Context, p *catalog.Part) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	product, ok := c.db.products[p.ProductID]
	if !ok {
		return catalog.ErrNotFound
	}
	p.Position = len(product.PartIDs)
	product.PartIDs = append(cloneStrings(product.PartIDs), p.ID)
	c.db.products[product.ID] = product
	c.db.parts[p.ID] = clonePart(*p)
	return nil
}

func (c *Catalog) CreateVariation(_ context.Context, v *catalog.Variation) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	part, ok := c.db.parts[v.PartID]
	if !ok {
		return catalog.ErrNotFound
	}
	v.Position = len(part.VariationIDs)
	part.VariationIDs = append(cloneStrings(part.VariationIDs), v.ID)
	c.db.parts[part.ID] = part
	c.db.variations[v.ID] = cloneVariation(*v)
	return nil
}

func (c *Catalog) SetFlow(_ context.Context, f *catalog.Flow) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	if old, ok := c.db.flows[f.ProductID]; ok {
		f.ID = old.ID
	}
	c.db.flows[f.ProductID] = catalog.Flow{ID: f.ID, ProductID: f.ProductID, PartIDs: cloneStrings(f.PartIDs)}
	return nil
}

func (c *Catalog) ArchiveProduct(_ context.Context, id string) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	p, ok := c.db.products[id]
	if !ok {
		return catalog.ErrNotFound
	}
	p.Status = catalog.ProductArchived
	c.db.products[id] = p
	return nil
}
