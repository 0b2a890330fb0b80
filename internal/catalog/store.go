package catalog

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("catalog: not found")

type Reader interface {
	// ListProducts returns active products ordered by name.
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	// ListParts returns parts in Flow order.
	ListParts(ctx context.Context, productID string) ([]Part, error)
	GetPart(ctx context.Context, id string) (*Part, error)
	ListVariations(ctx context.Context, partID string) ([]Variation, error)
	GetVariation(ctx context.Context, id string) (*Variation, error)
	GetFlow(ctx context.Context, productID string) (*Flow, error)
	Snapshot(ctx context.Context, productID string) (*Snapshot, error)
}

type Writer interface {
	CreateProduct(ctx context.Context, p *Product) error
	// CreatePart also appends the part to its product's part list.
	CreatePart(ctx context.Context, p *Part) error
	// CreateVariation also appends the variation to its part's variation list.
	CreateVariation(ctx context.Context, v *Variation) error
	SetFlow(ctx context.Context, f *Flow) error
	ArchiveProduct(ctx context.Context, id string) error
}

type Store interface {
	Reader
	Writer
}

// SnapshotSource is what the constraint layer needs from the catalog.
type SnapshotSource interface {
	Snapshot(ctx context.Context, productID string) (*Snapshot, error)
}
