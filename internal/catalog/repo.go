package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

const productCols = `id, name, description, images, part_ids, available_stock, status, created_at, updated_at`
const partCols = `id, product_id, name, icon, variation_ids, position`
const variationCols = `id, part_id, name, images, prohibited_ids, price_rules,
	available_stock, reserved_stock, stock_enabled, position`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var status string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Images, &p.PartIDs, &p.AvailableStock,
		&status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = ProductStatus(status)
	return &p, nil
}

func scanPart(row pgx.Row) (*Part, error) {
	var p Part
	if err := row.Scan(&p.ID, &p.ProductID, &p.Name, &p.Icon, &p.VariationIDs, &p.Position); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanVariation(row pgx.Row) (*Variation, error) {
	var v Variation
	if err := row.Scan(&v.ID, &v.PartID, &v.Name, &v.Images, &v.ProhibitedIDs, &v.PriceRules,
		&v.AvailableStock, &v.ReservedStock, &v.StockEnabled, &v.Position); err != nil {
		return nil, err
	}
	return &v, nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products WHERE status='active' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *Repo) GetProduct(ctx context.Context, id string) (*Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
	return p, notFound(err)
}

func (r *Repo) ListParts(ctx context.Context, productID string) ([]Part, error) {
	product, err := r.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	parts, err := r.partsOf(ctx, r.DB, productID)
	if err != nil {
		return nil, err
	}
	flow, err := r.GetFlow(ctx, productID)
	if errors.Is(err, ErrNotFound) {
		flow = &Flow{ProductID: productID, PartIDs: product.PartIDs}
	} else if err != nil {
		return nil, err
	}
	return OrderedParts(*product, *flow, parts), nil
}

func (r *Repo) GetPart(ctx context.Context, id string) (*Part, error) {
	p, err := scanPart(r.DB.QueryRow(ctx, `SELECT `+partCols+` FROM parts WHERE id=$1`, id))
	return p, notFound(err)
}

func (r *Repo) ListVariations(ctx context.Context, partID string) ([]Variation, error) {
	if _, err := r.GetPart(ctx, partID); err != nil {
		return nil, err
	}
	rows, err := r.DB.Query(ctx, `SELECT `+variationCols+` FROM variations WHERE part_id=$1 ORDER BY position, name`, partID)
	if err != nil {
		return nil, err
	}
	return collectVariations(rows)
}

func (r *Repo) GetVariation(ctx context.Context, id string) (*Variation, error) {
	v, err := scanVariation(r.DB.QueryRow(ctx, `SELECT `+variationCols+` FROM variations WHERE id=$1`, id))
	return v, notFound(err)
}

func (r *Repo) GetFlow(ctx context.Context, productID string) (*Flow, error) {
	var f Flow
	err := r.DB.QueryRow(ctx, `SELECT id, product_id, part_ids FROM flows WHERE product_id=$1`, productID).
		Scan(&f.ID, &f.ProductID, &f.PartIDs)
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// Snapshot reads the whole product graph in one repeatable-read transaction.
func (r *Repo) Snapshot(ctx context.Context, productID string) (*Snapshot, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	product, err := scanProduct(tx.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, productID))
	if err != nil {
		return nil, notFound(err)
	}
	parts, err := r.partsOf(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
		SELECT v.id, v.part_id, v.name, v.images, v.prohibited_ids, v.price_rules,
		       v.available_stock, v.reserved_stock, v.stock_enabled, v.position
		FROM variations v JOIN parts p ON p.id = v.part_id
		WHERE p.product_id=$1
		ORDER BY p.position, v.position, v.name`, productID)
	if err != nil {
		return nil, err
	}
	variations, err := collectVariations(rows)
	if err != nil {
		return nil, err
	}

	flow := Flow{ProductID: productID, PartIDs: product.PartIDs}
	err = tx.QueryRow(ctx, `SELECT id, product_id, part_ids FROM flows WHERE product_id=$1`, productID).
		Scan(&flow.ID, &flow.ProductID, &flow.PartIDs)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &Snapshot{Product: *product, Parts: parts, Variations: variations, Flow: flow}, nil
}

func (r *Repo) CreateProduct(ctx context.Context, p *Product) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products(id, name, description, images, part_ids, available_stock, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.Name, p.Description, nonNil(p.Images), nonNil(p.PartIDs), p.AvailableStock, string(p.Status),
		p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *Repo) CreatePart(ctx context.Context, p *Part) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE products SET part_ids = array_append(part_ids, $2), updated_at = now()
		WHERE id=$1`, p.ProductID, p.ID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO parts(id, product_id, name, icon, variation_ids, position)
		VALUES ($1,$2,$3,$4,$5,(SELECT COALESCE(MAX(position)+1, 0) FROM parts WHERE product_id=$2))`,
		p.ID, p.ProductID, p.Name, p.Icon, nonNil(p.VariationIDs)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) CreateVariation(ctx context.Context, v *Variation) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `UPDATE parts SET variation_ids = array_append(variation_ids, $2) WHERE id=$1`,
		v.PartID, v.ID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO variations(id, part_id, name, images, prohibited_ids, price_rules,
		                       available_stock, reserved_stock, stock_enabled, position)
		VALUES ($1,$2,$3,$4,$5,$6,$7,0,$8,(SELECT COALESCE(MAX(position)+1, 0) FROM variations WHERE part_id=$2))`,
		v.ID, v.PartID, v.Name, nonNil(v.Images), nonNil(v.ProhibitedIDs), v.PriceRules,
		v.AvailableStock, v.StockEnabled); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) SetFlow(ctx context.Context, f *Flow) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO flows(id, product_id, part_ids) VALUES ($1,$2,$3)
		ON CONFLICT (product_id) DO UPDATE SET part_ids = EXCLUDED.part_ids
		RETURNING id`, f.ID, f.ProductID, f.PartIDs).Scan(&f.ID)
}

func (r *Repo) ArchiveProduct(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `UPDATE products SET status='archived', updated_at=now() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *Repo) partsOf(ctx context.Context, q querier, productID string) ([]Part, error) {
	rows, err := q.Query(ctx, `SELECT `+partCols+` FROM parts WHERE product_id=$1 ORDER BY position, name`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Part
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func collectVariations(rows pgx.Rows) ([]Variation, error) {
	defer rows.Close()
	var out []Variation
	for rows.Next() {
		v, err := scanVariation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan variation: %w", err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
