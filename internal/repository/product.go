package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/vendor-request-system/internal/domain/product"
)

const (
	productColumns = `id, center_id, name, description, price, quantity, category, image, is_available,
		created_at, updated_at`

	listCenterProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE center_id = $1 AND (NOT $2 OR is_available)
		ORDER BY created_at DESC`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getCenterProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE center_id = $1 AND id = ANY($2)`

	createProductSQL = `INSERT INTO products
			(id, center_id, name, description, price, quantity, category, image, is_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	updateProductSQL = `UPDATE products SET
			name         = COALESCE($3, name),
			description  = COALESCE($4, description),
			price        = COALESCE($5, price),
			quantity     = COALESCE($6, quantity),
			category     = COALESCE($7, category),
			image        = COALESCE($8, image),
			is_available = COALESCE($9, is_available),
			updated_at   = now()
		WHERE id = $1 AND center_id = $2
		RETURNING ` + productColumns

	deleteProductSQL = `DELETE FROM products WHERE id = $1 AND center_id = $2`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// ListByCenter returns a center's catalog, newest first.
func (r *ProductRepository) ListByCenter(ctx context.Context, centerID string, onlyAvailable bool) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listCenterProductsSQL, centerID, onlyAvailable)
	if err != nil {
		return nil, errors.Wrapf(err, "list products of center %q", centerID)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return collectProduct(r.pool.Query(ctx, getProductByIDSQL, id))
}

// GetByIDs returns the center's products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, centerID string, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getCenterProductsByIDsSQL, centerID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}
	return pgx.CollectRows(rows, scanProduct)
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.pool.QueryRow(ctx, createProductSQL,
		p.ID, p.CenterID, p.Name, p.Description, p.Price, p.Quantity, p.Category, p.Image, p.IsAvailable,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return errors.Wrapf(err, "create product %q", p.Name)
	}
	return nil
}

// Update applies only the non-nil fields of patch so concurrent stock
// reservations are not overwritten.
func (r *ProductRepository) Update(ctx context.Context, id, centerID string, patch product.Patch) (*product.Product, error) {
	return collectProduct(r.pool.Query(ctx, updateProductSQL,
		id, centerID,
		patch.Name, patch.Description, patch.Price, patch.Quantity,
		patch.Category, patch.Image, patch.IsAvailable,
	))
}

func (r *ProductRepository) Delete(ctx context.Context, id, centerID string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id, centerID)
	if err != nil {
		return errors.Wrapf(err, "delete product %q", id)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func collectProduct(rows pgx.Rows, err error) (*product.Product, error) {
	if err != nil {
		return nil, errors.Wrap(err, "query product")
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan product")
	}
	return &p, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.CenterID, &p.Name, &p.Description, &p.Price, &p.Quantity,
		&p.Category, &p.Image, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
