package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tryonserver/internal/domain"
)

const productColumns = `
	id, seller_id, name, category, image_url, COALESCE(image_handle, ''),
	color, style, best_skin_tones, uploaded_at`

// ProductRepositoryPG implements domain.ProductRepository.
type ProductRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewProductRepository creates a product repository backed by PostgreSQL.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepositoryPG {
	return &ProductRepositoryPG{pool: pool}
}

// Create inserts a new product.
func (r *ProductRepositoryPG) Create(ctx context.Context, product *domain.Product) error {
	query := `
INSERT INTO products (id, seller_id, name, category, image_url, image_handle, color, style, best_skin_tones)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err := r.pool.Exec(ctx, query,
		product.ID,
		product.SellerID,
		product.Name,
		product.Category,
		product.ImageURL,
		nullableText(product.ImageHandle),
		product.Color,
		product.Style,
		product.BestSkinTones,
	)
	return err
}

// GetByID fetches a product by its identifier.
func (r *ProductRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1;`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// ListBySeller returns a seller's products, newest first.
func (r *ProductRepositoryPG) ListBySeller(ctx context.Context, sellerID string) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE seller_id = $1 ORDER BY uploaded_at DESC;`
	rows, err := r.pool.Query(ctx, query, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// ListBySkinTones returns products whose best_skin_tones overlap the given
// tones, newest first.
func (r *ProductRepositoryPG) ListBySkinTones(ctx context.Context, tones []string, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + productColumns + `
FROM products
WHERE best_skin_tones && $1
ORDER BY uploaded_at DESC
LIMIT $2;`
	rows, err := r.pool.Query(ctx, query, tones, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// Delete removes the product and returns it.
func (r *ProductRepositoryPG) Delete(ctx context.Context, id string) (*domain.Product, error) {
	query := `
DELETE FROM products
WHERE id = $1
RETURNING id, seller_id, name, category, image_url, COALESCE(image_handle, ''),
	color, style, best_skin_tones, uploaded_at;
`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *ProductRepositoryPG) scanOne(row pgx.Row) (*domain.Product, error) {
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

func collectProducts(rows pgx.Rows) ([]domain.Product, error) {
	var products []domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var product domain.Product
	if err := row.Scan(
		&product.ID,
		&product.SellerID,
		&product.Name,
		&product.Category,
		&product.ImageURL,
		&product.ImageHandle,
		&product.Color,
		&product.Style,
		&product.BestSkinTones,
		&product.UploadedAt,
	); err != nil {
		return nil, err
	}
	return &product, nil
}

var _ domain.ProductRepository = (*ProductRepositoryPG)(nil)
